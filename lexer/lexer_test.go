package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lattelang/latte/token"
)

func TestNextToken(t *testing.T) {
	input := `int main() {
  int x = 5;
  x++;
  if (x <= 6 && x != 2) {
    printString("hi\n");
  }
  return x % 2;
}`

	expected := []struct {
		typ     token.TokenType
		literal string
	}{
		{token.TYPE_INT, "int"},
		{token.IDENT, "main"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.TYPE_INT, "int"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.INC, "++"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.LEQ, "<="},
		{token.INT, "6"},
		{token.LAND, "&&"},
		{token.IDENT, "x"},
		{token.NEQ, "!="},
		{token.INT, "2"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "printString"},
		{token.LPAREN, "("},
		{token.STRING, "hi\n"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.REM, "%"},
		{token.INT, "2"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, exp := range expected {
		tok := l.NextToken()
		require.Equal(t, exp.typ, tok.Type, "token %d", i)
		require.Equal(t, exp.literal, tok.Literal, "token %d", i)
	}
}

func TestKeywords(t *testing.T) {
	input := `class extends new return while for true false null self boolean string void`
	want := []token.TokenType{
		token.CLASS, token.EXTENDS, token.NEW, token.RETURN, token.WHILE,
		token.FOR, token.TRUE, token.FALSE, token.NULL, token.SELF,
		token.TYPE_BOOLEAN, token.TYPE_STRING, token.TYPE_VOID,
	}
	l := New(input)
	for i, typ := range want {
		require.Equal(t, typ, l.NextToken().Type, "keyword %d", i)
	}
	require.Equal(t, token.EOF, l.NextToken().Type)
}

func TestComments(t *testing.T) {
	input := `// line comment
# hash comment
/* block
   comment */ 42`
	l := New(input)
	tok := l.NextToken()
	require.Equal(t, token.INT, tok.Type)
	require.Equal(t, "42", tok.Literal)
	require.Equal(t, token.EOF, l.NextToken().Type)
}

func TestPositions(t *testing.T) {
	input := "ab\n cd"
	l := New(input)

	tok := l.NextToken()
	require.Equal(t, 1, tok.Line)
	require.Equal(t, 1, tok.Column)

	tok = l.NextToken()
	require.Equal(t, "cd", tok.Literal)
	require.Equal(t, 2, tok.Line)
	require.Equal(t, 2, tok.Column)
}

func TestDecrementVsMinus(t *testing.T) {
	l := New("a-- - -b")
	want := []token.TokenType{token.IDENT, token.DEC, token.SUB, token.SUB, token.IDENT, token.EOF}
	for i, typ := range want {
		require.Equal(t, typ, l.NextToken().Type, "token %d", i)
	}
}
