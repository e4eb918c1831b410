package lexer

import (
	"github.com/lattelang/latte/token"
)

type Lexer struct {
	input        []rune
	position     int  // current position in input (points to current rune)
	readPosition int  // current reading position in input (after current rune)
	curr         rune // current rune under examination
	line         int
	column       int // column of curr, 1-based
}

func New(input string) *Lexer {
	l := &Lexer{input: []rune(input), line: 1, column: 0}
	l.readRune()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	tok := token.Token{Line: l.line, Column: l.column, Offset: l.position}

	switch l.curr {
	case '=':
		if l.peekRune() == '=' {
			tok = l.twoRuneToken(tok, token.EQL)
		} else {
			tok = l.oneRuneToken(tok, token.ASSIGN)
		}
	case '!':
		if l.peekRune() == '=' {
			tok = l.twoRuneToken(tok, token.NEQ)
		} else {
			tok = l.oneRuneToken(tok, token.NOT)
		}
	case '<':
		if l.peekRune() == '=' {
			tok = l.twoRuneToken(tok, token.LEQ)
		} else {
			tok = l.oneRuneToken(tok, token.LSS)
		}
	case '>':
		if l.peekRune() == '=' {
			tok = l.twoRuneToken(tok, token.GEQ)
		} else {
			tok = l.oneRuneToken(tok, token.GTR)
		}
	case '+':
		if l.peekRune() == '+' {
			tok = l.twoRuneToken(tok, token.INC)
		} else {
			tok = l.oneRuneToken(tok, token.ADD)
		}
	case '-':
		if l.peekRune() == '-' {
			tok = l.twoRuneToken(tok, token.DEC)
		} else {
			tok = l.oneRuneToken(tok, token.SUB)
		}
	case '*':
		tok = l.oneRuneToken(tok, token.MUL)
	case '/':
		tok = l.oneRuneToken(tok, token.QUO)
	case '%':
		tok = l.oneRuneToken(tok, token.REM)
	case '&':
		if l.peekRune() == '&' {
			tok = l.twoRuneToken(tok, token.LAND)
		} else {
			tok = l.illegalToken(tok)
		}
	case '|':
		if l.peekRune() == '|' {
			tok = l.twoRuneToken(tok, token.LOR)
		} else {
			tok = l.illegalToken(tok)
		}
	case '(':
		tok = l.oneRuneToken(tok, token.LPAREN)
	case ')':
		tok = l.oneRuneToken(tok, token.RPAREN)
	case '[':
		tok = l.oneRuneToken(tok, token.LBRACK)
	case ']':
		tok = l.oneRuneToken(tok, token.RBRACK)
	case '{':
		tok = l.oneRuneToken(tok, token.LBRACE)
	case '}':
		tok = l.oneRuneToken(tok, token.RBRACE)
	case ',':
		tok = l.oneRuneToken(tok, token.COMMA)
	case '.':
		tok = l.oneRuneToken(tok, token.PERIOD)
	case ';':
		tok = l.oneRuneToken(tok, token.SEMICOLON)
	case ':':
		tok = l.oneRuneToken(tok, token.COLON)
	case '"':
		tok.Type = token.STRING
		tok.Literal = l.readString()
		return tok
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
	default:
		if isLetter(l.curr) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.curr) {
			tok.Type = token.INT
			tok.Literal = l.readNumber()
			return tok
		}
		tok = l.illegalToken(tok)
	}

	l.readRune()
	return tok
}

func (l *Lexer) oneRuneToken(tok token.Token, typ token.TokenType) token.Token {
	tok.Type = typ
	tok.Literal = string(l.curr)
	return tok
}

func (l *Lexer) twoRuneToken(tok token.Token, typ token.TokenType) token.Token {
	first := l.curr
	l.readRune()
	tok.Type = typ
	tok.Literal = string(first) + string(l.curr)
	return tok
}

func (l *Lexer) illegalToken(tok token.Token) token.Token {
	tok.Type = token.ILLEGAL
	tok.Literal = string(l.curr)
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.curr == ' ' || l.curr == '\t' || l.curr == '\n' || l.curr == '\r':
			l.readRune()
		case l.curr == '#':
			l.skipLineComment()
		case l.curr == '/' && l.peekRune() == '/':
			l.skipLineComment()
		case l.curr == '/' && l.peekRune() == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for l.curr != '\n' && l.curr != 0 {
		l.readRune()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readRune() // consume /
	l.readRune() // consume *
	for l.curr != 0 {
		if l.curr == '*' && l.peekRune() == '/' {
			l.readRune()
			l.readRune()
			return
		}
		l.readRune()
	}
	// unterminated block comment runs to EOF
}

// readString consumes a quoted literal and returns its unescaped value.
// Supports \n, \t, \", \\ escapes. An unterminated string ends at the
// newline or EOF.
func (l *Lexer) readString() string {
	var out []rune
	l.readRune() // consume opening quote
	for l.curr != '"' && l.curr != '\n' && l.curr != 0 {
		if l.curr == '\\' {
			l.readRune()
			switch l.curr {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				out = append(out, '\\', l.curr)
			}
		} else {
			out = append(out, l.curr)
		}
		l.readRune()
	}
	if l.curr == '"' {
		l.readRune()
	}
	return string(out)
}

func (l *Lexer) readRune() {
	if l.curr == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.curr) || isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.curr) {
		l.readRune()
	}
	return string(l.input[position:l.position])
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
