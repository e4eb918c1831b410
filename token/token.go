package token

import "strconv"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	literal_beg
	// Identifiers + literals
	IDENT  // foo, Animal, x
	INT    // 1343456
	STRING // "abc"
	literal_end

	operator_beg
	// Operators and delimiters
	ASSIGN // =
	NOT    // !

	ADD // +
	SUB // -
	MUL // *
	QUO // /
	REM // %

	INC // ++
	DEC // --

	LAND // &&
	LOR  // ||

	LPAREN    // (
	LBRACK    // [
	LBRACE    // {
	COMMA     // ,
	PERIOD    // .
	RPAREN    // )
	RBRACK    // ]
	RBRACE    // }
	SEMICOLON // ;
	COLON     // :
	operator_end

	comparison_beg
	EQL // ==
	LSS // <
	GTR // >

	NEQ // !=
	LEQ // <=
	GEQ // >=
	comparison_end

	keyword_beg
	CLASS
	EXTENDS
	NEW
	RETURN
	IF
	ELSE
	WHILE
	FOR
	TRUE
	FALSE
	NULL
	SELF

	TYPE_INT
	TYPE_BOOLEAN
	TYPE_STRING
	TYPE_VOID
	keyword_end
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	INT:    "INT",
	STRING: "STRING",

	ASSIGN: "=",
	NOT:    "!",

	ADD: "+",
	SUB: "-",
	MUL: "*",
	QUO: "/",
	REM: "%",

	INC: "++",
	DEC: "--",

	LAND: "&&",
	LOR:  "||",

	LPAREN:    "(",
	LBRACK:    "[",
	LBRACE:    "{",
	COMMA:     ",",
	PERIOD:    ".",
	RPAREN:    ")",
	RBRACK:    "]",
	RBRACE:    "}",
	SEMICOLON: ";",
	COLON:     ":",

	EQL: "==",
	LSS: "<",
	GTR: ">",

	NEQ: "!=",
	LEQ: "<=",
	GEQ: ">=",

	CLASS:   "class",
	EXTENDS: "extends",
	NEW:     "new",
	RETURN:  "return",
	IF:      "if",
	ELSE:    "else",
	WHILE:   "while",
	FOR:     "for",
	TRUE:    "true",
	FALSE:   "false",
	NULL:    "null",
	SELF:    "self",

	TYPE_INT:     "int",
	TYPE_BOOLEAN: "boolean",
	TYPE_STRING:  "string",
	TYPE_VOID:    "void",
}

var keywords = map[string]TokenType{
	"class":   CLASS,
	"extends": EXTENDS,
	"new":     NEW,
	"return":  RETURN,
	"if":      IF,
	"else":    ELSE,
	"while":   WHILE,
	"for":     FOR,
	"true":    TRUE,
	"false":   FALSE,
	"null":    NULL,
	"self":    SELF,
	"int":     TYPE_INT,
	"boolean": TYPE_BOOLEAN,
	"string":  TYPE_STRING,
	"void":    TYPE_VOID,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is a lexeme plus its source location. Offset is the rune offset of
// the token's first character; Line and Column are 1-based.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Offset  int
}

func (t Token) IsComparison() bool {
	return comparison_beg < t.Type && t.Type < comparison_end
}

// IsType reports whether the token can start a type (a primitive type
// keyword or a class name).
func (t Token) IsType() bool {
	switch t.Type {
	case TYPE_INT, TYPE_BOOLEAN, TYPE_STRING, TYPE_VOID, IDENT:
		return true
	}
	return false
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}
