package token

import "fmt"

// ErrKind classifies a diagnostic so tests and tooling can match on the
// class of error rather than on message text.
type ErrKind int

const (
	SyntaxError ErrKind = iota
	DuplicateSymbol
	UnknownType
	CyclicInheritance
	FieldRedefinition
	IncompatibleOverride
	UndefinedSymbol
	UnknownMember
	ArityMismatch
	ArgumentMismatch
	TypeMismatch
	MissingReturn
	ConstantDivisionByZero
)

var kinds = [...]string{
	SyntaxError:            "syntax error",
	DuplicateSymbol:        "duplicate symbol",
	UnknownType:            "unknown type",
	CyclicInheritance:      "cyclic inheritance",
	FieldRedefinition:      "field redefinition",
	IncompatibleOverride:   "incompatible override",
	UndefinedSymbol:        "undefined symbol",
	UnknownMember:          "unknown member",
	ArityMismatch:          "arity mismatch",
	ArgumentMismatch:       "argument mismatch",
	TypeMismatch:           "type mismatch",
	MissingReturn:          "missing return",
	ConstantDivisionByZero: "constant division by zero",
}

func (k ErrKind) String() string {
	if 0 <= k && int(k) < len(kinds) {
		return kinds[k]
	}
	return fmt.Sprintf("errkind(%d)", int(k))
}

// CompileError is a single diagnostic anchored at a token. Passes
// accumulate these instead of stopping at the first failure.
type CompileError struct {
	Kind  ErrKind
	Token Token
	Msg   string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", ce.Token.Line, ce.Token.Column, ce.Kind, ce.Msg)
}
