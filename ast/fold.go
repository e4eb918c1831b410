package ast

import (
	"fmt"
	"strconv"

	"github.com/lattelang/latte/token"
)

// ConstValue is the result of folding an expression at compile time.
// Exactly one of the payload fields is meaningful, per Kind.
type ConstValue struct {
	Kind ConstKind
	Int  int32
	Bool bool
	Str  string
}

type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstBool
	ConstStr
)

// Fold evaluates expr if every leaf is a literal. The bool result reports
// whether folding applied; a non-nil error means the expression is
// constant but invalid (division or modulo by a constant zero).
// Identifiers, calls, allocations, field and index reads never fold.
func Fold(expr Expression) (ConstValue, *token.CompileError, bool) {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return ConstValue{Kind: ConstInt, Int: e.Value}, nil, true
	case *BooleanLiteral:
		return ConstValue{Kind: ConstBool, Bool: e.Value}, nil, true
	case *StringLiteral:
		return ConstValue{Kind: ConstStr, Str: e.Value}, nil, true
	case *Prefix:
		return foldPrefix(e)
	case *Infix:
		return foldInfix(e)
	}
	return ConstValue{}, nil, false
}

func foldPrefix(e *Prefix) (ConstValue, *token.CompileError, bool) {
	v, cerr, ok := Fold(e.Right)
	if !ok || cerr != nil {
		return ConstValue{}, cerr, ok
	}
	switch e.Operator {
	case "-":
		if v.Kind == ConstInt {
			return ConstValue{Kind: ConstInt, Int: -v.Int}, nil, true
		}
	case "!":
		if v.Kind == ConstBool {
			return ConstValue{Kind: ConstBool, Bool: !v.Bool}, nil, true
		}
	}
	return ConstValue{}, nil, false
}

func foldInfix(e *Infix) (ConstValue, *token.CompileError, bool) {
	l, cerr, ok := Fold(e.Left)
	if !ok || cerr != nil {
		return ConstValue{}, cerr, ok
	}
	r, cerr, ok := Fold(e.Right)
	if !ok || cerr != nil {
		return ConstValue{}, cerr, ok
	}

	if l.Kind == ConstInt && r.Kind == ConstInt {
		return foldIntOp(e, l.Int, r.Int)
	}
	if l.Kind == ConstBool && r.Kind == ConstBool {
		return foldBoolOp(e, l.Bool, r.Bool)
	}
	if l.Kind == ConstStr && r.Kind == ConstStr {
		return foldStrOp(e, l.Str, r.Str)
	}
	return ConstValue{}, nil, false
}

func foldIntOp(e *Infix, l, r int32) (ConstValue, *token.CompileError, bool) {
	switch e.Operator {
	case "+":
		return ConstValue{Kind: ConstInt, Int: l + r}, nil, true
	case "-":
		return ConstValue{Kind: ConstInt, Int: l - r}, nil, true
	case "*":
		return ConstValue{Kind: ConstInt, Int: l * r}, nil, true
	case "/", "%":
		if r == 0 {
			ce := &token.CompileError{
				Kind:  token.ConstantDivisionByZero,
				Token: e.Token,
				Msg:   fmt.Sprintf("%d %s 0", l, e.Operator),
			}
			return ConstValue{}, ce, true
		}
		if e.Operator == "/" {
			return ConstValue{Kind: ConstInt, Int: l / r}, nil, true
		}
		return ConstValue{Kind: ConstInt, Int: l % r}, nil, true
	case "==":
		return ConstValue{Kind: ConstBool, Bool: l == r}, nil, true
	case "!=":
		return ConstValue{Kind: ConstBool, Bool: l != r}, nil, true
	case "<":
		return ConstValue{Kind: ConstBool, Bool: l < r}, nil, true
	case "<=":
		return ConstValue{Kind: ConstBool, Bool: l <= r}, nil, true
	case ">":
		return ConstValue{Kind: ConstBool, Bool: l > r}, nil, true
	case ">=":
		return ConstValue{Kind: ConstBool, Bool: l >= r}, nil, true
	}
	return ConstValue{}, nil, false
}

func foldBoolOp(e *Infix, l, r bool) (ConstValue, *token.CompileError, bool) {
	switch e.Operator {
	case "&&":
		return ConstValue{Kind: ConstBool, Bool: l && r}, nil, true
	case "||":
		return ConstValue{Kind: ConstBool, Bool: l || r}, nil, true
	case "==":
		return ConstValue{Kind: ConstBool, Bool: l == r}, nil, true
	case "!=":
		return ConstValue{Kind: ConstBool, Bool: l != r}, nil, true
	}
	return ConstValue{}, nil, false
}

func foldStrOp(e *Infix, l, r string) (ConstValue, *token.CompileError, bool) {
	switch e.Operator {
	case "+":
		return ConstValue{Kind: ConstStr, Str: l + r}, nil, true
	case "==":
		return ConstValue{Kind: ConstBool, Bool: l == r}, nil, true
	case "!=":
		return ConstValue{Kind: ConstBool, Bool: l != r}, nil, true
	}
	return ConstValue{}, nil, false
}

// Literal rebuilds v as a literal node carrying tok's position, so folded
// subtrees keep pointing at their source location.
func (v ConstValue) Literal(tok token.Token) Expression {
	switch v.Kind {
	case ConstInt:
		lit := strconv.FormatInt(int64(v.Int), 10)
		return &IntegerLiteral{
			Token: token.Token{Type: token.INT, Literal: lit, Line: tok.Line, Column: tok.Column, Offset: tok.Offset},
			Value: v.Int,
		}
	case ConstBool:
		lit := "false"
		typ := token.FALSE
		if v.Bool {
			lit = "true"
			typ = token.TRUE
		}
		return &BooleanLiteral{
			Token: token.Token{Type: typ, Literal: lit, Line: tok.Line, Column: tok.Column, Offset: tok.Offset},
			Value: v.Bool,
		}
	case ConstStr:
		return &StringLiteral{
			Token: token.Token{Type: token.STRING, Literal: v.Str, Line: tok.Line, Column: tok.Column, Offset: tok.Offset},
			Value: v.Str,
		}
	}
	panic("unreachable const kind")
}
