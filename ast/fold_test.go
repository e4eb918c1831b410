package ast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lattelang/latte/token"
)

func intLit(v int32) *IntegerLiteral {
	return &IntegerLiteral{Token: token.Token{Type: token.INT}, Value: v}
}

func TestFoldArithmetic(t *testing.T) {
	e := &Infix{Operator: "*", Left: intLit(6), Right: intLit(7)}
	v, cerr, ok := Fold(e)
	require.True(t, ok)
	require.Nil(t, cerr)
	require.Equal(t, ConstInt, v.Kind)
	require.Equal(t, int32(42), v.Int)
}

func TestFoldDivisionByZero(t *testing.T) {
	e := &Infix{Operator: "/", Token: token.Token{Line: 3, Column: 9}, Left: intLit(5), Right: intLit(0)}
	_, cerr, ok := Fold(e)
	require.True(t, ok)
	require.NotNil(t, cerr)
	require.Equal(t, token.ConstantDivisionByZero, cerr.Kind)
	require.Equal(t, 3, cerr.Token.Line)
}

func TestFoldWrapsAround(t *testing.T) {
	// 32-bit arithmetic wraps like the target's
	e := &Infix{Operator: "+", Left: intLit(2147483647), Right: intLit(1)}
	v, _, ok := Fold(e)
	require.True(t, ok)
	require.Equal(t, int32(-2147483648), v.Int)
}

func TestFoldNeverTouchesCalls(t *testing.T) {
	call := &Call{Name: "f"}
	e := &Infix{Operator: "+", Left: call, Right: intLit(1)}
	_, _, ok := Fold(e)
	require.False(t, ok)
}

func TestFoldStrings(t *testing.T) {
	l := &StringLiteral{Value: "foo"}
	r := &StringLiteral{Value: "bar"}
	v, _, ok := Fold(&Infix{Operator: "+", Left: l, Right: r})
	require.True(t, ok)
	require.Equal(t, "foobar", v.Str)

	v, _, ok = Fold(&Infix{Operator: "==", Left: l, Right: r})
	require.True(t, ok)
	require.Equal(t, ConstBool, v.Kind)
	require.False(t, v.Bool)
}
