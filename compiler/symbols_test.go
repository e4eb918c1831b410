package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/lexer"
	"github.com/lattelang/latte/parser"
	"github.com/lattelang/latte/token"
	"github.com/lattelang/latte/types"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	program := p.Program()
	require.Empty(t, p.Errors())
	return program
}

func build(t *testing.T, src string) *SymbolTable {
	t.Helper()
	st, errs := BuildSymbols(parse(t, src))
	require.Empty(t, errs)
	return st
}

func buildErrs(t *testing.T, src string) []*token.CompileError {
	t.Helper()
	_, errs := BuildSymbols(parse(t, src))
	return errs
}

func TestLayoutExtendsParent(t *testing.T) {
	st := build(t, `
		class Animal { int age; string name; }
		class Dog extends Animal { boolean tame; }
		int main() { return 0; }
	`)

	animal := st.Classes["Animal"]
	dog := st.Classes["Dog"]

	age, ok := animal.Field("age")
	require.True(t, ok)
	require.Equal(t, 1, age.Index)
	require.Equal(t, 8, age.Offset)

	name, ok := animal.Field("name")
	require.True(t, ok)
	require.Equal(t, 2, name.Index)
	require.Equal(t, 16, name.Offset)
	require.Equal(t, 24, animal.Size)

	// inherited fields keep the parent's index and offset
	dage, ok := dog.Field("age")
	require.True(t, ok)
	require.Equal(t, age.Index, dage.Index)
	require.Equal(t, age.Offset, dage.Offset)

	tame, ok := dog.Field("tame")
	require.True(t, ok)
	require.Equal(t, 3, tame.Index)
	require.Equal(t, 24, tame.Offset)
	require.Equal(t, 32, dog.Size)
}

func TestBoolPacking(t *testing.T) {
	st := build(t, `
		class Flags { boolean a; boolean b; int n; }
		int main() { return 0; }
	`)
	flags := st.Classes["Flags"]
	a, _ := flags.Field("a")
	b, _ := flags.Field("b")
	n, _ := flags.Field("n")
	require.Equal(t, 8, a.Offset)
	require.Equal(t, 9, b.Offset)
	require.Equal(t, 12, n.Offset)
	require.Equal(t, 16, flags.Size)
}

func TestVTableSlots(t *testing.T) {
	st := build(t, `
		class Animal {
			void speak() { printString("..."); }
			int legs() { return 4; }
		}
		class Dog extends Animal {
			void speak() { printString("woof"); }
			void fetch() { printString("!"); }
		}
		int main() { return 0; }
	`)

	animal := st.Classes["Animal"]
	dog := st.Classes["Dog"]

	require.Len(t, animal.Methods, 2)
	require.Len(t, dog.Methods, 3)

	// the override occupies the inherited slot
	speak, _ := dog.Method("speak")
	require.Equal(t, 0, speak.Slot)
	require.Equal(t, dog, speak.Class)
	require.Equal(t, "Dog.speak", speak.Symbol())

	// the inherited method keeps the parent's entry
	legs, _ := dog.Method("legs")
	require.Equal(t, 1, legs.Slot)
	require.Equal(t, animal, legs.Class)

	fetch, _ := dog.Method("fetch")
	require.Equal(t, 2, fetch.Slot)
}

func TestDuplicateSymbolSharedNamespace(t *testing.T) {
	errs := buildErrs(t, `
		class foo {}
		int foo() { return 0; }
		int main() { return 0; }
	`)
	require.Len(t, errs, 1)
	require.Equal(t, token.DuplicateSymbol, errs[0].Kind)
}

func TestBuiltinRedefinition(t *testing.T) {
	errs := buildErrs(t, `
		void printInt(int n) {}
		int main() { return 0; }
	`)
	require.Len(t, errs, 1)
	require.Equal(t, token.DuplicateSymbol, errs[0].Kind)
}

func TestCyclicInheritance(t *testing.T) {
	errs := buildErrs(t, `
		class A extends B {}
		class B extends A {}
		int main() { return 0; }
	`)
	require.Len(t, errs, 2)
	for _, e := range errs {
		require.Equal(t, token.CyclicInheritance, e.Kind)
	}
}

func TestUnknownParent(t *testing.T) {
	errs := buildErrs(t, `
		class A extends Ghost {}
		int main() { return 0; }
	`)
	require.Len(t, errs, 1)
	require.Equal(t, token.UnknownType, errs[0].Kind)
}

func TestFieldRedefinition(t *testing.T) {
	errs := buildErrs(t, `
		class A { int x; }
		class B extends A { string x; }
		int main() { return 0; }
	`)
	require.Len(t, errs, 1)
	require.Equal(t, token.FieldRedefinition, errs[0].Kind)
}

func TestIncompatibleOverride(t *testing.T) {
	errs := buildErrs(t, `
		class A { int f(int x) { return x; } }
		class B extends A { boolean f(int x) { return true; } }
		int main() { return 0; }
	`)
	require.Len(t, errs, 1)
	require.Equal(t, token.IncompatibleOverride, errs[0].Kind)
}

func TestOverrideParamsAreInvariant(t *testing.T) {
	// narrowing a parameter type is not an override
	errs := buildErrs(t, `
		class A {}
		class B extends A {}
		class P { void take(A a) {} }
		class Q extends P { void take(B b) {} }
		int main() { return 0; }
	`)
	require.Len(t, errs, 1)
	require.Equal(t, token.IncompatibleOverride, errs[0].Kind)
}

func TestMainRequired(t *testing.T) {
	errs := buildErrs(t, `int helper() { return 1; }`)
	require.Len(t, errs, 1)
	require.Equal(t, token.UndefinedSymbol, errs[0].Kind)
}

func TestMainSignature(t *testing.T) {
	errs := buildErrs(t, `void main(int x) {}`)
	require.Len(t, errs, 1)
	require.Equal(t, token.TypeMismatch, errs[0].Kind)
}

func TestAssignable(t *testing.T) {
	st := build(t, `
		class Animal {}
		class Dog extends Animal {}
		int main() { return 0; }
	`)

	animal := types.Class{Name: "Animal"}
	dog := types.Class{Name: "Dog"}

	require.True(t, st.Assignable(animal, dog))
	require.False(t, st.Assignable(dog, animal))
	require.True(t, st.Assignable(animal, types.Null{}))
	require.True(t, st.Assignable(types.Str{}, types.Null{}))
	require.False(t, st.Assignable(types.Int{}, types.Null{}))

	// arrays are covariant
	require.True(t, st.Assignable(types.Array{Elem: animal}, types.Array{Elem: dog}))
	require.False(t, st.Assignable(types.Array{Elem: dog}, types.Array{Elem: animal}))
}
