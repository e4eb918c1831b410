package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/token"
	"github.com/lattelang/latte/types"
)

func check(t *testing.T, src string) (*ast.Program, []*token.CompileError) {
	t.Helper()
	program := parse(t, src)
	st, errs := BuildSymbols(program)
	require.Empty(t, errs)
	return program, NewChecker(st).Check(program)
}

func checkOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	program, errs := check(t, src)
	require.Empty(t, errs)
	return program
}

func kinds(errs []*token.CompileError) []token.ErrKind {
	ks := make([]token.ErrKind, len(errs))
	for i, e := range errs {
		ks[i] = e.Kind
	}
	return ks
}

func TestCheckAccumulatesErrors(t *testing.T) {
	_, errs := check(t, `
		int main() {
			int x = true;
			boolean b = 1;
			y = 3;
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{
		token.TypeMismatch,
		token.TypeMismatch,
		token.UndefinedSymbol,
	}, kinds(errs))
}

func TestMissingReturn(t *testing.T) {
	_, errs := check(t, `
		int main() {
			if (readInt() > 0) {
				return 1;
			}
		}
	`)
	require.Equal(t, []token.ErrKind{token.MissingReturn}, kinds(errs))
}

func TestWhileTrueTerminates(t *testing.T) {
	checkOK(t, `
		int main() {
			while (true) {
				printInt(1);
			}
		}
	`)
}

func TestErrorCallTerminates(t *testing.T) {
	checkOK(t, `
		int main() {
			error();
		}
	`)
}

func TestIfBothArmsTerminate(t *testing.T) {
	checkOK(t, `
		int main() {
			if (readInt() > 0) {
				return 1;
			} else {
				return 2;
			}
		}
	`)
}

func TestBareFieldRewrittenToSelf(t *testing.T) {
	program := checkOK(t, `
		class Counter {
			int n;
			int bump() { n = n + 1; return n; }
		}
		int main() { return 0; }
	`)

	cls := program.Defs[0].(*ast.ClassDef)
	body := cls.Methods[0].Body
	assign := body.Statements[0].(*ast.Assign)

	fe, ok := assign.Target.(*ast.FieldExpression)
	require.True(t, ok)
	require.Equal(t, "n", fe.Name)
	_, ok = fe.Object.(*ast.SelfExpression)
	require.True(t, ok)
}

func TestUnqualifiedMethodCallRewritten(t *testing.T) {
	program := checkOK(t, `
		class Greeter {
			void hello() { printString("hi"); }
			void twice() { hello(); hello(); }
		}
		int main() { return 0; }
	`)

	cls := program.Defs[0].(*ast.ClassDef)
	twice := cls.Methods[1].Body
	es := twice.Statements[0].(*ast.ExpressionStatement)

	mc, ok := es.Expression.(*ast.MethodCall)
	require.True(t, ok)
	require.Equal(t, "hello", mc.Name)
	_, ok = mc.Object.(*ast.SelfExpression)
	require.True(t, ok)
}

func TestLocalShadowsField(t *testing.T) {
	program := checkOK(t, `
		class C {
			int x;
			int get() { int x = 5; return x; }
		}
		int main() { return 0; }
	`)

	cls := program.Defs[0].(*ast.ClassDef)
	ret := cls.Methods[0].Body.Statements[1].(*ast.Return)
	_, ok := ret.Value.(*ast.Identifier)
	require.True(t, ok)
}

func TestImplicitUpcastInserted(t *testing.T) {
	program := checkOK(t, `
		class Animal {}
		class Dog extends Animal {}
		int main() {
			Animal a = new Dog;
			return 0;
		}
	`)

	main := program.Defs[2].(*ast.FuncDef)
	decl := main.Body.Statements[0].(*ast.Decl)

	cast, ok := decl.Items[0].Value.(*ast.CastExpression)
	require.True(t, ok)
	require.True(t, cast.Implicit)
	require.Equal(t, types.Class{Name: "Animal"}, cast.Type())
}

func TestDowncastRejected(t *testing.T) {
	_, errs := check(t, `
		class Animal {}
		class Dog extends Animal {}
		int main() {
			Animal a = new Animal;
			Dog d = a;
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.TypeMismatch}, kinds(errs))
}

func TestNullCast(t *testing.T) {
	checkOK(t, `
		class Animal {}
		int main() {
			Animal a = (Animal)null;
			string s = null;
			if (a == null) { printString("empty"); }
			return 0;
		}
	`)
}

func TestArrayLengthReadOnly(t *testing.T) {
	_, errs := check(t, `
		int main() {
			int[] xs = new int[3];
			xs.length = 5;
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.TypeMismatch}, kinds(errs))
}

func TestArityBeforeArgumentTypes(t *testing.T) {
	// a wrong count is one diagnostic; argument types are not piled on
	_, errs := check(t, `
		int add(int a, int b) { return a + b; }
		int main() {
			printInt(add(true));
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.ArityMismatch}, kinds(errs))
}

func TestArgumentMismatch(t *testing.T) {
	_, errs := check(t, `
		int main() {
			printInt("nope");
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.ArgumentMismatch}, kinds(errs))
}

func TestConditionMustBeBoolean(t *testing.T) {
	_, errs := check(t, `
		int main() {
			while (1) { printInt(1); }
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.TypeMismatch}, kinds(errs))
}

func TestStringConcatAndCompare(t *testing.T) {
	checkOK(t, `
		int main() {
			string a = readString();
			string b = a + "!";
			if (a == b) { printString(a); }
			return 0;
		}
	`)
}

func TestForEachElemAssignable(t *testing.T) {
	_, errs := check(t, `
		int main() {
			int[] xs = new int[2];
			for (string s : xs) {
				printString(s);
			}
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.TypeMismatch}, kinds(errs))
}

func TestIncDecRequiresInt(t *testing.T) {
	_, errs := check(t, `
		int main() {
			string s = "a";
			s++;
			return 0;
		}
	`)
	require.Equal(t, []token.ErrKind{token.TypeMismatch}, kinds(errs))
}

func TestRedeclarationInBlock(t *testing.T) {
	_, errs := check(t, `
		int main() {
			int x = 1;
			int x = 2;
			return x;
		}
	`)
	require.Equal(t, []token.ErrKind{token.DuplicateSymbol}, kinds(errs))
}

func TestShadowingInNestedBlock(t *testing.T) {
	checkOK(t, `
		int main() {
			int x = 1;
			{
				int x = 2;
				printInt(x);
			}
			return x;
		}
	`)
}
