package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/lexer"
	"github.com/lattelang/latte/token"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.Program()
	require.Empty(t, p.Errors())
	return program
}

func mainBody(t *testing.T, stmts string) *ast.Block {
	t.Helper()
	program := parse(t, "int main() {\n"+stmts+"\nreturn 0;\n}")
	require.Len(t, program.Defs, 1)
	fd, ok := program.Defs[0].(*ast.FuncDef)
	require.True(t, ok)
	return fd.Body
}

func TestFunctionDef(t *testing.T) {
	program := parse(t, `int add(int a, int b) { return a + b; }`)
	require.Len(t, program.Defs, 1)
	fd := program.Defs[0].(*ast.FuncDef)
	require.Equal(t, "add", fd.Name)
	require.Equal(t, "int", fd.Ret.String())
	require.Len(t, fd.Params, 2)
	require.Equal(t, "a", fd.Params[0].Name)
	require.Len(t, fd.Body.Statements, 1)
}

func TestClassDef(t *testing.T) {
	program := parse(t, `class Dog extends Animal {
  int age;
  string name, tag;
  void speak() { printString("woof"); }
}`)
	cd := program.Defs[0].(*ast.ClassDef)
	require.Equal(t, "Dog", cd.Name)
	require.Equal(t, "Animal", cd.Parent)
	require.Len(t, cd.Fields, 3)
	require.Equal(t, "name", cd.Fields[1].Name)
	require.Equal(t, "tag", cd.Fields[2].Name)
	require.Len(t, cd.Methods, 1)
	require.Equal(t, "speak", cd.Methods[0].Name)
}

func TestDeclVsIndexAssign(t *testing.T) {
	body := mainBody(t, `
Animal a;
Animal[] herd;
herd[0] = a;`)
	require.Len(t, body.Statements, 4)

	decl, ok := body.Statements[0].(*ast.Decl)
	require.True(t, ok)
	require.Equal(t, "Animal", decl.Type.String())

	arrDecl, ok := body.Statements[1].(*ast.Decl)
	require.True(t, ok)
	require.Equal(t, "Animal[]", arrDecl.Type.String())

	assign, ok := body.Statements[2].(*ast.Assign)
	require.True(t, ok)
	_, ok = assign.Target.(*ast.Index)
	require.True(t, ok)
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x = a + b * c;", "x = (a + (b * c));"},
		{"x = a < b == c > d;", "x = ((a < b) == (c > d));"},
		{"b = p || q && r;", "b = (p || (q && r));"},
		{"b = !p && q;", "b = ((!p) && q);"},
		{"x = arr[i] + o.f;", "x = (arr[i] + o.f);"},
	}
	for _, tt := range tests {
		body := mainBody(t, tt.input)
		require.Equal(t, tt.want, body.Statements[0].String(), "input %q", tt.input)
	}
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int x = 2 + 3 * 4;", "int x = 14;"},
		{"int y = -(10 - 4);", "int y = -6;"},
		{"boolean b = 3 < 5;", "boolean b = true;"},
		{"boolean c = true && false;", "boolean c = false;"},
		{"string s = \"a\" + \"b\";", "string s = \"ab\";"},
	}
	for _, tt := range tests {
		body := mainBody(t, tt.input)
		require.Equal(t, tt.want, body.Statements[0].String(), "input %q", tt.input)
	}
}

func TestFoldStopsAtNonConstant(t *testing.T) {
	// the constant subtree folds, the non-constant operand stops it
	body := mainBody(t, "int x = n + 1 * 2;")
	require.Equal(t, "int x = (n + 2);", body.Statements[0].String())
}

func TestConstantDivisionByZero(t *testing.T) {
	p := New(lexer.New(`int main() { int x = 5 / 0; return x; }`))
	p.Program()
	errs := p.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, token.ConstantDivisionByZero, errs[0].Kind)
}

func TestForEach(t *testing.T) {
	body := mainBody(t, "for (int x : arr) printInt(x);")
	fe, ok := body.Statements[0].(*ast.ForEach)
	require.True(t, ok)
	require.Equal(t, "int", fe.ElemType.String())
	require.Equal(t, "x", fe.Var)
}

func TestNewExpressions(t *testing.T) {
	body := mainBody(t, `
Animal a = new Animal;
int[] xs = new int[10];
int[][] grid = new int[][3];`)

	d0 := body.Statements[0].(*ast.Decl)
	no, ok := d0.Items[0].Value.(*ast.NewObject)
	require.True(t, ok)
	require.Equal(t, "Animal", no.Class)

	d1 := body.Statements[1].(*ast.Decl)
	na, ok := d1.Items[0].Value.(*ast.NewArray)
	require.True(t, ok)
	require.Equal(t, "int", na.Elem.String())

	d2 := body.Statements[2].(*ast.Decl)
	na2 := d2.Items[0].Value.(*ast.NewArray)
	require.Equal(t, "int[]", na2.Elem.String())
}

func TestNullCast(t *testing.T) {
	body := mainBody(t, "Animal a = (Animal)null;")
	d := body.Statements[0].(*ast.Decl)
	cast, ok := d.Items[0].Value.(*ast.CastExpression)
	require.True(t, ok)
	require.Equal(t, "Animal", cast.Target.String())
	_, ok = cast.Value.(*ast.NullLiteral)
	require.True(t, ok)
}

func TestMethodCallChain(t *testing.T) {
	body := mainBody(t, "x = o.next().val;")
	assign := body.Statements[0].(*ast.Assign)
	fe, ok := assign.Target.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "x", fe.Value)
	field, ok := assign.Value.(*ast.FieldExpression)
	require.True(t, ok)
	_, ok = field.Object.(*ast.MethodCall)
	require.True(t, ok)
}

func TestSyntaxErrorRecovery(t *testing.T) {
	p := New(lexer.New(`int main() {
  int x = ;
  int y = 2;
  return y;
}`))
	program := p.Program()
	require.NotEmpty(t, p.Errors())
	for _, e := range p.Errors() {
		require.Equal(t, token.SyntaxError, e.Kind)
	}
	// parsing continued past the bad statement
	require.Len(t, program.Defs, 1)
}
