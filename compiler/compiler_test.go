package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func compileIR(t *testing.T, src string) string {
	t.Helper()
	program := parse(t, src)
	st, errs := BuildSymbols(program)
	require.Empty(t, errs)
	require.Empty(t, NewChecker(st).Check(program))
	c := NewCompiler("test", st)
	c.Compile(program)
	return c.GenerateIR()
}

// irLine returns the first line of ir containing substr.
func irLine(t *testing.T, ir, substr string) string {
	t.Helper()
	for _, line := range strings.Split(ir, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	t.Fatalf("no line containing %q in:\n%s", substr, ir)
	return ""
}

func TestVirtualDispatch(t *testing.T) {
	ir := compileIR(t, `
		class Animal {
			void speak() { printString("..."); }
			int legs() { return 4; }
		}
		class Dog extends Animal {
			void speak() { printString("woof"); }
		}
		int main() {
			Animal a = new Dog;
			a.speak();
			return 0;
		}
	`)

	require.Contains(t, ir, "define void @Animal.speak(ptr %self)")
	require.Contains(t, ir, "define void @Dog.speak(ptr %self)")

	// the override fills slot 0; the inherited method keeps Animal's entry
	vt := irLine(t, ir, "@Dog.vtable.data = ")
	require.Contains(t, vt, "@Dog.speak")
	require.Contains(t, vt, "@Animal.legs")

	// the call site loads through the vtable instead of naming Dog.speak
	require.Contains(t, ir, "%speak.fn = load ptr")
	main := ir[strings.Index(ir, "define i32 @main"):]
	require.NotContains(t, main, "call void @Dog.speak")
}

func TestZeroInitialization(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			int x;
			string s;
			printInt(x);
			printString(s);
			return 0;
		}
	`)
	require.Contains(t, ir, "call void @printInt(i32 0)")
	require.Contains(t, ir, "call void @printString(ptr null)")
}

func TestWhileFalseElided(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			while (false) {
				printInt(1);
			}
			return 0;
		}
	`)
	require.NotContains(t, ir, "while")
	require.NotContains(t, ir, "printInt")
}

func TestConstantIfElidesDeadBranch(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			if (2 > 3) {
				printInt(1);
			} else {
				printInt(2);
			}
			return 0;
		}
	`)
	require.NotContains(t, ir, "if.then")
	require.NotContains(t, ir, "if.else")
	require.Contains(t, ir, "call void @printInt(i32 2)")
	require.NotContains(t, ir, "printInt(i32 1)")
}

func TestStringPoolDedup(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			printString("hello");
			printString("hello");
			printString("");
			return 0;
		}
	`)
	require.Equal(t, 1, strings.Count(ir, `c"hello\00"`))
	require.Contains(t, ir, "@.str.0")
	// the empty string is the null pointer, not a pool entry
	require.Contains(t, ir, "call void @printString(ptr null)")
	require.NotContains(t, ir, `c"\00"`)
}

func TestIfMergePhiOnlyForChangedVariables(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			int a = 1;
			int b = 2;
			if (readInt() > 0) {
				a = 5;
			}
			printInt(a);
			printInt(b);
			return 0;
		}
	`)
	// only a differs between the arms, so the merge has exactly one phi
	require.Equal(t, 1, strings.Count(ir, "= phi i32"))
	require.Contains(t, ir, "%a = phi i32")
}

func TestWhileHeaderPhis(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			int i = 0;
			int total = 7;
			while (i < 10) {
				i++;
			}
			printInt(total);
			return 0;
		}
	`)
	// every visible variable gets a header phi, assigned in the body or not
	require.Contains(t, ir, "%i = phi i32")
	require.Contains(t, ir, "%total = phi i32")
	require.Equal(t, 2, strings.Count(ir, "= phi i32"))
	// each phi carries the preheader edge and the latch edge
	phi := irLine(t, ir, "%total = phi i32")
	require.Contains(t, phi, "%entry")
	require.Contains(t, phi, "%while.body")
}

func TestForEachLowering(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			int[] xs = new int[3];
			int sum = 0;
			for (int x : xs) {
				sum = sum + x;
			}
			printInt(sum);
			return 0;
		}
	`)
	require.Contains(t, ir, "for.cond")
	require.Contains(t, ir, "%x.idx = phi i32")
	require.Contains(t, ir, "call ptr @_lat_alloc_array(i32 3, i32 4)")
	// the bound comes from the length slot just below the payload
	require.Contains(t, ir, "i32 -1")
}

func TestErrorLowersToUnreachable(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			error();
		}
	`)
	require.Contains(t, ir, "call void @error()")
	require.Contains(t, ir, "unreachable")
}

func TestShortCircuitBlocks(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			int n = readInt();
			if (n > 0 && n < 10) {
				printInt(n);
			}
			return 0;
		}
	`)
	require.Contains(t, ir, "and.rhs")
}

func TestStringRuntimeCalls(t *testing.T) {
	ir := compileIR(t, `
		int main() {
			string a = readString();
			string b = a + "!";
			if (a == b) {
				printString(b);
			}
			return 0;
		}
	`)
	require.Contains(t, ir, "call ptr @_lat_string_concat(")
	require.Contains(t, ir, "call i1 @_lat_string_eq(")
}

func TestObjectAllocation(t *testing.T) {
	ir := compileIR(t, `
		class Point { int x; int y; }
		int main() {
			Point p = new Point;
			p.x = 3;
			printInt(p.x);
			return 0;
		}
	`)
	// 8-byte vtable pointer plus two ints, padded to pointer alignment
	require.Contains(t, ir, "call ptr @_lat_malloc(i32 16)")
	// the vtable pointer is installed even for method-less classes
	require.Contains(t, ir, "@Point.vtable.data")
	require.Contains(t, ir, "%x.addr = getelementptr inbounds %Point")
}

func TestDeterministicOutput(t *testing.T) {
	src := `
		class Animal { void speak() { printString("..."); } }
		class Dog extends Animal { void speak() { printString("woof"); } }
		int helper(int n) { return n * 2; }
		int main() {
			Animal a = new Dog;
			a.speak();
			int i = 0;
			while (i < helper(3)) {
				i++;
			}
			printString("done");
			printString("done");
			return i;
		}
	`
	first := compileIR(t, src)
	second := compileIR(t, src)
	require.Equal(t, first, second)
}
