package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/types"
)

// Compiler lowers a checked program to LLVM IR. It assumes the symbol
// and checking passes ran clean; any inconsistency it meets is a bug in
// those passes and panics.
type Compiler struct {
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder
	st      *SymbolTable

	// string literal pool, deduplicated, globals named in first-use order
	strings  map[string]llvm.Value
	strOrder []string

	fn  *FuncInfo // function being compiled
	env *Env
}

func NewCompiler(moduleName string, st *SymbolTable) *Compiler {
	ctx := llvm.NewContext()
	return &Compiler{
		Context: ctx,
		Module:  ctx.NewModule(moduleName),
		builder: ctx.NewBuilder(),
		st:      st,
		strings: map[string]llvm.Value{},
	}
}

/// Compile emits the whole module: class layouts and vtables first, then
// every function and method body in declaration order.
func (c *Compiler) Compile(program *ast.Program) {
	c.declareClasses()
	c.defineClassBodies()
	c.declareFunctions()
	c.defineVTables()

	for _, name := range c.st.FuncOrder {
		fi := c.st.Funcs[name]
		if fi.Def != nil {
			c.compileFunc(fi)
		}
	}
	for _, name := range c.st.ClassOrder {
		ci := c.st.Classes[name]
		for _, mi := range ci.Methods {
			if mi.Class == ci {
				c.compileFunc(mi)
			}
		}
	}
}

// GenerateIR returns the textual LLVM IR for the compiled module.
func (c *Compiler) GenerateIR() string {
	return c.Module.String()
}

func (c *Compiler) ptrType() llvm.Type {
	return llvm.PointerType(c.Context.Int8Type(), 0)
}

// llvmType maps a semantic type to its LLVM representation. Reference
// types are opaque pointers.
func (c *Compiler) llvmType(t types.Type) llvm.Type {
	switch t.Kind() {
	case types.VoidKind:
		return c.Context.VoidType()
	case types.IntKind:
		return c.Context.Int32Type()
	case types.BoolKind:
		return c.Context.Int1Type()
	}
	return c.ptrType()
}

func (c *Compiler) declareClasses() {
	for _, name := range c.st.ClassOrder {
		ci := c.st.Classes[name]
		ci.Struct = c.Context.StructCreateNamed(ci.Name)
		ci.VTableType = c.Context.StructCreateNamed(ci.Name + ".vtable")
	}
}

// defineClassBodies fills in struct bodies: the vtable pointer at index
// 0, then all fields parent-first, matching the offsets in ClassInfo.
func (c *Compiler) defineClassBodies() {
	for _, name := range c.st.ClassOrder {
		ci := c.st.Classes[name]
		fields := make([]llvm.Type, 0, len(ci.Fields)+1)
		fields = append(fields, c.ptrType())
		for _, f := range ci.Fields {
			fields = append(fields, c.llvmType(f.Type))
		}
		ci.Struct.StructSetBody(fields, false)

		slots := make([]llvm.Type, len(ci.Methods))
		for i := range slots {
			slots[i] = c.ptrType()
		}
		ci.VTableType.StructSetBody(slots, false)
	}
}

func (c *Compiler) fnType(fi *FuncInfo) llvm.Type {
	params := make([]llvm.Type, 0, len(fi.Params)+1)
	if fi.Class != nil {
		params = append(params, c.ptrType())
	}
	for _, p := range fi.Params {
		params = append(params, c.llvmType(p))
	}
	return llvm.FunctionType(c.llvmType(fi.Ret), params, false)
}

func (c *Compiler) declareFunctions() {
	for _, name := range c.st.FuncOrder {
		fi := c.st.Funcs[name]
		if fi.Def == nil {
			continue
		}
		fi.FnType = c.fnType(fi)
		fi.Fn = llvm.AddFunction(c.Module, fi.Symbol(), fi.FnType)
	}
	for _, name := range c.st.ClassOrder {
		ci := c.st.Classes[name]
		for _, mi := range ci.Methods {
			if mi.Class == ci {
				mi.FnType = c.fnType(mi)
				mi.Fn = llvm.AddFunction(c.Module, mi.Symbol(), mi.FnType)
			}
		}
	}
}

// defineVTables emits one private constant per class holding its method
// table in slot order. Subclasses inherit FuncInfo entries directly, so
// an un-overridden slot points at the superclass implementation.
func (c *Compiler) defineVTables() {
	for _, name := range c.st.ClassOrder {
		ci := c.st.Classes[name]
		slots := make([]llvm.Value, len(ci.Methods))
		for i, mi := range ci.Methods {
			slots[i] = mi.Fn
		}
		data := llvm.AddGlobal(c.Module, ci.VTableType, ci.Name+".vtable.data")
		data.SetInitializer(llvm.ConstNamedStruct(ci.VTableType, slots))
		data.SetGlobalConstant(true)
		data.SetLinkage(llvm.PrivateLinkage)
		ci.VTableData = data
	}
}

// globalString interns a literal in the module's string pool. The empty
// string is represented as a null pointer, so it never allocates and
// compares equal to the default value of string fields.
func (c *Compiler) globalString(s string) llvm.Value {
	if s == "" {
		return llvm.ConstPointerNull(c.ptrType())
	}
	if g, ok := c.strings[s]; ok {
		return g
	}
	data := llvm.ConstString(s, true)
	g := llvm.AddGlobal(c.Module, data.Type(), fmt.Sprintf(".str.%d", len(c.strOrder)))
	g.SetInitializer(data)
	g.SetGlobalConstant(true)
	g.SetLinkage(llvm.PrivateLinkage)
	g.SetUnnamedAddr(true)
	c.strings[s] = g
	c.strOrder = append(c.strOrder, s)
	return g
}

// constInt32 is an i32 constant; negative values are sign-extended.
func (c *Compiler) constInt32(v int32) llvm.Value {
	return llvm.ConstInt(c.Context.Int32Type(), uint64(uint32(v)), true)
}

func (c *Compiler) constBool(v bool) llvm.Value {
	n := uint64(0)
	if v {
		n = 1
	}
	return llvm.ConstInt(c.Context.Int1Type(), n, false)
}

// zeroValue is the default for declared-but-uninitialized variables and
// freshly allocated fields: 0, false, null, and the empty string.
func (c *Compiler) zeroValue(t types.Type) llvm.Value {
	switch t.Kind() {
	case types.IntKind:
		return c.constInt32(0)
	case types.BoolKind:
		return c.constBool(false)
	}
	return llvm.ConstPointerNull(c.ptrType())
}

// elemSize is the byte size of an array element of type t.
func elemSize(t types.Type) int32 {
	return int32(fieldSize(t))
}

func classOf(c *Compiler, t types.Type) *ClassInfo {
	cls, ok := t.(types.Class)
	if !ok {
		panic(fmt.Sprintf("expected a class type, got %s", t))
	}
	ci, ok := c.st.Classes[cls.Name]
	if !ok {
		panic("unknown class " + cls.Name)
	}
	return ci
}
