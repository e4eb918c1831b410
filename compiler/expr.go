package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/types"
)

func (c *Compiler) compileExpr(expr ast.Expression) llvm.Value {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return c.constInt32(e.Value)
	case *ast.BooleanLiteral:
		return c.constBool(e.Value)
	case *ast.StringLiteral:
		return c.globalString(e.Value)
	case *ast.NullLiteral:
		return llvm.ConstPointerNull(c.ptrType())
	case *ast.SelfExpression:
		return c.fn.Fn.Param(0)
	case *ast.Identifier:
		v, _, ok := c.env.lookup(e.Value)
		if !ok {
			panic("undefined variable " + e.Value)
		}
		return v
	case *ast.Prefix:
		return c.compilePrefix(e)
	case *ast.Infix:
		return c.compileInfix(e)
	case *ast.Call:
		return c.compileCall(e)
	case *ast.MethodCall:
		return c.compileMethodCall(e)
	case *ast.FieldExpression:
		if e.IsArrayLength {
			return c.arrayLength(c.compileExpr(e.Object))
		}
		addr, ft := c.fieldAddr(e)
		return c.builder.CreateLoad(c.llvmType(ft), addr, e.Name)
	case *ast.Index:
		addr := c.indexAddr(e)
		return c.builder.CreateLoad(c.llvmType(e.Type()), addr, "")
	case *ast.NewObject:
		return c.compileNewObject(e)
	case *ast.NewArray:
		return c.compileNewArray(e)
	case *ast.CastExpression:
		// pointers are opaque; an upcast changes only the static type
		return c.compileExpr(e.Value)
	}
	panic(fmt.Sprintf("cannot compile expression %T", expr))
}

func (c *Compiler) compilePrefix(e *ast.Prefix) llvm.Value {
	switch e.Operator {
	case "-":
		return c.builder.CreateSub(c.constInt32(0), c.compileExpr(e.Right), "neg")
	case "!":
		return c.builder.CreateNot(c.compileExpr(e.Right), "not")
	}
	panic("unknown prefix operator " + e.Operator)
}

var intCmp = map[string]llvm.IntPredicate{
	"==": llvm.IntEQ,
	"!=": llvm.IntNE,
	"<":  llvm.IntSLT,
	"<=": llvm.IntSLE,
	">":  llvm.IntSGT,
	">=": llvm.IntSGE,
}

func (c *Compiler) compileInfix(e *ast.Infix) llvm.Value {
	switch e.Operator {
	case "&&", "||":
		return c.compileBoolValue(e)
	}

	lt := e.Left.Type()
	if lt.Kind() == types.StrKind || e.Right.Type().Kind() == types.StrKind {
		return c.compileStringOp(e)
	}

	l := c.compileExpr(e.Left)
	r := c.compileExpr(e.Right)
	switch e.Operator {
	case "+":
		return c.builder.CreateAdd(l, r, "add")
	case "-":
		return c.builder.CreateSub(l, r, "sub")
	case "*":
		return c.builder.CreateMul(l, r, "mul")
	case "/":
		return c.builder.CreateSDiv(l, r, "div")
	case "%":
		return c.builder.CreateSRem(l, r, "rem")
	}
	if pred, ok := intCmp[e.Operator]; ok {
		// ==/!= on booleans and reference types also land here
		return c.builder.CreateICmp(pred, l, r, "cmp")
	}
	panic("unknown infix operator " + e.Operator)
}

// compileStringOp lowers string concatenation and equality onto runtime
// helpers, which treat a null pointer as the empty string.
func (c *Compiler) compileStringOp(e *ast.Infix) llvm.Value {
	l := c.compileExpr(e.Left)
	r := c.compileExpr(e.Right)
	var helper string
	switch e.Operator {
	case "+":
		helper = STR_CONCAT
	case "==":
		helper = STR_EQ
	case "!=":
		helper = STR_NE
	default:
		panic("operator " + e.Operator + " not defined for strings")
	}
	ft, fn := c.getRuntimeFn(helper)
	return c.builder.CreateCall(ft, fn, []llvm.Value{l, r}, "")
}

// compileBoolValue materializes a short-circuit condition as an i1: the
// condition branches to one of two stub blocks that merge into a phi.
func (c *Compiler) compileBoolValue(e ast.Expression) llvm.Value {
	fn := c.fn.Fn
	trueBB := llvm.AddBasicBlock(fn, "bool.true")
	falseBB := llvm.AddBasicBlock(fn, "bool.false")
	contBB := llvm.AddBasicBlock(fn, "bool.cont")

	c.compileCondBranch(e, trueBB, falseBB)
	c.builder.SetInsertPointAtEnd(trueBB)
	c.builder.CreateBr(contBB)
	c.builder.SetInsertPointAtEnd(falseBB)
	c.builder.CreateBr(contBB)

	c.builder.SetInsertPointAtEnd(contBB)
	phi := c.builder.CreatePHI(c.Context.Int1Type(), "bool")
	phi.AddIncoming(
		[]llvm.Value{c.constBool(true), c.constBool(false)},
		[]llvm.BasicBlock{trueBB, falseBB},
	)
	return phi
}

func (c *Compiler) compileCall(e *ast.Call) llvm.Value {
	fi, ok := c.st.Funcs[e.Name]
	if !ok {
		panic("call to undefined function " + e.Name)
	}

	args := make([]llvm.Value, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, c.compileExpr(a))
	}

	var ft llvm.Type
	var fn llvm.Value
	if fi.Def == nil {
		ft, fn = c.getRuntimeFn(e.Name)
	} else {
		ft, fn = fi.FnType, fi.Fn
	}
	return c.builder.CreateCall(ft, fn, args, "")
}

// compileMethodCall dispatches through the vtable of the receiver's
// static class; the slot index is fixed at symbol-building time, so a
// subclass receiver transparently runs its own override.
func (c *Compiler) compileMethodCall(e *ast.MethodCall) llvm.Value {
	obj := c.compileExpr(e.Object)
	ci := classOf(c, e.Object.Type())
	mi, ok := ci.Method(e.Name)
	if !ok {
		panic(fmt.Sprintf("class %s has no method %s", ci.Name, e.Name))
	}

	vtAddr := c.builder.CreateStructGEP(ci.Struct, obj, 0, "vt.addr")
	vt := c.builder.CreateLoad(c.ptrType(), vtAddr, "vt")
	slotAddr := c.builder.CreateStructGEP(ci.VTableType, vt, mi.Slot, e.Name+".slot")
	fnp := c.builder.CreateLoad(c.ptrType(), slotAddr, e.Name+".fn")

	args := make([]llvm.Value, 0, len(e.Args)+1)
	args = append(args, obj)
	for _, a := range e.Args {
		args = append(args, c.compileExpr(a))
	}
	return c.builder.CreateCall(mi.FnType, fnp, args, "")
}

// compileNewObject allocates a zeroed object and installs the vtable
// pointer; zeroed memory gives every field its default value.
func (c *Compiler) compileNewObject(e *ast.NewObject) llvm.Value {
	ci := classOf(c, e.Type())
	ft, fn := c.getRuntimeFn(MALLOC)
	obj := c.builder.CreateCall(ft, fn, []llvm.Value{c.constInt32(int32(ci.Size))}, "new."+ci.Name)
	vtAddr := c.builder.CreateStructGEP(ci.Struct, obj, 0, "")
	c.builder.CreateStore(ci.VTableData, vtAddr)
	return obj
}

func (c *Compiler) compileNewArray(e *ast.NewArray) llvm.Value {
	elem := e.Type().(types.Array).Elem
	length := c.compileExpr(e.Length)
	ft, fn := c.getRuntimeFn(ALLOC_ARRAY)
	return c.builder.CreateCall(ft, fn, []llvm.Value{length, c.constInt32(elemSize(elem))}, "new.arr")
}

// arrayLength reads the i32 length stored immediately before the array
// payload.
func (c *Compiler) arrayLength(arr llvm.Value) llvm.Value {
	i32 := c.Context.Int32Type()
	addr := c.builder.CreateGEP(i32, arr, []llvm.Value{c.constInt32(-1)}, "len.addr")
	return c.builder.CreateLoad(i32, addr, "len")
}

// lvalueAddr computes the address of a field or array element target.
// Plain variables are SSA values and never have addresses.
func (c *Compiler) lvalueAddr(target ast.Expression) llvm.Value {
	switch t := target.(type) {
	case *ast.FieldExpression:
		addr, _ := c.fieldAddr(t)
		return addr
	case *ast.Index:
		return c.indexAddr(t)
	}
	panic(fmt.Sprintf("%T is not an addressable target", target))
}

func (c *Compiler) fieldAddr(e *ast.FieldExpression) (llvm.Value, types.Type) {
	obj := c.compileExpr(e.Object)
	ci := classOf(c, e.Object.Type())
	fi, ok := ci.Field(e.Name)
	if !ok {
		panic(fmt.Sprintf("class %s has no field %s", ci.Name, e.Name))
	}
	return c.builder.CreateStructGEP(ci.Struct, obj, fi.Index, e.Name+".addr"), fi.Type
}

func (c *Compiler) indexAddr(e *ast.Index) llvm.Value {
	arr := c.compileExpr(e.Left)
	idx := c.compileExpr(e.Idx)
	elemLL := c.llvmType(e.Left.Type().(types.Array).Elem)
	return c.builder.CreateGEP(elemLL, arr, []llvm.Value{idx}, "elem.addr")
}
