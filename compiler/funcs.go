package compiler

import "tinygo.org/x/go-llvm"

const (
	// I/O builtins, callable from user code
	PRINT_INT    = "printInt"
	PRINT_STRING = "printString"
	ERROR_FN     = "error"
	READ_INT     = "readInt"
	READ_STRING  = "readString"

	// allocation and string helpers emitted by the code generator
	MALLOC      = "_lat_malloc"
	ALLOC_ARRAY = "_lat_alloc_array"
	STR_CONCAT  = "_lat_string_concat"
	STR_EQ      = "_lat_string_eq"
	STR_NE      = "_lat_string_ne"
)

// runtimeFnType returns the LLVM function type of a runtime helper.
func (c *Compiler) runtimeFnType(name string) llvm.Type {
	ptr := c.ptrType()
	i32 := c.Context.Int32Type()
	i1 := c.Context.Int1Type()
	void := c.Context.VoidType()

	switch name {
	case PRINT_INT:
		return llvm.FunctionType(void, []llvm.Type{i32}, false)
	case PRINT_STRING:
		return llvm.FunctionType(void, []llvm.Type{ptr}, false)
	case ERROR_FN:
		return llvm.FunctionType(void, nil, false)
	case READ_INT:
		return llvm.FunctionType(i32, nil, false)
	case READ_STRING:
		return llvm.FunctionType(ptr, nil, false)
	case MALLOC:
		return llvm.FunctionType(ptr, []llvm.Type{i32}, false)
	case ALLOC_ARRAY:
		return llvm.FunctionType(ptr, []llvm.Type{i32, i32}, false)
	case STR_CONCAT:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr}, false)
	case STR_EQ, STR_NE:
		return llvm.FunctionType(i1, []llvm.Type{ptr, ptr}, false)
	}
	panic("unknown runtime function " + name)
}

// getRuntimeFn declares the helper on first use and returns it along
// with its type for CreateCall.
func (c *Compiler) getRuntimeFn(name string) (llvm.Type, llvm.Value) {
	fnType := c.runtimeFnType(name)
	fn := c.Module.NamedFunction(name)
	if fn.IsNil() {
		fn = llvm.AddFunction(c.Module, name, fnType)
	}
	return fnType, fn
}
