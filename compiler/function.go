package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/token"
	"github.com/lattelang/latte/types"
)

// Env maps local variables to their current SSA value. A frame is pushed
// per block for shadowing; rebinding walks to the frame that defined the
// name, so assignments inside a nested block update the outer variable.
type Env struct {
	parent *Env
	order  []string
	vals   map[string]llvm.Value
	typs   map[string]types.Type
}

func newEnv(parent *Env) *Env {
	return &Env{
		parent: parent,
		vals:   map[string]llvm.Value{},
		typs:   map[string]types.Type{},
	}
}

func (e *Env) define(name string, typ types.Type, val llvm.Value) {
	if _, exists := e.vals[name]; !exists {
		e.order = append(e.order, name)
	}
	e.vals[name] = val
	e.typs[name] = typ
}

func (e *Env) lookup(name string) (llvm.Value, types.Type, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vals[name]; ok {
			return v, env.typs[name], true
		}
	}
	return llvm.Value{}, nil, false
}

// set rebinds name in the frame that defined it.
func (e *Env) set(name string, val llvm.Value) {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vals[name]; ok {
			env.vals[name] = val
			return
		}
	}
	panic("set of undefined variable " + name)
}

// snapshot deep-copies the whole chain so a branch can mutate bindings
// without touching the pre-branch state.
func (e *Env) snapshot() *Env {
	if e == nil {
		return nil
	}
	c := &Env{
		parent: e.parent.snapshot(),
		order:  append([]string(nil), e.order...),
		vals:   make(map[string]llvm.Value, len(e.vals)),
		typs:   make(map[string]types.Type, len(e.typs)),
	}
	for k, v := range e.vals {
		c.vals[k] = v
	}
	for k, t := range e.typs {
		c.typs[k] = t
	}
	return c
}

// visibleNames lists every variable in scope exactly once, in a
// deterministic order: outermost frame first, shadowed names replaced in
// place by the inner binding's position.
func (e *Env) visibleNames() []string {
	var frames []*Env
	for env := e; env != nil; env = env.parent {
		frames = append(frames, env)
	}
	var names []string
	seen := map[string]bool{}
	for i := len(frames) - 1; i >= 0; i-- {
		for _, n := range frames[i].order {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// adopt copies the visible bindings of src (a snapshot with the same
// shape) into e.
func (e *Env) adopt(src *Env) {
	for _, name := range e.visibleNames() {
		v, _, ok := src.lookup(name)
		if !ok {
			panic("snapshot lost variable " + name)
		}
		e.set(name, v)
	}
}

func (c *Compiler) compileFunc(fi *FuncInfo) {
	c.fn = fi
	entry := llvm.AddBasicBlock(fi.Fn, "entry")
	c.builder.SetInsertPointAtEnd(entry)

	c.env = newEnv(nil)
	offset := 0
	if fi.Class != nil {
		fi.Fn.Param(0).SetName("self")
		offset = 1
	}
	for i, p := range fi.Def.Params {
		v := fi.Fn.Param(i + offset)
		v.SetName(p.Name)
		c.env.define(p.Name, fi.Params[i], v)
	}

	terminated := c.compileBlock(fi.Def.Body)
	if !terminated {
		if fi.Ret.Kind() != types.VoidKind {
			// the checker proved every path returns
			panic(fmt.Sprintf("%s reached the end of a non-void function", fi.Symbol()))
		}
		c.builder.CreateRetVoid()
	}
	c.env = nil
}

// compileBlock lowers statements until one terminates the block; code
// after a terminator is unreachable and never emitted.
func (c *Compiler) compileBlock(b *ast.Block) bool {
	c.env = newEnv(c.env)
	terminated := false
	for _, stmt := range b.Statements {
		if c.compileStmt(stmt) {
			terminated = true
			break
		}
	}
	c.env = c.env.parent
	return terminated
}

func (c *Compiler) compileStmt(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.Block:
		return c.compileBlock(s)
	case *ast.Decl:
		c.compileDecl(s)
	case *ast.Assign:
		c.compileAssign(s)
	case *ast.IncDec:
		c.compileIncDec(s)
	case *ast.Return:
		if s.Value == nil {
			c.builder.CreateRetVoid()
		} else {
			c.builder.CreateRet(c.compileExpr(s.Value))
		}
		return true
	case *ast.ExpressionStatement:
		c.compileExpr(s.Expression)
		if call, ok := s.Expression.(*ast.Call); ok && call.Name == ERROR_FN {
			// the runtime error() aborts
			c.builder.CreateUnreachable()
			return true
		}
	case *ast.If:
		return c.compileIf(s)
	case *ast.While:
		return c.compileWhile(s)
	case *ast.ForEach:
		c.compileForEach(s)
	}
	return false
}

func (c *Compiler) compileDecl(s *ast.Decl) {
	typ, ok := c.st.resolveType(s.Type)
	if !ok {
		panic("unresolved declaration type " + s.Type.String())
	}
	for _, item := range s.Items {
		var v llvm.Value
		if item.Value != nil {
			v = c.compileExpr(item.Value)
		} else {
			v = c.zeroValue(typ)
		}
		c.env.define(item.Name, typ, v)
	}
}

func (c *Compiler) compileAssign(s *ast.Assign) {
	if ident, ok := s.Target.(*ast.Identifier); ok {
		c.env.set(ident.Value, c.compileExpr(s.Value))
		return
	}
	addr := c.lvalueAddr(s.Target)
	c.builder.CreateStore(c.compileExpr(s.Value), addr)
}

func (c *Compiler) compileIncDec(s *ast.IncDec) {
	delta := c.constInt32(1)
	if s.Token.Type == token.DEC {
		delta = c.constInt32(-1)
	}
	if ident, ok := s.Target.(*ast.Identifier); ok {
		v, _, found := c.env.lookup(ident.Value)
		if !found {
			panic("undefined variable " + ident.Value)
		}
		c.env.set(ident.Value, c.builder.CreateAdd(v, delta, ident.Value))
		return
	}
	// the address is computed once, so side effects in the target run once
	addr := c.lvalueAddr(s.Target)
	old := c.builder.CreateLoad(c.Context.Int32Type(), addr, "")
	c.builder.CreateStore(c.builder.CreateAdd(old, delta, ""), addr)
}

// compileIf lowers a conditional. Constant-folded conditions pick their
// branch at compile time, so no blocks are emitted for the dead side.
// The merge block receives a phi only for variables whose SSA values
// differ between the two arms.
func (c *Compiler) compileIf(s *ast.If) bool {
	if lit, ok := s.Cond.(*ast.BooleanLiteral); ok {
		if lit.Value {
			return c.compileStmt(s.Then)
		}
		if s.Else != nil {
			return c.compileStmt(s.Else)
		}
		return false
	}

	fn := c.fn.Fn
	thenBB := llvm.AddBasicBlock(fn, "if.then")
	elseBB := llvm.AddBasicBlock(fn, "if.else")
	contBB := llvm.AddBasicBlock(fn, "if.cont")

	base := c.env
	c.compileCondBranch(s.Cond, thenBB, elseBB)

	thenEnv := base.snapshot()
	c.env = thenEnv
	c.builder.SetInsertPointAtEnd(thenBB)
	thenTerm := c.compileStmt(s.Then)
	thenEnd := c.builder.GetInsertBlock()
	if !thenTerm {
		c.builder.CreateBr(contBB)
	}

	elseEnv := base.snapshot()
	c.env = elseEnv
	c.builder.SetInsertPointAtEnd(elseBB)
	elseTerm := false
	if s.Else != nil {
		elseTerm = c.compileStmt(s.Else)
	}
	elseEnd := c.builder.GetInsertBlock()
	if !elseTerm {
		c.builder.CreateBr(contBB)
	}

	c.env = base
	if thenTerm && elseTerm {
		contBB.EraseFromParent()
		return true
	}

	c.builder.SetInsertPointAtEnd(contBB)
	switch {
	case thenTerm:
		base.adopt(elseEnv)
	case elseTerm:
		base.adopt(thenEnv)
	default:
		for _, name := range base.visibleNames() {
			tv, typ, _ := thenEnv.lookup(name)
			ev, _, _ := elseEnv.lookup(name)
			if tv == ev {
				continue
			}
			phi := c.builder.CreatePHI(c.llvmType(typ), name)
			phi.AddIncoming([]llvm.Value{tv, ev}, []llvm.BasicBlock{thenEnd, elseEnd})
			base.set(name, phi)
		}
	}
	return false
}

// compileWhile lowers a loop. The header gets a stub phi for every
// visible variable before the body is compiled; the body's final values
// are wired in afterwards. Variables the body never assigns keep a phi
// whose incomings are identical, which is deliberate: it avoids needing
// dominance information to decide which variables the loop changes.
func (c *Compiler) compileWhile(s *ast.While) bool {
	infinite := false
	if lit, ok := s.Cond.(*ast.BooleanLiteral); ok {
		if !lit.Value {
			return false // loop elided
		}
		infinite = true
	}

	fn := c.fn.Fn
	preBB := c.builder.GetInsertBlock()
	condBB := llvm.AddBasicBlock(fn, "while.cond")
	bodyBB := llvm.AddBasicBlock(fn, "while.body")
	var contBB llvm.BasicBlock
	if !infinite {
		contBB = llvm.AddBasicBlock(fn, "while.cont")
	}

	base := c.env
	names := base.visibleNames()

	c.builder.CreateBr(condBB)
	c.builder.SetInsertPointAtEnd(condBB)
	phis := make(map[string]llvm.Value, len(names))
	for _, name := range names {
		v, typ, _ := base.lookup(name)
		phi := c.builder.CreatePHI(c.llvmType(typ), name)
		phi.AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{preBB})
		phis[name] = phi
		base.set(name, phi)
	}
	if infinite {
		c.builder.CreateBr(bodyBB)
	} else {
		c.compileCondBranch(s.Cond, bodyBB, contBB)
	}

	bodyEnv := base.snapshot()
	c.env = bodyEnv
	c.builder.SetInsertPointAtEnd(bodyBB)
	bodyTerm := c.compileStmt(s.Body)
	if !bodyTerm {
		latch := c.builder.GetInsertBlock()
		c.builder.CreateBr(condBB)
		for _, name := range names {
			v, _, _ := bodyEnv.lookup(name)
			phis[name].AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{latch})
		}
	}

	c.env = base
	if infinite {
		return true
	}
	c.builder.SetInsertPointAtEnd(contBB)
	return false
}

// compileForEach lowers `for (T x : arr)` into an index-stepping loop.
// The array and its length are evaluated once, before the header.
func (c *Compiler) compileForEach(s *ast.ForEach) {
	arr := c.compileExpr(s.Iterable)
	length := c.arrayLength(arr)
	elemType := s.Iterable.Type().(types.Array).Elem
	elemLL := c.llvmType(elemType)
	declared, ok := c.st.resolveType(s.ElemType)
	if !ok {
		panic("unresolved element type " + s.ElemType.String())
	}

	fn := c.fn.Fn
	preBB := c.builder.GetInsertBlock()
	condBB := llvm.AddBasicBlock(fn, "for.cond")
	bodyBB := llvm.AddBasicBlock(fn, "for.body")
	contBB := llvm.AddBasicBlock(fn, "for.cont")

	base := c.env
	names := base.visibleNames()

	c.builder.CreateBr(condBB)
	c.builder.SetInsertPointAtEnd(condBB)
	phis := make(map[string]llvm.Value, len(names))
	for _, name := range names {
		v, typ, _ := base.lookup(name)
		phi := c.builder.CreatePHI(c.llvmType(typ), name)
		phi.AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{preBB})
		phis[name] = phi
		base.set(name, phi)
	}
	idx := c.builder.CreatePHI(c.Context.Int32Type(), s.Var+".idx")
	idx.AddIncoming([]llvm.Value{c.constInt32(0)}, []llvm.BasicBlock{preBB})
	inBounds := c.builder.CreateICmp(llvm.IntSLT, idx, length, "")
	c.builder.CreateCondBr(inBounds, bodyBB, contBB)

	bodyEnv := base.snapshot()
	c.env = newEnv(bodyEnv)
	c.builder.SetInsertPointAtEnd(bodyBB)
	elemAddr := c.builder.CreateGEP(elemLL, arr, []llvm.Value{idx}, "")
	elem := c.builder.CreateLoad(elemLL, elemAddr, s.Var)
	c.env.define(s.Var, declared, elem)
	bodyTerm := c.compileStmt(s.Body)
	if !bodyTerm {
		latch := c.builder.GetInsertBlock()
		next := c.builder.CreateAdd(idx, c.constInt32(1), "")
		c.builder.CreateBr(condBB)
		for _, name := range names {
			v, _, _ := bodyEnv.lookup(name)
			phis[name].AddIncoming([]llvm.Value{v}, []llvm.BasicBlock{latch})
		}
		idx.AddIncoming([]llvm.Value{next}, []llvm.BasicBlock{latch})
	}

	c.env = base
	c.builder.SetInsertPointAtEnd(contBB)
}
