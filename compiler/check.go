package compiler

import (
	"fmt"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/token"
	"github.com/lattelang/latte/types"
)

// Checker is the second semantic pass. It types every expression in
// place, rewrites implicit member access into explicit self access,
// inserts implicit upcasts, and verifies that non-void functions return
// on every path. It never stops at the first error.
type Checker struct {
	st     *SymbolTable
	errors []*token.CompileError

	scopes []Scope[types.Type]
	fn     *FuncInfo  // function or method being checked
	class  *ClassInfo // nil outside method bodies
}

func NewChecker(st *SymbolTable) *Checker {
	return &Checker{st: st}
}

func (ck *Checker) addErr(kind token.ErrKind, tok token.Token, format string, args ...any) {
	ck.errors = append(ck.errors, &token.CompileError{Kind: kind, Token: tok, Msg: fmt.Sprintf(format, args...)})
}

// Check types the whole program and returns the accumulated diagnostics.
func (ck *Checker) Check(program *ast.Program) []*token.CompileError {
	for _, name := range ck.st.FuncOrder {
		fi := ck.st.Funcs[name]
		if fi.Def != nil {
			ck.checkFunc(fi, nil)
		}
	}
	for _, name := range ck.st.ClassOrder {
		ci := ck.st.Classes[name]
		for _, mi := range ci.Methods {
			if mi.Class == ci {
				ck.checkFunc(mi, ci)
			}
		}
	}
	return ck.errors
}

func (ck *Checker) checkFunc(fi *FuncInfo, ci *ClassInfo) {
	ck.fn = fi
	ck.class = ci
	ck.scopes = []Scope[types.Type]{NewScope[types.Type]()}

	for i, p := range fi.Def.Params {
		if _, dup := GetCurrent(ck.scopes, p.Name); dup {
			ck.addErr(token.DuplicateSymbol, p.Token, "duplicate parameter %s", p.Name)
			continue
		}
		Put(ck.scopes, p.Name, fi.Params[i])
	}

	ck.checkBlock(fi.Def.Body)

	if fi.Ret.Kind() != types.VoidKind && !terminates(fi.Def.Body) {
		ck.addErr(token.MissingReturn, fi.Def.Token, "%s may finish without returning a value", fi.Symbol())
	}
}

func (ck *Checker) checkBlock(b *ast.Block) {
	PushScope(&ck.scopes)
	for _, stmt := range b.Statements {
		ck.checkStmt(stmt)
	}
	PopScope(&ck.scopes)
}

func (ck *Checker) checkStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Block:
		ck.checkBlock(s)
	case *ast.Decl:
		ck.checkDecl(s)
	case *ast.Assign:
		ck.checkAssign(s)
	case *ast.IncDec:
		s.Target = ck.checkExpr(s.Target)
		if !ck.lvalue(s.Target) {
			ck.addErr(token.TypeMismatch, s.Tok(), "%s is not assignable", s.Target)
			return
		}
		if t := s.Target.Type(); t != nil && t.Kind() != types.IntKind {
			ck.addErr(token.TypeMismatch, s.Tok(), "%s requires int, got %s", s.Token.Literal, t)
		}
	case *ast.Return:
		ck.checkReturn(s)
	case *ast.If:
		s.Cond = ck.checkCond(s.Cond)
		ck.checkStmt(s.Then)
		if s.Else != nil {
			ck.checkStmt(s.Else)
		}
	case *ast.While:
		s.Cond = ck.checkCond(s.Cond)
		ck.checkStmt(s.Body)
	case *ast.ForEach:
		ck.checkForEach(s)
	case *ast.ExpressionStatement:
		s.Expression = ck.checkExpr(s.Expression)
	}
}

func (ck *Checker) checkDecl(s *ast.Decl) {
	typ, ok := ck.st.resolveType(s.Type)
	if !ok {
		ck.addErr(token.UnknownType, s.Type.Token, "unknown type %s", s.Type)
		typ = types.Int{}
	}
	if typ.Kind() == types.VoidKind {
		ck.addErr(token.UnknownType, s.Type.Token, "cannot declare a variable of type void")
		typ = types.Int{}
	}
	for _, item := range s.Items {
		if item.Value != nil {
			item.Value = ck.checkExpr(item.Value)
			item.Value = ck.coerce(typ, item.Value, item.Token)
		}
		if _, dup := GetCurrent(ck.scopes, item.Name); dup {
			ck.addErr(token.DuplicateSymbol, item.Token, "%s redeclared in this block", item.Name)
			continue
		}
		Put(ck.scopes, item.Name, typ)
	}
}

func (ck *Checker) checkAssign(s *ast.Assign) {
	s.Target = ck.checkExpr(s.Target)
	s.Value = ck.checkExpr(s.Value)
	if !ck.lvalue(s.Target) {
		ck.addErr(token.TypeMismatch, s.Tok(), "%s is not assignable", s.Target)
		return
	}
	if t := s.Target.Type(); t != nil {
		s.Value = ck.coerce(t, s.Value, s.Token)
	}
}

// lvalue reports whether target may appear on the left of an assignment:
// a variable, a field, or an array element. Array length is read-only.
func (ck *Checker) lvalue(target ast.Expression) bool {
	switch t := target.(type) {
	case *ast.Identifier:
		return true
	case *ast.Index:
		return true
	case *ast.FieldExpression:
		return !t.IsArrayLength
	}
	return false
}

func (ck *Checker) checkReturn(s *ast.Return) {
	ret := ck.fn.Ret
	if s.Value == nil {
		if ret.Kind() != types.VoidKind {
			ck.addErr(token.TypeMismatch, s.Token, "%s must return a %s", ck.fn.Symbol(), ret)
		}
		return
	}
	if ret.Kind() == types.VoidKind {
		ck.addErr(token.TypeMismatch, s.Token, "%s returns no value", ck.fn.Symbol())
		return
	}
	s.Value = ck.checkExpr(s.Value)
	s.Value = ck.coerce(ret, s.Value, s.Token)
}

func (ck *Checker) checkForEach(s *ast.ForEach) {
	elem, ok := ck.st.resolveType(s.ElemType)
	if !ok {
		ck.addErr(token.UnknownType, s.ElemType.Token, "unknown type %s", s.ElemType)
		elem = types.Int{}
	}
	s.Iterable = ck.checkExpr(s.Iterable)
	it := s.Iterable.Type()
	if it != nil {
		if it.Kind() != types.ArrayKind {
			ck.addErr(token.TypeMismatch, s.Iterable.Tok(), "for-each requires an array, got %s", it)
		} else if !ck.st.Assignable(elem, it.(types.Array).Elem) {
			ck.addErr(token.TypeMismatch, s.ElemType.Token, "cannot iterate %s as %s", it, elem)
		}
	}

	PushScope(&ck.scopes)
	Put(ck.scopes, s.Var, elem)
	ck.checkStmt(s.Body)
	PopScope(&ck.scopes)
}

// checkCond types a condition and requires boolean.
func (ck *Checker) checkCond(cond ast.Expression) ast.Expression {
	cond = ck.checkExpr(cond)
	if t := cond.Type(); t != nil && t.Kind() != types.BoolKind {
		ck.addErr(token.TypeMismatch, cond.Tok(), "condition must be boolean, got %s", t)
	}
	return cond
}

// coerce makes expr's static type exactly dst, inserting an implicit
// upcast when a strict widening applies and reporting TypeMismatch
// otherwise. It is the single place assignment compatibility is decided.
func (ck *Checker) coerce(dst types.Type, expr ast.Expression, tok token.Token) ast.Expression {
	src := expr.Type()
	if src == nil {
		return expr
	}
	if types.Equal(dst, src) {
		return expr
	}
	if !ck.st.Assignable(dst, src) {
		ck.addErr(token.TypeMismatch, tok, "cannot use %s as %s", src, dst)
		return expr
	}
	cast := &ast.CastExpression{Token: expr.Tok(), Value: expr, Implicit: true}
	cast.SetType(dst)
	return cast
}

// checkExpr types expr, returning the node to use in its place. The
// result always carries a type; on error the most plausible type is
// assumed so one mistake does not cascade.
func (ck *Checker) checkExpr(expr ast.Expression) ast.Expression {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		e.SetType(types.Int{})
	case *ast.BooleanLiteral:
		e.SetType(types.Bool{})
	case *ast.StringLiteral:
		e.SetType(types.Str{})
	case *ast.NullLiteral:
		e.SetType(types.Null{})
	case *ast.SelfExpression:
		if ck.class == nil {
			ck.addErr(token.UndefinedSymbol, e.Token, "self used outside a method")
			e.SetType(types.Int{})
		} else {
			e.SetType(types.Class{Name: ck.class.Name})
		}
	case *ast.Identifier:
		return ck.checkIdentifier(e)
	case *ast.Prefix:
		return ck.checkPrefix(e)
	case *ast.Infix:
		return ck.checkInfix(e)
	case *ast.Call:
		return ck.checkCall(e)
	case *ast.MethodCall:
		return ck.checkMethodCall(e)
	case *ast.FieldExpression:
		return ck.checkField(e)
	case *ast.Index:
		return ck.checkIndex(e)
	case *ast.NewObject:
		if _, ok := ck.st.Classes[e.Class]; !ok {
			ck.addErr(token.UnknownType, e.Token, "unknown class %s", e.Class)
			e.SetType(types.Int{})
		} else {
			e.SetType(types.Class{Name: e.Class})
		}
	case *ast.NewArray:
		return ck.checkNewArray(e)
	case *ast.CastExpression:
		return ck.checkCast(e)
	}
	return expr
}

// checkIdentifier resolves a bare name: local variables shadow fields,
// and a field of the enclosing class is rewritten into self access.
func (ck *Checker) checkIdentifier(e *ast.Identifier) ast.Expression {
	if t, ok := Get(ck.scopes, e.Value); ok {
		e.SetType(t)
		return e
	}
	if ck.class != nil {
		if f, ok := ck.class.Field(e.Value); ok {
			self := &ast.SelfExpression{Token: e.Token}
			self.SetType(types.Class{Name: ck.class.Name})
			fe := &ast.FieldExpression{Token: e.Token, Object: self, Name: e.Value}
			fe.SetType(f.Type)
			return fe
		}
	}
	ck.addErr(token.UndefinedSymbol, e.Token, "undefined: %s", e.Value)
	e.SetType(types.Int{})
	return e
}

func (ck *Checker) checkPrefix(e *ast.Prefix) ast.Expression {
	e.Right = ck.checkExpr(e.Right)
	t := e.Right.Type()
	switch e.Operator {
	case "-":
		if t.Kind() != types.IntKind {
			ck.addErr(token.TypeMismatch, e.Token, "operator - requires int, got %s", t)
		}
		e.SetType(types.Int{})
	case "!":
		if t.Kind() != types.BoolKind {
			ck.addErr(token.TypeMismatch, e.Token, "operator ! requires boolean, got %s", t)
		}
		e.SetType(types.Bool{})
	}
	return e
}

func (ck *Checker) checkInfix(e *ast.Infix) ast.Expression {
	e.Left = ck.checkExpr(e.Left)
	e.Right = ck.checkExpr(e.Right)
	lt, rt := e.Left.Type(), e.Right.Type()

	bad := func() {
		ck.addErr(token.TypeMismatch, e.Token, "operator %s not defined for %s and %s", e.Operator, lt, rt)
	}

	switch e.Operator {
	case "+":
		if lt.Kind() == types.IntKind && rt.Kind() == types.IntKind {
			e.SetType(types.Int{})
		} else if lt.Kind() == types.StrKind && rt.Kind() == types.StrKind {
			e.SetType(types.Str{})
		} else {
			bad()
			e.SetType(types.Int{})
		}
	case "-", "*", "/", "%":
		if lt.Kind() != types.IntKind || rt.Kind() != types.IntKind {
			bad()
		}
		e.SetType(types.Int{})
	case "<", "<=", ">", ">=":
		if lt.Kind() != types.IntKind || rt.Kind() != types.IntKind {
			bad()
		}
		e.SetType(types.Bool{})
	case "&&", "||":
		if lt.Kind() != types.BoolKind || rt.Kind() != types.BoolKind {
			bad()
		}
		e.SetType(types.Bool{})
	case "==", "!=":
		if !ck.comparable(lt, rt) {
			bad()
		}
		e.SetType(types.Bool{})
	}
	return e
}

// comparable reports whether == and != apply: identical primitive types,
// or reference types related by subtyping (including null).
func (ck *Checker) comparable(a, b types.Type) bool {
	if types.Equal(a, b) {
		return a.Kind() != types.VoidKind
	}
	if types.IsReference(a) && types.IsReference(b) {
		return ck.st.Assignable(a, b) || ck.st.Assignable(b, a)
	}
	return false
}

// checkCall resolves an unqualified call. Inside a method the enclosing
// class's methods win over global functions and the call is rewritten
// into a call on self.
func (ck *Checker) checkCall(e *ast.Call) ast.Expression {
	if ck.class != nil {
		if _, ok := ck.class.Method(e.Name); ok {
			self := &ast.SelfExpression{Token: e.Token}
			self.SetType(types.Class{Name: ck.class.Name})
			mc := &ast.MethodCall{Token: e.Token, Object: self, Name: e.Name, Args: e.Args}
			return ck.checkMethodCall(mc)
		}
	}
	fi, ok := ck.st.Funcs[e.Name]
	if !ok {
		ck.addErr(token.UndefinedSymbol, e.Token, "undefined: %s", e.Name)
		ck.checkArgsBestEffort(e.Args)
		e.SetType(types.Int{})
		return e
	}
	ck.checkArgs(fi, e.Token, e.Args)
	e.SetType(fi.Ret)
	return e
}

func (ck *Checker) checkMethodCall(e *ast.MethodCall) ast.Expression {
	e.Object = ck.checkExpr(e.Object)
	ot := e.Object.Type()
	if ot.Kind() != types.ClassKind {
		ck.addErr(token.UnknownMember, e.Token, "%s has no methods", ot)
		ck.checkArgsBestEffort(e.Args)
		e.SetType(types.Int{})
		return e
	}
	ci := ck.st.Classes[ot.(types.Class).Name]
	mi, ok := ci.Method(e.Name)
	if !ok {
		ck.addErr(token.UnknownMember, e.Token, "class %s has no method %s", ci.Name, e.Name)
		ck.checkArgsBestEffort(e.Args)
		e.SetType(types.Int{})
		return e
	}
	ck.checkArgs(mi, e.Token, e.Args)
	e.SetType(mi.Ret)
	return e
}

// checkArgs verifies arity first; per-argument checks only run when the
// count matches, so a wrong count yields exactly one diagnostic.
func (ck *Checker) checkArgs(fi *FuncInfo, tok token.Token, args []ast.Expression) {
	if len(args) != len(fi.Params) {
		ck.addErr(token.ArityMismatch, tok, "%s expects %d arguments, got %d", fi.Name, len(fi.Params), len(args))
		ck.checkArgsBestEffort(args)
		return
	}
	for i := range args {
		args[i] = ck.checkExpr(args[i])
		src := args[i].Type()
		if src == nil {
			continue
		}
		if !ck.st.Assignable(fi.Params[i], src) {
			ck.addErr(token.ArgumentMismatch, args[i].Tok(),
				"argument %d of %s: cannot use %s as %s", i+1, fi.Name, src, fi.Params[i])
			continue
		}
		if !types.Equal(fi.Params[i], src) {
			cast := &ast.CastExpression{Token: args[i].Tok(), Value: args[i], Implicit: true}
			cast.SetType(fi.Params[i])
			args[i] = cast
		}
	}
}

// checkArgsBestEffort types arguments of an unresolvable call so errors
// inside them are still reported.
func (ck *Checker) checkArgsBestEffort(args []ast.Expression) {
	for i := range args {
		args[i] = ck.checkExpr(args[i])
	}
}

func (ck *Checker) checkField(e *ast.FieldExpression) ast.Expression {
	e.Object = ck.checkExpr(e.Object)
	ot := e.Object.Type()
	switch ot.Kind() {
	case types.ArrayKind:
		if e.Name == "length" {
			e.IsArrayLength = true
			e.SetType(types.Int{})
			return e
		}
		ck.addErr(token.UnknownMember, e.Token, "arrays have no member %s", e.Name)
	case types.ClassKind:
		ci := ck.st.Classes[ot.(types.Class).Name]
		if f, ok := ci.Field(e.Name); ok {
			e.SetType(f.Type)
			return e
		}
		ck.addErr(token.UnknownMember, e.Token, "class %s has no field %s", ci.Name, e.Name)
	default:
		ck.addErr(token.UnknownMember, e.Token, "%s has no members", ot)
	}
	e.SetType(types.Int{})
	return e
}

func (ck *Checker) checkIndex(e *ast.Index) ast.Expression {
	e.Left = ck.checkExpr(e.Left)
	e.Idx = ck.checkExpr(e.Idx)
	lt := e.Left.Type()
	if lt.Kind() != types.ArrayKind {
		ck.addErr(token.TypeMismatch, e.Token, "cannot index %s", lt)
		e.SetType(types.Int{})
		return e
	}
	if it := e.Idx.Type(); it.Kind() != types.IntKind {
		ck.addErr(token.TypeMismatch, e.Idx.Tok(), "array index must be int, got %s", it)
	}
	e.SetType(lt.(types.Array).Elem)
	return e
}

func (ck *Checker) checkNewArray(e *ast.NewArray) ast.Expression {
	elem, ok := ck.st.resolveType(e.Elem)
	if !ok {
		ck.addErr(token.UnknownType, e.Elem.Token, "unknown type %s", e.Elem)
		elem = types.Int{}
	}
	if elem.Kind() == types.VoidKind {
		ck.addErr(token.UnknownType, e.Elem.Token, "cannot allocate an array of void")
		elem = types.Int{}
	}
	e.Length = ck.checkExpr(e.Length)
	if lt := e.Length.Type(); lt.Kind() != types.IntKind {
		ck.addErr(token.TypeMismatch, e.Length.Tok(), "array length must be int, got %s", lt)
	}
	e.SetType(types.Array{Elem: elem})
	return e
}

// checkCast handles explicit casts, which only widen: the value must be
// assignable to the target type. Pointer representation is unchanged.
func (ck *Checker) checkCast(e *ast.CastExpression) ast.Expression {
	target, ok := ck.st.resolveType(e.Target)
	if !ok {
		ck.addErr(token.UnknownType, e.Target.Token, "unknown type %s", e.Target)
		target = types.Int{}
	}
	e.Value = ck.checkExpr(e.Value)
	src := e.Value.Type()
	if src != nil && !ck.st.Assignable(target, src) {
		ck.addErr(token.TypeMismatch, e.Token, "cannot cast %s to %s", src, target)
	}
	e.SetType(target)
	return e
}

// terminates reports whether every execution of stmt ends in a return.
// Conditions were constant-folded at parse time, so a literal true or
// false here decides the branch statically. The language has no break,
// which makes while(true) a definite non-exit.
func terminates(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.Return:
		return true
	case *ast.Block:
		for _, inner := range s.Statements {
			if terminates(inner) {
				return true
			}
		}
		return false
	case *ast.If:
		if lit, ok := s.Cond.(*ast.BooleanLiteral); ok {
			if lit.Value {
				return terminates(s.Then)
			}
			return s.Else != nil && terminates(s.Else)
		}
		return s.Else != nil && terminates(s.Then) && terminates(s.Else)
	case *ast.While:
		if lit, ok := s.Cond.(*ast.BooleanLiteral); ok && lit.Value {
			return true
		}
		return false
	case *ast.ExpressionStatement:
		if call, ok := s.Expression.(*ast.Call); ok && call.Name == "error" {
			return true
		}
		return false
	}
	return false
}
