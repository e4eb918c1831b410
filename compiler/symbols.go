package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/token"
	"github.com/lattelang/latte/types"
)

// FuncInfo describes a global function or a method. For methods Class is
// the defining class and Slot the vtable index.
type FuncInfo struct {
	Name   string
	Params []types.Type
	Ret    types.Type
	Def    *ast.FuncDef // nil for builtins
	Class  *ClassInfo   // nil for global functions
	Slot   int

	// llvm handles, populated by the code generator
	FnType llvm.Type
	Fn     llvm.Value
}

// Symbol returns the linker-level name: "Class.method" for methods, the
// plain name otherwise.
func (f *FuncInfo) Symbol() string {
	if f.Class != nil {
		return f.Class.Name + "." + f.Name
	}
	return f.Name
}

// FieldInfo is a flattened instance field. Index is the position inside
// the LLVM struct (the vtable pointer occupies index 0, so fields start
// at 1); Offset is the byte offset mirroring LLVM's natural layout.
type FieldInfo struct {
	Name   string
	Type   types.Type
	Index  int
	Offset int
}

// ClassInfo is the fully resolved layout of a class: fields flattened
// parent-first and the vtable in slot order, overrides replacing the
// parent's entry in place and new methods appended.
type ClassInfo struct {
	Name   string
	Parent *ClassInfo
	Def    *ast.ClassDef

	Fields     []*FieldInfo
	fieldIndex map[string]*FieldInfo

	Methods     []*FuncInfo
	methodIndex map[string]*FuncInfo

	Size  int // object byte size including the vtable pointer
	Align int

	// llvm handles, populated by the code generator
	Struct     llvm.Type
	VTableType llvm.Type
	VTableData llvm.Value
}

// Field resolves a field by name, own or inherited.
func (ci *ClassInfo) Field(name string) (*FieldInfo, bool) {
	f, ok := ci.fieldIndex[name]
	return f, ok
}

// Method resolves a method by name, own or inherited.
func (ci *ClassInfo) Method(name string) (*FuncInfo, bool) {
	m, ok := ci.methodIndex[name]
	return m, ok
}

// IsSubclassOf reports whether ci is other or a descendant of other.
func (ci *ClassInfo) IsSubclassOf(other *ClassInfo) bool {
	for c := ci; c != nil; c = c.Parent {
		if c == other {
			return true
		}
	}
	return false
}

// SymbolTable holds every global function and class. Functions and
// classes share one namespace. The Order slices preserve declaration
// order so iteration is deterministic.
type SymbolTable struct {
	Funcs      map[string]*FuncInfo
	FuncOrder  []string
	Classes    map[string]*ClassInfo
	ClassOrder []string
}

func (st *SymbolTable) resolveType(te *ast.TypeExpr) (types.Type, bool) {
	if te.Elem != nil {
		elem, ok := st.resolveType(te.Elem)
		if !ok {
			return nil, false
		}
		return types.Array{Elem: elem}, true
	}
	switch te.Name {
	case "int":
		return types.Int{}, true
	case "boolean":
		return types.Bool{}, true
	case "string":
		return types.Str{}, true
	case "void":
		return types.Void{}, true
	}
	if _, ok := st.Classes[te.Name]; ok {
		return types.Class{Name: te.Name}, true
	}
	return nil, false
}

// Assignable reports whether a value of src type may flow into a slot of
// dst type: identity, null into any reference type, a subclass into its
// superclass, and arrays covariantly at equal dimension.
func (st *SymbolTable) Assignable(dst, src types.Type) bool {
	if types.Equal(dst, src) {
		return true
	}
	if src.Kind() == types.NullKind && types.IsReference(dst) && dst.Kind() != types.NullKind {
		return true
	}
	if dst.Kind() == types.ClassKind && src.Kind() == types.ClassKind {
		dc := st.Classes[dst.(types.Class).Name]
		sc := st.Classes[src.(types.Class).Name]
		return dc != nil && sc != nil && sc.IsSubclassOf(dc)
	}
	if dst.Kind() == types.ArrayKind && src.Kind() == types.ArrayKind {
		return st.Assignable(dst.(types.Array).Elem, src.(types.Array).Elem)
	}
	return false
}

func builtins() []*FuncInfo {
	return []*FuncInfo{
		{Name: "printInt", Params: []types.Type{types.Int{}}, Ret: types.Void{}},
		{Name: "printString", Params: []types.Type{types.Str{}}, Ret: types.Void{}},
		{Name: "error", Params: []types.Type{}, Ret: types.Void{}},
		{Name: "readInt", Params: []types.Type{}, Ret: types.Int{}},
		{Name: "readString", Params: []types.Type{}, Ret: types.Str{}},
	}
}

// BuildSymbols runs the first semantic pass: it registers every global
// name, links the class hierarchy, rejects inheritance cycles, and
// computes flattened field layouts and vtables root-first. All
// diagnostics are accumulated; a non-empty result blocks later passes.
func BuildSymbols(program *ast.Program) (*SymbolTable, []*token.CompileError) {
	st := &SymbolTable{
		Funcs:   map[string]*FuncInfo{},
		Classes: map[string]*ClassInfo{},
	}
	errs := []*token.CompileError{}
	addErr := func(kind token.ErrKind, tok token.Token, format string, args ...any) {
		errs = append(errs, &token.CompileError{Kind: kind, Token: tok, Msg: fmt.Sprintf(format, args...)})
	}

	for _, b := range builtins() {
		st.Funcs[b.Name] = b
		st.FuncOrder = append(st.FuncOrder, b.Name)
	}

	// Pass 1: register every top-level name.
	taken := func(name string) (token.Token, bool) {
		if f, ok := st.Funcs[name]; ok {
			if f.Def != nil {
				return f.Def.Token, true
			}
			return token.Token{}, true
		}
		if c, ok := st.Classes[name]; ok {
			return c.Def.Token, true
		}
		return token.Token{}, false
	}

	for _, def := range program.Defs {
		switch d := def.(type) {
		case *ast.FuncDef:
			if prev, dup := taken(d.Name); dup {
				addErr(token.DuplicateSymbol, d.Token, "%s redeclared; previous declaration at %d:%d", d.Name, prev.Line, prev.Column)
				continue
			}
			st.Funcs[d.Name] = &FuncInfo{Name: d.Name, Def: d}
			st.FuncOrder = append(st.FuncOrder, d.Name)
		case *ast.ClassDef:
			if prev, dup := taken(d.Name); dup {
				addErr(token.DuplicateSymbol, d.Token, "%s redeclared; previous declaration at %d:%d", d.Name, prev.Line, prev.Column)
				continue
			}
			ci := &ClassInfo{
				Name:        d.Name,
				Def:         d,
				fieldIndex:  map[string]*FieldInfo{},
				methodIndex: map[string]*FuncInfo{},
			}
			st.Classes[d.Name] = ci
			st.ClassOrder = append(st.ClassOrder, d.Name)
		}
	}

	// Pass 2: resolve parents.
	for _, name := range st.ClassOrder {
		ci := st.Classes[name]
		if ci.Def.Parent == "" {
			continue
		}
		parent, ok := st.Classes[ci.Def.Parent]
		if !ok {
			addErr(token.UnknownType, ci.Def.Token, "class %s extends unknown class %s", ci.Name, ci.Def.Parent)
			continue
		}
		ci.Parent = parent
	}

	// Pass 3: reject inheritance cycles. Every class on a cycle is
	// reported once and detached so later passes see a forest.
	cyclic := map[*ClassInfo]bool{}
	for _, name := range st.ClassOrder {
		ci := st.Classes[name]
		seen := map[*ClassInfo]bool{ci: true}
		for c := ci.Parent; c != nil; c = c.Parent {
			if seen[c] {
				if !cyclic[ci] {
					cyclic[ci] = true
					addErr(token.CyclicInheritance, ci.Def.Token, "class %s participates in an inheritance cycle", ci.Name)
				}
				break
			}
			seen[c] = true
		}
	}
	for ci := range cyclic {
		ci.Parent = nil
	}

	// Pass 4: signatures. Needs every class registered first so types
	// referring to later classes resolve.
	resolveSignature := func(fi *FuncInfo, owner *ClassInfo) {
		d := fi.Def
		ret, ok := st.resolveType(d.Ret)
		if !ok {
			addErr(token.UnknownType, d.Ret.Token, "unknown type %s", d.Ret)
			ret = types.Void{}
		}
		fi.Ret = ret
		fi.Params = make([]types.Type, 0, len(d.Params))
		for _, p := range d.Params {
			pt, ok := st.resolveType(p.Type)
			if !ok {
				addErr(token.UnknownType, p.Type.Token, "unknown type %s", p.Type)
				pt = types.Int{}
			}
			if pt.Kind() == types.VoidKind {
				addErr(token.UnknownType, p.Type.Token, "parameter %s cannot have type void", p.Name)
				pt = types.Int{}
			}
			fi.Params = append(fi.Params, pt)
		}
		fi.Class = owner
	}

	for _, name := range st.FuncOrder {
		fi := st.Funcs[name]
		if fi.Def != nil {
			resolveSignature(fi, nil)
		}
	}

	// Pass 5: finalize classes root-first so a parent's layout exists
	// before any of its children's.
	finalized := map[*ClassInfo]bool{}
	var finalize func(ci *ClassInfo)
	finalize = func(ci *ClassInfo) {
		if finalized[ci] {
			return
		}
		finalized[ci] = true
		if ci.Parent != nil {
			finalize(ci.Parent)
			ci.Fields = append(ci.Fields, ci.Parent.Fields...)
			for _, f := range ci.Parent.Fields {
				ci.fieldIndex[f.Name] = f
			}
			ci.Methods = append(ci.Methods, ci.Parent.Methods...)
			for _, m := range ci.Parent.Methods {
				ci.methodIndex[m.Name] = m
			}
		}

		for _, fd := range ci.Def.Fields {
			if _, exists := ci.fieldIndex[fd.Name]; exists {
				addErr(token.FieldRedefinition, fd.Token, "field %s already defined in %s or a superclass", fd.Name, ci.Name)
				continue
			}
			ft, ok := st.resolveType(fd.Type)
			if !ok {
				addErr(token.UnknownType, fd.Type.Token, "unknown type %s", fd.Type)
				ft = types.Int{}
			}
			if ft.Kind() == types.VoidKind {
				addErr(token.UnknownType, fd.Type.Token, "field %s cannot have type void", fd.Name)
				ft = types.Int{}
			}
			fi := &FieldInfo{Name: fd.Name, Type: ft}
			ci.Fields = append(ci.Fields, fi)
			ci.fieldIndex[fd.Name] = fi
		}

		for _, md := range ci.Def.Methods {
			mi := &FuncInfo{Name: md.Name, Def: md}
			resolveSignature(mi, ci)
			if prev, exists := ci.methodIndex[md.Name]; exists {
				if prev.Class == ci {
					addErr(token.DuplicateSymbol, md.Token, "method %s redeclared in class %s", md.Name, ci.Name)
					continue
				}
				if !sameSignature(prev, mi) {
					addErr(token.IncompatibleOverride, md.Token,
						"method %s.%s does not match the signature inherited from %s", ci.Name, md.Name, prev.Class.Name)
					continue
				}
				// override keeps the parent's slot
				mi.Slot = prev.Slot
				ci.Methods[prev.Slot] = mi
				ci.methodIndex[md.Name] = mi
				continue
			}
			mi.Slot = len(ci.Methods)
			ci.Methods = append(ci.Methods, mi)
			ci.methodIndex[md.Name] = mi
		}

		layoutClass(ci)
	}
	for _, name := range st.ClassOrder {
		finalize(st.Classes[name])
	}

	if main, ok := st.Funcs["main"]; !ok {
		errs = append(errs, &token.CompileError{
			Kind: token.UndefinedSymbol,
			Msg:  "function main is not defined",
		})
	} else if main.Def != nil {
		if len(main.Params) != 0 || main.Ret.Kind() != types.IntKind {
			addErr(token.TypeMismatch, main.Def.Token, "main must take no parameters and return int")
		}
	}

	return st, errs
}

// sameSignature enforces the override rule: parameter types and return
// type must match the overridden method exactly.
func sameSignature(a, b *FuncInfo) bool {
	if !types.Equal(a.Ret, b.Ret) || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !types.Equal(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return true
}

// fieldSize and fieldAlign mirror the LLVM data layout the backend will
// apply, so the byte offsets stored here agree with the emitted GEPs.
func fieldSize(t types.Type) int {
	switch t.Kind() {
	case types.BoolKind:
		return 1
	case types.IntKind:
		return 4
	}
	return 8 // pointers
}

func fieldAlign(t types.Type) int { return fieldSize(t) }

func layoutClass(ci *ClassInfo) {
	offset := 8 // vtable pointer
	align := 8
	for i, f := range ci.Fields {
		// inherited FieldInfo is shared with the parent and already laid out
		if f.Index != 0 {
			offset = f.Offset + fieldSize(f.Type)
			continue
		}
		a := fieldAlign(f.Type)
		if rem := offset % a; rem != 0 {
			offset += a - rem
		}
		f.Index = i + 1
		f.Offset = offset
		offset += fieldSize(f.Type)
		if a > align {
			align = a
		}
	}
	if rem := offset % align; rem != 0 {
		offset += align - rem
	}
	ci.Size = offset
	ci.Align = align
}
