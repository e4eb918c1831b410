package ast

import (
	"bytes"
	"strings"

	"github.com/lattelang/latte/token"
	"github.com/lattelang/latte/types"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this. Expressions carry the semantic
// type assigned by the checker so codegen never re-derives it.
type Expression interface {
	Node
	expressionNode()
	Type() types.Type
	SetType(types.Type)
}

// typed is embedded by every expression node to hold the checker's result.
type typed struct {
	typ types.Type
}

func (t *typed) Type() types.Type      { return t.typ }
func (t *typed) SetType(ty types.Type) { t.typ = ty }

// TypeExpr is a source-level type. A non-nil Elem makes it an array type;
// nesting expresses higher dimensions.
type TypeExpr struct {
	Token token.Token // the base type's token
	Name  string
	Elem  *TypeExpr
}

func (te *TypeExpr) Tok() token.Token { return te.Token }
func (te *TypeExpr) String() string {
	if te.Elem != nil {
		return te.Elem.String() + "[]"
	}
	return te.Name
}

type Program struct {
	Defs []Def
}

// Def is a top-level definition: a function or a class.
type Def interface {
	Node
	defNode()
}

func (p *Program) Tok() token.Token {
	if len(p.Defs) > 0 {
		return p.Defs[0].Tok()
	}
	return token.Token{Type: token.EOF, Literal: ""}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, d := range p.Defs {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	return out.String()
}

type Param struct {
	Token token.Token // the parameter name token
	Name  string
	Type  *TypeExpr
}

func (p *Param) String() string { return p.Type.String() + " " + p.Name }

type FuncDef struct {
	Token  token.Token // the function name token
	Name   string
	Ret    *TypeExpr
	Params []*Param
	Body   *Block
}

func (fd *FuncDef) defNode()         {}
func (fd *FuncDef) Tok() token.Token { return fd.Token }
func (fd *FuncDef) String() string {
	var out bytes.Buffer
	out.WriteString(fd.Ret.String())
	out.WriteString(" ")
	out.WriteString(fd.Name)
	out.WriteString("(")
	params := make([]string, 0, len(fd.Params))
	for _, p := range fd.Params {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(fd.Body.String())
	return out.String()
}

type FieldDef struct {
	Token token.Token // the field name token
	Name  string
	Type  *TypeExpr
}

func (fd *FieldDef) String() string { return fd.Type.String() + " " + fd.Name + ";" }

type ClassDef struct {
	Token   token.Token // the class name token
	Name    string
	Parent  string // "" when the class has no superclass
	Fields  []*FieldDef
	Methods []*FuncDef
}

func (cd *ClassDef) defNode()         {}
func (cd *ClassDef) Tok() token.Token { return cd.Token }
func (cd *ClassDef) String() string {
	var out bytes.Buffer
	out.WriteString("class ")
	out.WriteString(cd.Name)
	if cd.Parent != "" {
		out.WriteString(" extends ")
		out.WriteString(cd.Parent)
	}
	out.WriteString(" {\n")
	for _, f := range cd.Fields {
		out.WriteString("  " + f.String() + "\n")
	}
	for _, m := range cd.Methods {
		out.WriteString("  " + m.String() + "\n")
	}
	out.WriteString("}")
	return out.String()
}

// Statements

type Block struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (b *Block) statementNode()   {}
func (b *Block) Tok() token.Token { return b.Token }
func (b *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type DeclItem struct {
	Token token.Token // the variable name token
	Name  string
	Value Expression // nil means default initialization
}

func (di *DeclItem) String() string {
	if di.Value == nil {
		return di.Name
	}
	return di.Name + " = " + di.Value.String()
}

type Decl struct {
	Token token.Token // the declared type's first token
	Type  *TypeExpr
	Items []*DeclItem
}

func (d *Decl) statementNode()   {}
func (d *Decl) Tok() token.Token { return d.Token }
func (d *Decl) String() string {
	items := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, it.String())
	}
	return d.Type.String() + " " + strings.Join(items, ", ") + ";"
}

// Assign covers variable, field and array element assignment; Target is
// an Identifier, FieldExpression or Index.
type Assign struct {
	Token  token.Token // the = token
	Target Expression
	Value  Expression
}

func (a *Assign) statementNode()   {}
func (a *Assign) Tok() token.Token { return a.Token }
func (a *Assign) String() string   { return a.Target.String() + " = " + a.Value.String() + ";" }

type IncDec struct {
	Token  token.Token // the ++ or -- token
	Target Expression
}

func (id *IncDec) statementNode()   {}
func (id *IncDec) Tok() token.Token { return id.Token }
func (id *IncDec) String() string   { return id.Target.String() + id.Token.Literal + ";" }

type Return struct {
	Token token.Token // the return token
	Value Expression  // nil for a bare return
}

func (r *Return) statementNode()   {}
func (r *Return) Tok() token.Token { return r.Token }
func (r *Return) String() string {
	if r.Value == nil {
		return "return;"
	}
	return "return " + r.Value.String() + ";"
}

type If struct {
	Token token.Token // the if token
	Cond  Expression
	Then  Statement
	Else  Statement // nil when absent
}

func (i *If) statementNode()   {}
func (i *If) Tok() token.Token { return i.Token }
func (i *If) String() string {
	var out bytes.Buffer
	out.WriteString("if (")
	out.WriteString(i.Cond.String())
	out.WriteString(") ")
	out.WriteString(i.Then.String())
	if i.Else != nil {
		out.WriteString(" else ")
		out.WriteString(i.Else.String())
	}
	return out.String()
}

type While struct {
	Token token.Token // the while token
	Cond  Expression
	Body  Statement
}

func (w *While) statementNode()   {}
func (w *While) Tok() token.Token { return w.Token }
func (w *While) String() string {
	return "while (" + w.Cond.String() + ") " + w.Body.String()
}

// ForEach is `for (T x : arr) body`. The checker records the element
// type on ElemType.
type ForEach struct {
	Token    token.Token // the for token
	ElemType *TypeExpr
	Var      string
	VarToken token.Token
	Iterable Expression
	Body     Statement
}

func (fe *ForEach) statementNode()   {}
func (fe *ForEach) Tok() token.Token { return fe.Token }
func (fe *ForEach) String() string {
	return "for (" + fe.ElemType.String() + " " + fe.Var + " : " + fe.Iterable.String() + ") " + fe.Body.String()
}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()   {}
func (es *ExpressionStatement) Tok() token.Token { return es.Token }
func (es *ExpressionStatement) String() string   { return es.Expression.String() + ";" }

// Expressions

type Identifier struct {
	typed
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type IntegerLiteral struct {
	typed
	Token token.Token
	Value int32
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string   { return il.Token.Literal }

type BooleanLiteral struct {
	typed
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()  {}
func (bl *BooleanLiteral) Tok() token.Token { return bl.Token }
func (bl *BooleanLiteral) String() string   { return bl.Token.Literal }

type StringLiteral struct {
	typed
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()  {}
func (sl *StringLiteral) Tok() token.Token { return sl.Token }
func (sl *StringLiteral) String() string   { return "\"" + sl.Value + "\"" }

type NullLiteral struct {
	typed
	Token token.Token
}

func (nl *NullLiteral) expressionNode()  {}
func (nl *NullLiteral) Tok() token.Token { return nl.Token }
func (nl *NullLiteral) String() string   { return "null" }

type SelfExpression struct {
	typed
	Token token.Token
}

func (se *SelfExpression) expressionNode()  {}
func (se *SelfExpression) Tok() token.Token { return se.Token }
func (se *SelfExpression) String() string   { return "self" }

type Prefix struct {
	typed
	Token    token.Token // the prefix token, e.g. ! or -
	Operator string
	Right    Expression
}

func (p *Prefix) expressionNode()  {}
func (p *Prefix) Tok() token.Token { return p.Token }
func (p *Prefix) String() string   { return "(" + p.Operator + p.Right.String() + ")" }

type Infix struct {
	typed
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (i *Infix) expressionNode()  {}
func (i *Infix) Tok() token.Token { return i.Token }
func (i *Infix) String() string {
	return "(" + i.Left.String() + " " + i.Operator + " " + i.Right.String() + ")"
}

// Call is an unqualified call. Inside a method body the checker may
// rewrite it into a MethodCall on self.
type Call struct {
	typed
	Token token.Token // the callee name token
	Name  string
	Args  []Expression
}

func (c *Call) expressionNode()  {}
func (c *Call) Tok() token.Token { return c.Token }
func (c *Call) String() string {
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

type MethodCall struct {
	typed
	Token  token.Token // the method name token
	Object Expression
	Name   string
	Args   []Expression
}

func (mc *MethodCall) expressionNode()  {}
func (mc *MethodCall) Tok() token.Token { return mc.Token }
func (mc *MethodCall) String() string {
	args := make([]string, 0, len(mc.Args))
	for _, a := range mc.Args {
		args = append(args, a.String())
	}
	return mc.Object.String() + "." + mc.Name + "(" + strings.Join(args, ", ") + ")"
}

// FieldExpression is `obj.name`. IsArrayLength is set by the checker when
// Object is an array and name is "length".
type FieldExpression struct {
	typed
	Token         token.Token // the field name token
	Object        Expression
	Name          string
	IsArrayLength bool
}

func (fe *FieldExpression) expressionNode()  {}
func (fe *FieldExpression) Tok() token.Token { return fe.Token }
func (fe *FieldExpression) String() string   { return fe.Object.String() + "." + fe.Name }

type Index struct {
	typed
	Token token.Token // the [ token
	Left  Expression
	Idx   Expression
}

func (ix *Index) expressionNode()  {}
func (ix *Index) Tok() token.Token { return ix.Token }
func (ix *Index) String() string   { return ix.Left.String() + "[" + ix.Idx.String() + "]" }

type NewObject struct {
	typed
	Token token.Token // the new token
	Class string
}

func (no *NewObject) expressionNode()  {}
func (no *NewObject) Tok() token.Token { return no.Token }
func (no *NewObject) String() string   { return "new " + no.Class }

type NewArray struct {
	typed
	Token  token.Token // the new token
	Elem   *TypeExpr
	Length Expression
}

func (na *NewArray) expressionNode()  {}
func (na *NewArray) Tok() token.Token { return na.Token }
func (na *NewArray) String() string {
	return "new " + na.Elem.String() + "[" + na.Length.String() + "]"
}

// CastExpression is `(T)expr`, or an upcast the checker inserted itself.
type CastExpression struct {
	typed
	Token    token.Token // the ( token, or the value's token when implicit
	Target   *TypeExpr
	Value    Expression
	Implicit bool
}

func (ce *CastExpression) expressionNode()  {}
func (ce *CastExpression) Tok() token.Token { return ce.Token }
func (ce *CastExpression) String() string {
	if ce.Implicit {
		return ce.Value.String()
	}
	return "(" + ce.Target.String() + ")" + ce.Value.String()
}
