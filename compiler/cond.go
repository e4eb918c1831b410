package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/lattelang/latte/ast"
)

// compileCondBranch lowers a boolean expression directly into control
// flow. Short-circuit operators become branches instead of values, and a
// negation just swaps the two targets, so no i1 is ever materialized for
// !, && or || in branch position.
func (c *Compiler) compileCondBranch(cond ast.Expression, trueBB, falseBB llvm.BasicBlock) {
	switch e := cond.(type) {
	case *ast.BooleanLiteral:
		if e.Value {
			c.builder.CreateBr(trueBB)
		} else {
			c.builder.CreateBr(falseBB)
		}
		return
	case *ast.Prefix:
		if e.Operator == "!" {
			c.compileCondBranch(e.Right, falseBB, trueBB)
			return
		}
	case *ast.Infix:
		switch e.Operator {
		case "&&":
			rhs := llvm.AddBasicBlock(c.fn.Fn, "and.rhs")
			c.compileCondBranch(e.Left, rhs, falseBB)
			c.builder.SetInsertPointAtEnd(rhs)
			c.compileCondBranch(e.Right, trueBB, falseBB)
			return
		case "||":
			rhs := llvm.AddBasicBlock(c.fn.Fn, "or.rhs")
			c.compileCondBranch(e.Left, trueBB, rhs)
			c.builder.SetInsertPointAtEnd(rhs)
			c.compileCondBranch(e.Right, trueBB, falseBB)
			return
		}
	}
	c.builder.CreateCondBr(c.compileExpr(cond), trueBB, falseBB)
}
