package interp

import (
	"fmt"

	"github.com/das/fen/pkg/ast"
)

// MathFuncNamespace is where expression function calls resolve:
// funcname(args) invokes the command ::tcl::mathfunc::funcname.
const MathFuncNamespace = "::tcl::mathfunc"

var binaryOpcode = map[string]Opcode{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMult,
	"/":  OpDiv,
	"%":  OpMod,
	"**": OpExpon,
	"&":  OpBitAnd,
	"|":  OpBitOr,
	"^":  OpBitXor,
	"<<": OpLshift,
	">>": OpRshift,
	"<":  OpLt,
	">":  OpGt,
	"<=": OpLe,
	">=": OpGe,
	"==": OpEq,
	"!=": OpNeq,
	"eq": OpStrEq,
	"ne": OpStrNeq,
	"in": OpListIn,
	"ni": OpListNotIn,
}

// compileExpr emits code leaving the expression's value on the stack.
func (c *compiler) compileExpr(e *ast.Expr) error {
	switch e.Kind {
	case ast.ExprLeaf:
		return c.compileWord(e.Word)
	case ast.ExprUnary:
		if err := c.compileExpr(e.Operands[0]); err != nil {
			return err
		}
		switch e.Op {
		case "-":
			c.emitOp(OpUminus, 1, 1)
		case "+":
			c.emitOp(OpUplus, 1, 1)
		case "~":
			c.emitOp(OpBitNot, 1, 1)
		case "!":
			c.emitOp(OpNot, 1, 1)
		default:
			return fmt.Errorf("unknown unary operator %q", e.Op)
		}
		return nil
	case ast.ExprBinary:
		op, ok := binaryOpcode[e.Op]
		if !ok {
			return fmt.Errorf("unknown operator %q", e.Op)
		}
		if err := c.compileExpr(e.Operands[0]); err != nil {
			return err
		}
		if err := c.compileExpr(e.Operands[1]); err != nil {
			return err
		}
		c.emitOp(op, 2, 1)
		return nil
	case ast.ExprAnd:
		return c.compileShortCircuit(e, false)
	case ast.ExprOr:
		return c.compileShortCircuit(e, true)
	case ast.ExprTernary:
		return c.compileTernary(e)
	case ast.ExprFunc:
		c.emitPushString(MathFuncNamespace + "::" + e.Func)
		for _, arg := range e.Operands {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.emitInvoke(len(e.Operands) + 1)
		return nil
	}
	return fmt.Errorf("cannot compile expression kind %v", e.Kind)
}

// compileShortCircuit emits && and ||. The right operand is evaluated
// only when the left does not decide the result; the value is always a
// canonical "0" or "1".
func (c *compiler) compileShortCircuit(e *ast.Expr, isOr bool) error {
	shortOp, longVal, shortVal := OpJumpFalse1, "1", "0"
	if isOr {
		shortOp, longVal, shortVal = OpJumpTrue1, "0", "1"
	}
	base := c.depth
	if err := c.compileExpr(e.Operands[0]); err != nil {
		return err
	}
	j1 := c.emitForwardJump(shortOp, 1)
	if err := c.compileExpr(e.Operands[1]); err != nil {
		return err
	}
	j2 := c.emitForwardJump(shortOp, 1)
	c.emitPushString(longVal)
	end := c.emitForwardJump(OpJump1, 0)
	c.patchToHere(j1)
	c.patchToHere(j2)
	c.depth = base
	c.emitPushString(shortVal)
	c.patchToHere(end)
	return nil
}

func (c *compiler) compileTernary(e *ast.Expr) error {
	base := c.depth
	if err := c.compileExpr(e.Operands[0]); err != nil {
		return err
	}
	jf := c.emitForwardJump(OpJumpFalse1, 1)
	if err := c.compileExpr(e.Operands[1]); err != nil {
		return err
	}
	end := c.emitForwardJump(OpJump1, 0)
	c.patchToHere(jf)
	c.depth = base
	if err := c.compileExpr(e.Operands[2]); err != nil {
		return err
	}
	c.patchToHere(end)
	c.depth = base + 1
	if c.depth > c.maxDepth {
		c.maxDepth = c.depth
	}
	return nil
}
