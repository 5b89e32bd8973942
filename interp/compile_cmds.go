package interp

import (
	"strings"

	"github.com/das/fen/pkg/ast"
	"github.com/das/fen/pkg/parser"
)

// Inline compilers for the core commands. Each returns false to fall
// back to a generic invocation when the command's words are not
// compile-time literals in the shape the fast path handles.

func registerCompileFuncs(i *Interp) {
	for name, fn := range map[string]CompileFunc{
		"set":      compileSetCmd,
		"incr":     compileIncrCmd,
		"if":       compileIfCmd,
		"while":    compileWhileCmd,
		"for":      compileForCmd,
		"foreach":  compileForeachCmd,
		"break":    compileBreakCmd,
		"continue": compileContinueCmd,
		"return":   compileReturnCmd,
		"catch":    compileCatchCmd,
		"expr":     compileExprCmd,
	} {
		if cmd := i.resolveCommand(name); cmd != nil {
			cmd.compile = fn
		}
	}
}

// simpleVarName returns a literal variable name without an array part.
func simpleVarName(w *ast.Token) (string, bool) {
	if !w.IsLiteral() {
		return "", false
	}
	name := w.LiteralValue()
	if strings.ContainsAny(name, "([ \t\n") {
		return "", false
	}
	return name, true
}

func compileSetCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 2 && len(cmd.Words) != 3 {
		return false
	}
	name, ok := simpleVarName(&cmd.Words[1])
	if !ok {
		return false
	}
	if len(cmd.Words) == 2 {
		if slot, isLocal := c.localSlot(name); isLocal {
			c.emitOp1(OpLoadScalar1, slot, 0, 1)
		} else {
			c.emitPushString(name)
			c.emitOp(OpLoadStk, 1, 1)
		}
		return true
	}
	if slot, isLocal := c.localSlot(name); isLocal {
		if c.compileWord(&cmd.Words[2]) != nil {
			return false
		}
		c.emitOp1(OpStoreScalar1, slot, 1, 1)
		return true
	}
	c.emitPushString(name)
	if c.compileWord(&cmd.Words[2]) != nil {
		return false
	}
	c.emitOp(OpStoreStk, 2, 1)
	return true
}

func compileIncrCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 2 && len(cmd.Words) != 3 {
		return false
	}
	name, ok := simpleVarName(&cmd.Words[1])
	if !ok {
		return false
	}
	pushDelta := func() bool {
		if len(cmd.Words) == 2 {
			c.emitPush(NewInt(1))
			return true
		}
		return c.compileWord(&cmd.Words[2]) == nil
	}
	if slot, isLocal := c.localSlot(name); isLocal {
		if !pushDelta() {
			return false
		}
		c.emitOp1(OpIncrScalar1, slot, 1, 1)
		return true
	}
	c.emitPushString(name)
	if !pushDelta() {
		return false
	}
	c.emitOp(OpIncrStk, 2, 1)
	return true
}

// compileExprWord compiles a literal word as an expression. Only braced
// or otherwise literal words qualify; words with substitutions fall
// back so substitution happens before expression parsing, as the
// runtime command does.
func (c *compiler) compileExprWord(w *ast.Token) bool {
	if !w.IsLiteral() {
		return false
	}
	tree, err := parser.ParseExpr(w.LiteralValue())
	if err != nil {
		return false
	}
	return c.compileExpr(tree) == nil
}

func compileExprCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 2 {
		return false
	}
	if !c.compileExprWord(&cmd.Words[1]) {
		return false
	}
	c.emitOp(OpTryCvtNumeric, 1, 1)
	return true
}

func compileIfCmd(c *compiler, cmd *ast.CommandNode) bool {
	words := cmd.Words[1:]
	var endFixups []*jumpFixup
	base := c.depth
	for {
		if len(words) < 2 {
			return false
		}
		condWord := &words[0]
		words = words[1:]
		if words[0].IsLiteral() && words[0].LiteralValue() == "then" {
			words = words[1:]
			if len(words) == 0 {
				return false
			}
		}
		body := wordScript(&words[0])
		if body == nil {
			return false
		}
		words = words[1:]

		c.depth = base
		if !c.compileExprWord(condWord) {
			return false
		}
		jf := c.emitForwardJump(OpJumpFalse1, 1)
		if c.compileScript(body) != nil {
			return false
		}
		endFixups = append(endFixups, c.emitForwardJump(OpJump1, 0))
		c.patchToHere(jf)
		c.depth = base

		if len(words) == 0 {
			c.emitPushString("")
			break
		}
		if !words[0].IsLiteral() {
			return false
		}
		switch words[0].LiteralValue() {
		case "elseif":
			words = words[1:]
			continue
		case "else":
			words = words[1:]
			if len(words) != 1 {
				return false
			}
			body := wordScript(&words[0])
			if body == nil || c.compileScript(body) != nil {
				return false
			}
		default:
			if len(words) != 1 {
				return false
			}
			body := wordScript(&words[0])
			if body == nil || c.compileScript(body) != nil {
				return false
			}
		}
		break
	}
	for _, f := range endFixups {
		c.patchToHere(f)
	}
	c.depth = base + 1
	if c.depth > c.maxDepth {
		c.maxDepth = c.depth
	}
	return true
}

// compileWhileCmd lays the loop out with the test at the bottom so the
// backward branch and its target sit on the same side of any widened
// forward jump.
func compileWhileCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 3 {
		return false
	}
	body := wordScript(&cmd.Words[2])
	if body == nil || !cmd.Words[1].IsLiteral() {
		return false
	}
	tree, err := parser.ParseExpr(cmd.Words[1].LiteralValue())
	if err != nil {
		return false
	}

	toTest := c.emitForwardJump(OpJump1, 0)
	bodyStart := c.mark()
	rng := c.beginRange(LoopRange)
	if c.compileScript(body) != nil {
		return false
	}
	c.emitOp(OpPop, 1, 0)
	c.endRange(rng)
	c.patchToHere(toTest)
	test := c.mark()
	if c.compileExpr(tree) != nil {
		return false
	}
	c.emitBackwardJump(OpJumpTrue1, *bodyStart, 1)
	done := c.here()
	c.emitPushString("")
	c.unit.ExceptRanges[rng].ContinueTarget = *test
	c.unit.ExceptRanges[rng].BreakTarget = done
	return true
}

func compileForCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 5 {
		return false
	}
	start := wordScript(&cmd.Words[1])
	body := wordScript(&cmd.Words[4])
	next := wordScript(&cmd.Words[3])
	if start == nil || body == nil || next == nil || !cmd.Words[2].IsLiteral() {
		return false
	}
	tree, err := parser.ParseExpr(cmd.Words[2].LiteralValue())
	if err != nil {
		return false
	}

	if c.compileScript(start) != nil {
		return false
	}
	c.emitOp(OpPop, 1, 0)
	toTest := c.emitForwardJump(OpJump1, 0)
	bodyStart := c.mark()
	rng := c.beginRange(LoopRange)
	if c.compileScript(body) != nil {
		return false
	}
	c.emitOp(OpPop, 1, 0)
	c.endRange(rng)
	nextStart := c.mark()
	if c.compileScript(next) != nil {
		return false
	}
	c.emitOp(OpPop, 1, 0)
	c.patchToHere(toTest)
	if c.compileExpr(tree) != nil {
		return false
	}
	c.emitBackwardJump(OpJumpTrue1, *bodyStart, 1)
	done := c.here()
	c.emitPushString("")
	c.unit.ExceptRanges[rng].ContinueTarget = *nextStart
	c.unit.ExceptRanges[rng].BreakTarget = done
	return true
}

// compileForeachCmd handles the compiled-local fast path: inside a
// procedure, with every loop variable a simple name. Anything else runs
// through the command.
func compileForeachCmd(c *compiler, cmd *ast.CommandNode) bool {
	if c.proc == nil || len(cmd.Words) < 4 || len(cmd.Words)%2 != 0 {
		return false
	}
	body := wordScript(&cmd.Words[len(cmd.Words)-1])
	if body == nil {
		return false
	}
	pairs := cmd.Words[1 : len(cmd.Words)-1]
	aux := AuxForeach{}
	for n := 0; n < len(pairs); n += 2 {
		if !pairs[n].IsLiteral() {
			return false
		}
		names, err := ParseList(pairs[n].LiteralValue())
		if err != nil || len(names) == 0 {
			return false
		}
		slots := make([]int, len(names))
		for k, name := range names {
			if strings.Contains(name, "::") || strings.Contains(name, "(") {
				return false
			}
			slot, ok := c.localSlot(name)
			if !ok {
				return false
			}
			slots[k] = slot
		}
		aux.VarSlots = append(aux.VarSlots, slots)
	}
	auxIdx := len(c.unit.Aux)
	c.unit.Aux = append(c.unit.Aux, aux)

	numLists := len(pairs) / 2
	for n := 1; n < len(pairs); n += 2 {
		if c.compileWord(&pairs[n]) != nil {
			return false
		}
	}
	c.emitOp4(OpForeachStart4, auxIdx, numLists, 0)
	toTest := c.emitForwardJump(OpJump1, 0)
	bodyStart := c.mark()
	rng := c.beginRange(LoopRange)
	if c.compileScript(body) != nil {
		return false
	}
	c.emitOp(OpPop, 1, 0)
	c.endRange(rng)
	c.patchToHere(toTest)
	test := c.here()
	c.emitOp4(OpForeachStep4, auxIdx, 0, 1)
	c.emitBackwardJump(OpJumpTrue1, *bodyStart, 1)
	done := c.here()
	c.emitPushString("")
	c.unit.ExceptRanges[rng].ContinueTarget = test
	c.unit.ExceptRanges[rng].BreakTarget = done
	return true
}

func compileBreakCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 1 {
		return false
	}
	c.emitOp(OpBreak, 0, 1)
	return true
}

func compileContinueCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) != 1 {
		return false
	}
	c.emitOp(OpContinue, 0, 1)
	return true
}

func compileReturnCmd(c *compiler, cmd *ast.CommandNode) bool {
	switch len(cmd.Words) {
	case 1:
		c.emitPushString("")
	case 2:
		if cmd.Words[1].IsLiteral() && strings.HasPrefix(cmd.Words[1].LiteralValue(), "-") {
			return false
		}
		if c.compileWord(&cmd.Words[1]) != nil {
			return false
		}
	default:
		// Option forms go through the command for full -code/-level
		// processing.
		return false
	}
	c.unit.Code = append(c.unit.Code, byte(OpReturnImm), byte(ResultOK), 1)
	c.adjust(1, 1)
	return true
}

func compileCatchCmd(c *compiler, cmd *ast.CommandNode) bool {
	if len(cmd.Words) < 2 || len(cmd.Words) > 3 {
		return false
	}
	body := wordScript(&cmd.Words[1])
	if body == nil {
		return false
	}
	hasVar := len(cmd.Words) == 3
	var varName string
	if hasVar {
		name, ok := simpleVarName(&cmd.Words[2])
		if !ok {
			return false
		}
		varName = name
	}

	if hasVar {
		c.emitPushString(varName)
	}
	rng := c.beginRange(CatchRange)
	c.emitOp4(OpBeginCatch4, rng, 0, 0)
	if c.compileScript(body) != nil {
		return false
	}
	c.emitOp(OpEndCatch, 0, 0)
	c.endRange(rng)
	if hasVar {
		c.emitOp(OpStoreStk, 2, 1)
	}
	c.emitOp(OpPop, 1, 0)
	c.emitPushString("0")
	end := c.emitForwardJump(OpJump1, 0)

	c.unit.ExceptRanges[rng].CatchTarget = c.here()
	c.depth = c.unit.ExceptRanges[rng].StackDepth
	c.emitOp(OpPushResult, 0, 1)
	if hasVar {
		c.emitOp(OpStoreStk, 2, 1)
	}
	c.emitOp(OpPop, 1, 0)
	c.emitOp(OpPushReturnCode, 0, 1)
	c.patchToHere(end)
	return true
}
