package interp

import (
	"encoding/binary"
	"fmt"

	"github.com/das/fen/pkg/ast"
	"github.com/das/fen/pkg/parser"
)

// compiler builds one Unit from a parse tree. Forward jumps are emitted
// in their 1-byte form and widened in place when the patched distance
// does not fit; widening shifts every recorded offset past the
// insertion point, marks and patched jumps included.
type compiler struct {
	i        *Interp
	unit     *Unit
	proc     *Proc
	depth    int
	maxDepth int
	fixups   []*jumpFixup
	marks    []*int
	litIdx   map[string]int
	lastLine int
}

// jumpFixup tracks one forward jump. Once patched, target holds the
// absolute destination so the displacement can be re-derived after any
// number of insertions.
type jumpFixup struct {
	offset  int
	target  int
	patched bool
}

// Compile turns source text into an executable unit.
func (i *Interp) Compile(source string) (*Unit, error) {
	script, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return i.compileScriptUnit(script, source, nil)
}

func (i *Interp) compileScriptUnit(script *ast.Script, source string, proc *Proc) (*Unit, error) {
	c := &compiler{
		i:      i,
		unit:   &Unit{Source: source, Epoch: i.compileEpoch},
		proc:   proc,
		litIdx: map[string]int{},
	}
	if proc != nil {
		for _, p := range proc.params {
			c.unit.LocalNames = append(c.unit.LocalNames, p.name)
		}
		c.unit.NumLocals = len(c.unit.LocalNames)
	}
	if err := c.compileScript(script); err != nil {
		return nil, err
	}
	c.emitOp(OpDone, 1, 0)
	c.unit.MaxStackDepth = c.maxDepth
	c.unit.NumLocals = len(c.unit.LocalNames)
	return c.unit, nil
}

// CompileExprSource compiles an expression into a unit that leaves the
// expression's value as its result.
func (i *Interp) CompileExprSource(source string) (*Unit, error) {
	tree, err := parser.ParseExpr(source)
	if err != nil {
		return nil, err
	}
	c := &compiler{
		i:      i,
		unit:   &Unit{Source: source, Epoch: i.compileEpoch},
		litIdx: map[string]int{},
	}
	if err := c.compileExpr(tree); err != nil {
		return nil, err
	}
	c.emitOp(OpTryCvtNumeric, 1, 1)
	c.emitOp(OpDone, 1, 0)
	c.unit.MaxStackDepth = c.maxDepth
	c.unit.NumLocals = len(c.unit.LocalNames)
	return c.unit, nil
}

// ------------------------------------------------------------------ //
// Emission primitives
// ------------------------------------------------------------------ //

func (c *compiler) here() int { return len(c.unit.Code) }

func (c *compiler) adjust(pop, push int) {
	c.depth -= pop
	if c.depth < 0 {
		panic(fmt.Sprintf("interp: compile stack underflow at offset %d", c.here()))
	}
	c.depth += push
	if c.depth > c.maxDepth {
		c.maxDepth = c.depth
	}
}

func (c *compiler) emitOp(op Opcode, pop, push int) {
	c.unit.Code = append(c.unit.Code, byte(op))
	c.adjust(pop, push)
}

func (c *compiler) emitOp1(op Opcode, operand int, pop, push int) {
	c.unit.Code = append(c.unit.Code, byte(op), byte(operand))
	c.adjust(pop, push)
}

func (c *compiler) emitOp4(op Opcode, operand int, pop, push int) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(operand))
	c.unit.Code = append(c.unit.Code, byte(op))
	c.unit.Code = append(c.unit.Code, buf[:]...)
	c.adjust(pop, push)
}

// literal interns a constant in the unit's literal array, keyed on its
// string rep, and registers it with the interpreter-wide literal table.
func (c *compiler) literal(o *Obj) int {
	key := o.String()
	if idx, ok := c.litIdx[key]; ok {
		return idx
	}
	shared := c.i.internLiteral(o)
	idx := len(c.unit.Literals)
	c.unit.Literals = append(c.unit.Literals, shared.Retain())
	c.litIdx[key] = idx
	return idx
}

func (c *compiler) emitPush(o *Obj) {
	idx := c.literal(o)
	if idx <= 0xFF {
		c.emitOp1(OpPush1, idx, 0, 1)
	} else {
		c.emitOp4(OpPush4, idx, 0, 1)
	}
}

func (c *compiler) emitPushString(s string) { c.emitPush(NewString(s)) }

func (c *compiler) emitInvoke(argc int) {
	if argc <= 0xFF {
		c.emitOp1(OpInvoke1, argc, argc, 1)
	} else {
		c.emitOp4(OpInvoke4, argc, argc, 1)
	}
}

func (c *compiler) mapLine(line int) {
	if line == c.lastLine && len(c.unit.SrcMap) > 0 {
		return
	}
	c.unit.SrcMap = append(c.unit.SrcMap, SrcEntry{PC: c.here(), Line: line})
	c.lastLine = line
}

// ------------------------------------------------------------------ //
// Jump fixup
// ------------------------------------------------------------------ //

var wideJump = map[Opcode]Opcode{
	OpJump1:      OpJump4,
	OpJumpTrue1:  OpJumpTrue4,
	OpJumpFalse1: OpJumpFalse4,
}

// emitForwardJump emits the 1-byte form of a jump with a placeholder
// operand and records a fixup for later patching.
func (c *compiler) emitForwardJump(op Opcode, pop int) *jumpFixup {
	f := &jumpFixup{offset: c.here()}
	c.fixups = append(c.fixups, f)
	c.emitOp1(op, 0, pop, 0)
	return f
}

// mark records the current code offset so later widenings keep it
// pointing at the same instruction.
func (c *compiler) mark() *int {
	m := new(int)
	*m = c.here()
	c.marks = append(c.marks, m)
	return m
}

// patchToHere resolves a forward jump to the current offset, widening
// the instruction to its 4-byte form when the distance overflows a
// signed byte.
func (c *compiler) patchToHere(f *jumpFixup) {
	f.target = c.here()
	f.patched = true
	if !c.encodeJump(f) {
		c.widen(f)
	}
}

// encodeJump writes f's displacement into its operand. It reports false
// when the instruction is in its 1-byte form and the distance does not
// fit a signed byte.
func (c *compiler) encodeJump(f *jumpFixup) bool {
	dist := f.target - f.offset
	if _, narrow := wideJump[Opcode(c.unit.Code[f.offset])]; narrow {
		if dist < -128 || dist > 127 {
			return false
		}
		c.unit.Code[f.offset+1] = byte(int8(dist))
		return true
	}
	binary.BigEndian.PutUint32(c.unit.Code[f.offset+1:f.offset+5], uint32(int32(dist)))
	return true
}

// widen grows a 1-byte jump into its 4-byte form. Insertion moves every
// recorded offset past the insertion point, so patched jumps spanning
// it change length too; re-encoding one can overflow another narrow
// jump, and the pass repeats until every patched jump encodes.
func (c *compiler) widen(f *jumpFixup) {
	c.grow(f)
	for {
		stable := true
		for _, g := range c.fixups {
			if g.patched && !c.encodeJump(g) {
				c.grow(g)
				stable = false
			}
		}
		if stable {
			return
		}
	}
}

// grow converts a jump to its 4-byte form by inserting three bytes
// after the 1-byte operand and shifting every tracked offset beyond
// the insertion point. Backward jumps need no tracking: every fixup is
// patched before an enclosing loop emits its backward branch, so an
// insertion never lands between a backward jump and its target.
func (c *compiler) grow(f *jumpFixup) {
	op := Opcode(c.unit.Code[f.offset])
	wide, ok := wideJump[op]
	if !ok {
		panic(fmt.Sprintf("interp: cannot widen opcode %s", op))
	}
	c.unit.Code[f.offset] = byte(wide)
	at := f.offset + 2
	c.unit.Code = append(c.unit.Code, 0, 0, 0)
	copy(c.unit.Code[at+3:], c.unit.Code[at:])
	c.unit.Code[at] = 0
	c.unit.Code[at+1] = 0
	c.unit.Code[at+2] = 0

	shift := func(off int) int {
		if off >= at {
			return off + 3
		}
		return off
	}
	for _, other := range c.fixups {
		if other != f {
			other.offset = shift(other.offset)
		}
		if other.patched {
			other.target = shift(other.target)
		}
	}
	for _, m := range c.marks {
		*m = shift(*m)
	}
	for idx := range c.unit.ExceptRanges {
		r := &c.unit.ExceptRanges[idx]
		r.Start = shift(r.Start)
		if r.End > 0 {
			r.End = shift(r.End)
		}
		r.ContinueTarget = shift(r.ContinueTarget)
		r.BreakTarget = shift(r.BreakTarget)
		r.CatchTarget = shift(r.CatchTarget)
	}
	for idx := range c.unit.SrcMap {
		c.unit.SrcMap[idx].PC = shift(c.unit.SrcMap[idx].PC)
	}
}

// emitBackwardJump emits a jump to an already-known earlier offset.
func (c *compiler) emitBackwardJump(op Opcode, target int, pop int) {
	dist := target - c.here()
	if dist >= -128 {
		c.emitOp1(op, int(byte(int8(dist))), pop, 0)
		return
	}
	wide := wideJump[op]
	c.emitOp4(wide, int(uint32(int32(dist))), pop, 0)
}

// ------------------------------------------------------------------ //
// Exception ranges
// ------------------------------------------------------------------ //

func (c *compiler) beginRange(kind RangeKind) int {
	idx := len(c.unit.ExceptRanges)
	c.unit.ExceptRanges = append(c.unit.ExceptRanges, ExceptRange{
		Kind:       kind,
		Start:      c.here(),
		StackDepth: c.depth,
	})
	return idx
}

func (c *compiler) endRange(idx int) {
	c.unit.ExceptRanges[idx].End = c.here()
}

// ------------------------------------------------------------------ //
// Script and word compilation
// ------------------------------------------------------------------ //

// compileScript emits code leaving exactly one value: the result of the
// last command, or the empty string for an empty script.
func (c *compiler) compileScript(script *ast.Script) error {
	if len(script.Commands) == 0 {
		c.emitPushString("")
		return nil
	}
	for idx := range script.Commands {
		if idx > 0 {
			c.emitOp(OpPop, 1, 0)
		}
		if err := c.compileCommand(&script.Commands[idx]); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileCommand(cmd *ast.CommandNode) error {
	c.mapLine(cmd.Line)
	expanded := false
	for _, w := range cmd.Words {
		if w.Expand {
			expanded = true
			break
		}
	}
	if !expanded {
		if first := cmd.Words[0]; first.IsLiteral() {
			if known := c.i.resolveCommand(first.LiteralValue()); known != nil && known.compile != nil {
				if known.compile(c, cmd) {
					return nil
				}
			}
		}
		for idx := range cmd.Words {
			if err := c.compileWord(&cmd.Words[idx]); err != nil {
				return err
			}
		}
		c.emitInvoke(len(cmd.Words))
		return nil
	}
	// {*}-expansion: gather word groups into lists, splice, invoke.
	groups := 0
	run := 0
	flushRun := func() {
		if run > 0 {
			c.emitOp4(OpList, run, run, 1)
			groups++
			run = 0
		}
	}
	for idx := range cmd.Words {
		w := &cmd.Words[idx]
		if w.Expand {
			flushRun()
			if err := c.compileWord(w); err != nil {
				return err
			}
			groups++
			continue
		}
		if err := c.compileWord(w); err != nil {
			return err
		}
		run++
	}
	flushRun()
	c.emitOp1(OpListConcat1, groups, groups, 1)
	c.emitOp(OpInvokeList, 1, 1)
	return nil
}

// compileWord emits code pushing the word's value.
func (c *compiler) compileWord(w *ast.Token) error {
	switch w.Kind {
	case ast.SimpleWord:
		c.emitPushString(w.Text)
	case ast.Text:
		c.emitPushString(w.Text)
	case ast.Backslash:
		c.emitPushString(w.Value)
	case ast.Variable:
		return c.compileVarRead(w)
	case ast.Command:
		return c.compileScript(w.Script)
	case ast.Word:
		for idx := range w.Children {
			if err := c.compileWord(&w.Children[idx]); err != nil {
				return err
			}
		}
		if len(w.Children) == 1 {
			return nil
		}
		c.emitOp1(OpConcat1, len(w.Children), len(w.Children), 1)
	default:
		return fmt.Errorf("cannot compile token kind %v", w.Kind)
	}
	return nil
}

func (c *compiler) compileVarRead(w *ast.Token) error {
	if len(w.Children) > 0 {
		c.emitPushString(w.Text)
		if err := c.compileIndex(w.Children); err != nil {
			return err
		}
		c.emitOp(OpLoadArrayStk, 2, 1)
		return nil
	}
	if slot, ok := c.localSlot(w.Text); ok {
		if slot <= 0xFF {
			c.emitOp1(OpLoadScalar1, slot, 0, 1)
		} else {
			c.emitOp4(OpLoadScalar4, slot, 0, 1)
		}
		return nil
	}
	c.emitPushString(w.Text)
	c.emitOp(OpLoadStk, 1, 1)
	return nil
}

// compileIndex pushes an array element name built from the index token
// run of a $name(...) reference.
func (c *compiler) compileIndex(idx []ast.Token) error {
	if len(idx) == 0 {
		c.emitPushString("")
		return nil
	}
	for n := range idx {
		if err := c.compileWord(&idx[n]); err != nil {
			return err
		}
	}
	if len(idx) > 1 {
		c.emitOp1(OpConcat1, len(idx), len(idx), 1)
	}
	return nil
}

// localSlot maps a simple variable name to a compiled-local slot.
// Slots exist only inside procedure bodies; qualified names never get
// slots.
func (c *compiler) localSlot(name string) (int, bool) {
	if c.proc == nil || name == "" {
		return 0, false
	}
	for idx := 0; idx < len(name); idx++ {
		if name[idx] == ':' {
			return 0, false
		}
	}
	for idx, ln := range c.unit.LocalNames {
		if ln == name {
			return idx, true
		}
	}
	c.unit.LocalNames = append(c.unit.LocalNames, name)
	return len(c.unit.LocalNames) - 1, true
}

// wordScript returns the parsed script of a literal body word, or nil
// when the word is not a compile-time literal.
func wordScript(w *ast.Token) *ast.Script {
	if !w.IsLiteral() {
		return nil
	}
	script, err := parser.Parse(w.LiteralValue())
	if err != nil {
		return nil
	}
	return script
}
