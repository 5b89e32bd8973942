package interp

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
)

// foreachState is the per-activation iteration state of one inline
// foreach.
type foreachState struct {
	lists   [][]*Obj
	iter    int
	maxIter int
}

type vmState struct {
	i        *Interp
	u        *Unit
	stack    []*Obj
	pc       int
	lastCode Code
	foreach  map[int]*foreachState
}

func (s *vmState) push(o *Obj) {
	o.Retain()
	s.stack = append(s.stack, o)
}

// pop transfers the top value's reference to the caller.
func (s *vmState) pop() *Obj {
	o := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return o
}

func (s *vmState) peek() *Obj { return s.stack[len(s.stack)-1] }

func (s *vmState) trim(depth int) {
	for len(s.stack) > depth {
		s.pop().Release()
	}
}

func (s *vmState) u8() int {
	return int(s.u.Code[s.pc+1])
}

func (s *vmState) u32() int {
	return int(binary.BigEndian.Uint32(s.u.Code[s.pc+1 : s.pc+5]))
}

func (s *vmState) i8() int {
	return int(int8(s.u.Code[s.pc+1]))
}

func (s *vmState) i32() int {
	return int(int32(binary.BigEndian.Uint32(s.u.Code[s.pc+1 : s.pc+5])))
}

// execUnit runs a unit in the current frame and leaves the unit's
// result as the interpreter result.
func (i *Interp) execUnit(u *Unit) Code {
	s := &vmState{i: i, u: u, stack: make([]*Obj, 0, u.MaxStackDepth)}
	code := s.run()
	s.trim(0)
	return code
}

func (s *vmState) run() Code {
	i := s.i
	u := s.u
	for {
		op := Opcode(u.Code[s.pc])
		switch op {
		case OpNop:
			s.pc++

		case OpPop:
			s.pop().Release()
			s.pc++

		case OpDup:
			s.push(s.peek())
			s.pc++

		case OpOver:
			s.push(s.stack[len(s.stack)-2])
			s.pc++

		case OpPush1:
			s.push(u.Literals[s.u8()])
			s.pc += 2

		case OpPush4:
			s.push(u.Literals[s.u32()])
			s.pc += 5

		case OpLoadScalar1, OpLoadScalar4:
			var slot, width int
			if op == OpLoadScalar1 {
				slot, width = s.u8(), 2
			} else {
				slot, width = s.u32(), 5
			}
			val, err := i.GetVar(u.LocalNames[slot], "")
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(val)
			s.pc += width

		case OpStoreScalar1, OpStoreScalar4:
			var slot, width int
			if op == OpStoreScalar1 {
				slot, width = s.u8(), 2
			} else {
				slot, width = s.u32(), 5
			}
			val := s.pop()
			stored, err := i.SetVar(u.LocalNames[slot], "", val)
			val.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(stored)
			s.pc += width

		case OpLoadStk:
			name := s.pop()
			val, err := i.GetVar(name.String(), "")
			name.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(val)
			s.pc++

		case OpStoreStk:
			val := s.pop()
			name := s.pop()
			stored, err := i.SetVar(name.String(), "", val)
			name.Release()
			val.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(stored)
			s.pc++

		case OpLoadArrayStk:
			elem := s.pop()
			name := s.pop()
			val, err := i.GetVar(name.String(), elem.String())
			name.Release()
			elem.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(val)
			s.pc++

		case OpStoreArrayStk:
			val := s.pop()
			elem := s.pop()
			name := s.pop()
			stored, err := i.SetVar(name.String(), elem.String(), val)
			name.Release()
			elem.Release()
			val.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(stored)
			s.pc++

		case OpIncrScalar1:
			delta := s.pop()
			stored, err := i.incrVar(u.LocalNames[s.u8()], "", delta)
			delta.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(stored)
			s.pc += 2

		case OpIncrStk:
			delta := s.pop()
			name := s.pop()
			stored, err := i.incrVar(name.String(), "", delta)
			name.Release()
			delta.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(stored)
			s.pc++

		case OpInvoke1, OpInvoke4:
			var argc, width int
			if op == OpInvoke1 {
				argc, width = s.u8(), 2
			} else {
				argc, width = s.u32(), 5
			}
			args := s.stack[len(s.stack)-argc:]
			code := i.invoke(args)
			for n := 0; n < argc; n++ {
				s.pop().Release()
			}
			if code != ResultOK {
				if code = s.raise(code); code != ResultOK {
					return code
				}
				continue
			}
			s.push(i.result)
			s.pc += width

		case OpInvokeList:
			list := s.pop()
			items, err := list.AsList()
			if err != nil {
				list.Release()
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			if len(items) == 0 {
				list.Release()
				s.push(NewObj())
				s.pc++
				continue
			}
			args := make([]*Obj, len(items))
			copy(args, items)
			code := i.invoke(args)
			list.Release()
			if code != ResultOK {
				if code = s.raise(code); code != ResultOK {
					return code
				}
				continue
			}
			s.push(i.result)
			s.pc++

		case OpJump1:
			off := s.i8()
			if off <= 0 && s.checkCancel() {
				if code := s.raise(i.cancelError()); code != ResultOK {
					return code
				}
				continue
			}
			s.pc += off

		case OpJump4:
			off := s.i32()
			if off <= 0 && s.checkCancel() {
				if code := s.raise(i.cancelError()); code != ResultOK {
					return code
				}
				continue
			}
			s.pc += off

		case OpJumpTrue1, OpJumpTrue4, OpJumpFalse1, OpJumpFalse4:
			var off, width int
			switch op {
			case OpJumpTrue1, OpJumpFalse1:
				off, width = s.i8(), 2
			default:
				off, width = s.i32(), 5
			}
			cond := s.pop()
			b, err := cond.AsBool()
			cond.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			jump := b
			if op == OpJumpFalse1 || op == OpJumpFalse4 {
				jump = !b
			}
			if jump {
				if off <= 0 && s.checkCancel() {
					if code := s.raise(i.cancelError()); code != ResultOK {
						return code
					}
					continue
				}
				s.pc += off
			} else {
				s.pc += width
			}

		case OpBreak:
			if code := s.raise(ResultBreak); code != ResultOK {
				return code
			}

		case OpContinue:
			if code := s.raise(ResultContinue); code != ResultOK {
				return code
			}

		case OpAdd, OpSub, OpMult, OpDiv, OpMod, OpExpon,
			OpBitAnd, OpBitOr, OpBitXor, OpLshift, OpRshift:
			if err := s.binaryArith(op); err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.pc++

		case OpUminus, OpUplus, OpBitNot, OpNot:
			if err := s.unaryOp(op); err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.pc++

		case OpEq, OpNeq, OpLt, OpGt, OpLe, OpGe, OpStrEq, OpStrNeq:
			if err := s.compareOp(op); err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.pc++

		case OpListIn, OpListNotIn:
			list := s.pop()
			val := s.pop()
			items, err := list.AsList()
			if err != nil {
				list.Release()
				val.Release()
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			found := false
			for _, it := range items {
				if it.String() == val.String() {
					found = true
					break
				}
			}
			list.Release()
			val.Release()
			if op == OpListNotIn {
				found = !found
			}
			s.push(NewBool(found))
			s.pc++

		case OpTryCvtNumeric:
			o := s.pop()
			switch {
			case o.IsNumeric():
				switch t := o.intrep.(type) {
				case IntType:
					s.push(NewInt(int64(t)))
				case DoubleType:
					s.push(NewDouble(float64(t)))
				default:
					s.push(o)
				}
			default:
				s.push(o)
			}
			o.Release()
			s.pc++

		case OpConcat1:
			n := s.u8()
			parts := make([]string, n)
			for k := n - 1; k >= 0; k-- {
				o := s.pop()
				parts[k] = o.String()
				o.Release()
			}
			total := 0
			for _, p := range parts {
				total += len(p)
			}
			buf := make([]byte, 0, total)
			for _, p := range parts {
				buf = append(buf, p...)
			}
			s.push(NewString(string(buf)))
			s.pc += 2

		case OpStrLen:
			o := s.pop()
			n := int64(len([]rune(o.String())))
			o.Release()
			s.push(NewInt(n))
			s.pc++

		case OpStrIndex:
			idx := s.pop()
			str := s.pop()
			n, err := idx.AsInt()
			idx.Release()
			if err != nil {
				str.Release()
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			runes := []rune(str.String())
			str.Release()
			if n < 0 || int(n) >= len(runes) {
				s.push(NewObj())
			} else {
				s.push(NewString(string(runes[n])))
			}
			s.pc++

		case OpList:
			n := s.u32()
			items := make([]*Obj, n)
			for k := n - 1; k >= 0; k-- {
				items[k] = s.pop()
			}
			s.push(&Obj{intrep: &ListType{Items: items}})
			s.pc += 5

		case OpListLength:
			o := s.pop()
			items, err := o.AsList()
			if err != nil {
				o.Release()
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			n := int64(len(items))
			o.Release()
			s.push(NewInt(n))
			s.pc++

		case OpListIndex:
			idx := s.pop()
			list := s.pop()
			items, err := list.AsList()
			if err == nil {
				var n int64
				n, err = idx.AsInt()
				if err == nil {
					if n < 0 || int(n) >= len(items) {
						s.push(NewObj())
					} else {
						s.push(items[n])
					}
				}
			}
			idx.Release()
			list.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			s.pc++

		case OpListConcat1:
			n := s.u8()
			var items []*Obj
			lists := make([]*Obj, n)
			for k := n - 1; k >= 0; k-- {
				lists[k] = s.pop()
			}
			var convErr error
			for _, l := range lists {
				sub, err := l.AsList()
				if err != nil {
					convErr = err
					break
				}
				for _, it := range sub {
					items = append(items, it.Retain())
				}
			}
			for _, l := range lists {
				l.Release()
			}
			if convErr != nil {
				for _, it := range items {
					it.Release()
				}
				if code := s.raise(i.SetError(convErr)); code != ResultOK {
					return code
				}
				continue
			}
			s.push(&Obj{intrep: &ListType{Items: items}})
			s.pc += 2

		case OpForeachStart4:
			aux := u.Aux[s.u32()]
			numLists := len(aux.VarSlots)
			st := &foreachState{lists: make([][]*Obj, numLists)}
			var convErr error
			popped := make([]*Obj, numLists)
			for k := numLists - 1; k >= 0; k-- {
				popped[k] = s.pop()
			}
			for k, l := range popped {
				items, err := l.AsList()
				if err != nil {
					convErr = err
					break
				}
				snapshot := make([]*Obj, len(items))
				for n, it := range items {
					snapshot[n] = it.Retain()
				}
				st.lists[k] = snapshot
				iters := (len(items) + len(aux.VarSlots[k]) - 1) / len(aux.VarSlots[k])
				if iters > st.maxIter {
					st.maxIter = iters
				}
			}
			for _, l := range popped {
				l.Release()
			}
			if convErr != nil {
				if code := s.raise(i.SetError(convErr)); code != ResultOK {
					return code
				}
				continue
			}
			if s.foreach == nil {
				s.foreach = map[int]*foreachState{}
			}
			s.foreach[s.u32()] = st
			s.pc += 5

		case OpForeachStep4:
			auxIdx := s.u32()
			aux := u.Aux[auxIdx]
			st := s.foreach[auxIdx]
			if st.iter >= st.maxIter {
				s.push(NewBool(false))
				s.pc += 5
				continue
			}
			var stepErr error
			for k, slots := range aux.VarSlots {
				for n, slot := range slots {
					idx := st.iter*len(slots) + n
					var val *Obj
					if idx < len(st.lists[k]) {
						val = st.lists[k][idx]
					} else {
						val = NewObj()
					}
					if _, err := i.SetVar(u.LocalNames[slot], "", val); err != nil {
						stepErr = err
						break
					}
				}
				if stepErr != nil {
					break
				}
			}
			if stepErr != nil {
				if code := s.raise(i.SetError(stepErr)); code != ResultOK {
					return code
				}
				continue
			}
			st.iter++
			s.push(NewBool(true))
			s.pc += 5

		case OpBeginCatch4:
			s.pc += 5

		case OpEndCatch:
			s.pc++

		case OpPushResult:
			s.push(i.result)
			s.pc++

		case OpPushReturnCode:
			s.push(NewInt(int64(s.lastCode)))
			s.pc++

		case OpPushReturnOpts:
			s.push(i.ReturnOptions())
			s.pc++

		case OpReturnImm:
			code := Code(u.Code[s.pc+1])
			level := int(u.Code[s.pc+2])
			val := s.pop()
			i.SetResult(val)
			val.Release()
			i.returnOpts = &ReturnOptions{Code: code, Level: level}
			raised := ResultReturn
			if level == 0 {
				raised = code
			}
			if raised == ResultOK {
				s.push(i.result)
				s.pc += 3
				continue
			}
			if c := s.raise(raised); c != ResultOK {
				return c
			}

		case OpReturnStk:
			opts := s.pop()
			val := s.pop()
			i.SetResult(val)
			val.Release()
			raised, err := i.applyReturnOptions(opts)
			opts.Release()
			if err != nil {
				if code := s.raise(i.SetError(err)); code != ResultOK {
					return code
				}
				continue
			}
			if raised == ResultOK {
				s.push(i.result)
				s.pc++
				continue
			}
			if c := s.raise(raised); c != ResultOK {
				return c
			}

		case OpDone:
			val := s.pop()
			i.SetResult(val)
			val.Release()
			return ResultOK

		default:
			panic(fmt.Sprintf("interp: undefined opcode 0x%02X at pc %d", byte(op), s.pc))
		}
	}
}

func (s *vmState) checkCancel() bool {
	return atomic.LoadInt32(&s.i.cancelRequested) != 0
}

// raise routes a non-ok completion code to the innermost exception
// range able to handle it. Loop ranges consume break and continue;
// catch ranges consume everything. When no range applies the code
// propagates out of the unit.
func (s *vmState) raise(code Code) Code {
	if code == ResultError {
		s.noteError()
	}
	for _, idx := range s.u.containingRanges(s.pc) {
		r := &s.u.ExceptRanges[idx]
		switch r.Kind {
		case LoopRange:
			switch code {
			case ResultBreak:
				s.trim(r.StackDepth)
				s.pc = r.BreakTarget
				return ResultOK
			case ResultContinue:
				s.trim(r.StackDepth)
				s.pc = r.ContinueTarget
				return ResultOK
			}
		case CatchRange:
			s.trim(r.StackDepth)
			s.pc = r.CatchTarget
			s.lastCode = code
			return ResultOK
		}
	}
	return code
}

// noteError records the error line and extends the traceback for an
// error passing through this unit.
func (s *vmState) noteError() {
	line := s.u.LineForPC(s.pc)
	if !s.i.errAlreadyLogged {
		s.i.errorLine = line
		s.i.errAlreadyLogged = true
		if s.i.returnOpts.ErrorCode != nil && s.i.errorCode == nil {
			s.i.errorCode = s.i.returnOpts.ErrorCode.Retain()
		}
		s.i.logErrorInfo(fmt.Sprintf("    while executing (line %d)", line))
		return
	}
	s.i.logErrorInfo(fmt.Sprintf("    invoked from within (line %d)", line))
}

// incrVar adds an integer delta to a variable, creating it when unset.
func (i *Interp) incrVar(name1, elem string, delta *Obj) (*Obj, error) {
	d, err := delta.AsInt()
	if err != nil {
		return nil, err
	}
	var base int64
	if cur, err := i.GetVar(name1, elem); err == nil {
		base, err = cur.AsInt()
		if err != nil {
			return nil, err
		}
	}
	return i.SetVar(name1, elem, NewInt(base+d))
}

// ------------------------------------------------------------------ //
// Numeric operators
// ------------------------------------------------------------------ //

type numPair struct {
	isInt  bool
	ai, bi int64
	af, bf float64
}

func numericPair(a, b *Obj) (numPair, error) {
	if a.IsNumeric() && b.IsNumeric() {
		ia, aInt := a.intrep.(IntType)
		ib, bInt := b.intrep.(IntType)
		if aInt && bInt {
			return numPair{isInt: true, ai: int64(ia), bi: int64(ib)}, nil
		}
		af, _ := a.AsDouble()
		bf, _ := b.AsDouble()
		return numPair{af: af, bf: bf}, nil
	}
	if !a.IsNumeric() {
		return numPair{}, fmt.Errorf("can't use %q as operand of arithmetic operator", a.String())
	}
	return numPair{}, fmt.Errorf("can't use %q as operand of arithmetic operator", b.String())
}

func (s *vmState) binaryArith(op Opcode) error {
	b := s.pop()
	a := s.pop()
	defer a.Release()
	defer b.Release()

	switch op {
	case OpBitAnd, OpBitOr, OpBitXor, OpLshift, OpRshift, OpMod:
		ai, err := a.AsInt()
		if err != nil {
			return err
		}
		bi, err := b.AsInt()
		if err != nil {
			return err
		}
		var r int64
		switch op {
		case OpBitAnd:
			r = ai & bi
		case OpBitOr:
			r = ai | bi
		case OpBitXor:
			r = ai ^ bi
		case OpLshift:
			if bi < 0 {
				return fmt.Errorf("negative shift argument")
			}
			r = ai << uint(bi)
		case OpRshift:
			if bi < 0 {
				return fmt.Errorf("negative shift argument")
			}
			r = ai >> uint(bi)
		case OpMod:
			if bi == 0 {
				return fmt.Errorf("divide by zero")
			}
			r = ai % bi
			// The remainder takes the divisor's sign.
			if r != 0 && (r < 0) != (bi < 0) {
				r += bi
			}
		}
		s.push(NewInt(r))
		return nil
	}

	p, err := numericPair(a, b)
	if err != nil {
		return err
	}
	if p.isInt {
		switch op {
		case OpAdd:
			s.push(NewInt(p.ai + p.bi))
		case OpSub:
			s.push(NewInt(p.ai - p.bi))
		case OpMult:
			s.push(NewInt(p.ai * p.bi))
		case OpDiv:
			if p.bi == 0 {
				return fmt.Errorf("divide by zero")
			}
			q := p.ai / p.bi
			// Integer division floors toward negative infinity.
			if (p.ai%p.bi != 0) && ((p.ai < 0) != (p.bi < 0)) {
				q--
			}
			s.push(NewInt(q))
		case OpExpon:
			if p.bi < 0 {
				s.push(NewDouble(math.Pow(float64(p.ai), float64(p.bi))))
			} else {
				r := int64(1)
				base := p.ai
				for n := p.bi; n > 0; n-- {
					r *= base
				}
				s.push(NewInt(r))
			}
		}
		return nil
	}
	switch op {
	case OpAdd:
		s.push(NewDouble(p.af + p.bf))
	case OpSub:
		s.push(NewDouble(p.af - p.bf))
	case OpMult:
		s.push(NewDouble(p.af * p.bf))
	case OpDiv:
		if p.bf == 0 {
			return fmt.Errorf("divide by zero")
		}
		s.push(NewDouble(p.af / p.bf))
	case OpExpon:
		s.push(NewDouble(math.Pow(p.af, p.bf)))
	}
	return nil
}

func (s *vmState) unaryOp(op Opcode) error {
	o := s.pop()
	defer o.Release()
	switch op {
	case OpNot:
		b, err := o.AsBool()
		if err != nil {
			return err
		}
		s.push(NewBool(!b))
		return nil
	case OpBitNot:
		n, err := o.AsInt()
		if err != nil {
			return err
		}
		s.push(NewInt(^n))
		return nil
	}
	if !o.IsNumeric() {
		return fmt.Errorf("can't use %q as operand of arithmetic operator", o.String())
	}
	switch t := o.intrep.(type) {
	case IntType:
		if op == OpUminus {
			s.push(NewInt(-int64(t)))
		} else {
			s.push(NewInt(int64(t)))
		}
	case DoubleType:
		if op == OpUminus {
			s.push(NewDouble(-float64(t)))
		} else {
			s.push(NewDouble(float64(t)))
		}
	}
	return nil
}

func (s *vmState) compareOp(op Opcode) error {
	b := s.pop()
	a := s.pop()
	defer a.Release()
	defer b.Release()

	if op == OpStrEq || op == OpStrNeq {
		eq := a.String() == b.String()
		if op == OpStrNeq {
			eq = !eq
		}
		s.push(NewBool(eq))
		return nil
	}

	var cmp int
	if a.IsNumeric() && b.IsNumeric() {
		ia, aInt := a.intrep.(IntType)
		ib, bInt := b.intrep.(IntType)
		if aInt && bInt {
			switch {
			case int64(ia) < int64(ib):
				cmp = -1
			case int64(ia) > int64(ib):
				cmp = 1
			}
		} else {
			af, _ := a.AsDouble()
			bf, _ := b.AsDouble()
			switch {
			case af < bf:
				cmp = -1
			case af > bf:
				cmp = 1
			}
		}
	} else {
		as, bs := a.String(), b.String()
		switch {
		case as < bs:
			cmp = -1
		case as > bs:
			cmp = 1
		}
	}

	var r bool
	switch op {
	case OpEq:
		r = cmp == 0
	case OpNeq:
		r = cmp != 0
	case OpLt:
		r = cmp < 0
	case OpGt:
		r = cmp > 0
	case OpLe:
		r = cmp <= 0
	case OpGe:
		r = cmp >= 0
	}
	s.push(NewBool(r))
	return nil
}
