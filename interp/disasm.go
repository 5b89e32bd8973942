package interp

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the unit.
func (u *Unit) Disassemble() string {
	return u.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a
// name header.
func (u *Unit) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Max stack: %d\n", u.MaxStackDepth))
	if u.NumLocals > 0 {
		sb.WriteString(fmt.Sprintf("; Locals (%d): %s\n", u.NumLocals, strings.Join(u.LocalNames, ", ")))
	}

	if len(u.Literals) > 0 {
		sb.WriteString("; Literals:\n")
		for n, lit := range u.Literals {
			display := lit.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			display = strings.ReplaceAll(display, "\t", "\\t")
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", n, display))
		}
	}

	if len(u.ExceptRanges) > 0 {
		sb.WriteString("; Exception ranges:\n")
		for n, r := range u.ExceptRanges {
			switch r.Kind {
			case LoopRange:
				sb.WriteString(fmt.Sprintf(";   [%3d] loop  [%04X,%04X) continue=%04X break=%04X depth=%d\n",
					n, r.Start, r.End, r.ContinueTarget, r.BreakTarget, r.StackDepth))
			case CatchRange:
				sb.WriteString(fmt.Sprintf(";   [%3d] catch [%04X,%04X) target=%04X depth=%d\n",
					n, r.Start, r.End, r.CatchTarget, r.StackDepth))
			}
		}
	}

	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(u.Code) {
		line, instrLen := u.disassembleInstruction(offset)
		if srcLine := u.LineForPC(offset); srcLine > 0 {
			sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %d\n", offset, line, srcLine))
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}
		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction formats a single instruction at the given
// offset and returns its length.
func (u *Unit) disassembleInstruction(offset int) (string, int) {
	if offset >= len(u.Code) {
		return "<end of code>", 0
	}

	op := Opcode(u.Code[offset])
	info := op.Info()

	switch op {
	case OpPush1:
		idx := int(u.Code[offset+1])
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, u.literalDisplay(idx)), 2
	case OpPush4:
		idx := int(u.readUint32(offset + 1))
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, u.literalDisplay(idx)), 5

	case OpLoadScalar1, OpStoreScalar1, OpIncrScalar1:
		slot := int(u.Code[offset+1])
		if name := u.localDisplay(slot); name != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, slot, name), 2
		}
		return fmt.Sprintf("%s %d", info.Name, slot), 2
	case OpLoadScalar4, OpStoreScalar4:
		slot := int(u.readUint32(offset + 1))
		if name := u.localDisplay(slot); name != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, slot, name), 5
		}
		return fmt.Sprintf("%s %d", info.Name, slot), 5

	case OpJump1, OpJumpTrue1, OpJumpFalse1:
		delta := int(int8(u.Code[offset+1]))
		return fmt.Sprintf("%s %+d (-> %04X)", info.Name, delta, offset+delta), 2
	case OpJump4, OpJumpTrue4, OpJumpFalse4:
		delta := int(int32(u.readUint32(offset + 1)))
		return fmt.Sprintf("%s %+d (-> %04X)", info.Name, delta, offset+delta), 5

	case OpInvoke1, OpConcat1, OpListConcat1:
		return fmt.Sprintf("%s argc=%d", info.Name, u.Code[offset+1]), 2
	case OpInvoke4:
		return fmt.Sprintf("%s argc=%d", info.Name, u.readUint32(offset+1)), 5
	case OpList:
		return fmt.Sprintf("%s n=%d", info.Name, u.readUint32(offset+1)), 5

	case OpForeachStart4, OpForeachStep4, OpBeginCatch4:
		return fmt.Sprintf("%s %d", info.Name, u.readUint32(offset+1)), 5

	case OpReturnImm:
		code := Code(u.Code[offset+1])
		level := u.Code[offset+2]
		return fmt.Sprintf("%s code=%s level=%d", info.Name, code, level), 3

	default:
		instrLen := 1 + info.OperandLen
		if info.OperandLen == 0 {
			return info.Name, instrLen
		}
		operands := make([]string, 0, info.OperandLen)
		for n := 0; n < info.OperandLen; n++ {
			if offset+1+n < len(u.Code) {
				operands = append(operands, fmt.Sprintf("0x%02X", u.Code[offset+1+n]))
			}
		}
		return fmt.Sprintf("%s %s", info.Name, strings.Join(operands, " ")), instrLen
	}
}

// DisassembleInstruction returns a human-readable representation of a
// single instruction.
func (u *Unit) DisassembleInstruction(offset int) string {
	line, _ := u.disassembleInstruction(offset)
	return line
}

func (u *Unit) readUint32(offset int) uint32 {
	if offset+3 >= len(u.Code) {
		return 0
	}
	return binary.BigEndian.Uint32(u.Code[offset:])
}

func (u *Unit) literalDisplay(idx int) string {
	if idx < 0 || idx >= len(u.Literals) {
		return "<bad index>"
	}
	s := u.Literals[idx].String()
	if len(s) > 20 {
		s = s[:17] + "..."
	}
	return fmt.Sprintf("%q", s)
}

func (u *Unit) localDisplay(slot int) string {
	if slot < len(u.LocalNames) {
		return u.LocalNames[slot]
	}
	return ""
}

// InstructionCount returns the number of instructions in the unit.
func (u *Unit) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(u.Code) {
		count++
		offset += 1 + Opcode(u.Code[offset]).Info().OperandLen
	}
	return count
}
