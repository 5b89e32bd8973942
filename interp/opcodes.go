package interp

import "fmt"

// Opcode is a bytecode instruction. Operands follow the opcode byte in
// big-endian order; many instructions come in a 1-byte-operand form and
// a 4-byte form used when the operand does not fit.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Pop top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpOver Opcode = 0x03 // Push a copy of the value below TOS

	// ========================================================================
	// Literals (0x10-0x1F)
	// ========================================================================

	OpPush1 Opcode = 0x10 // Push literal: OpPush1 <index:u8>
	OpPush4 Opcode = 0x11 // Push literal: OpPush4 <index:u32>

	// ========================================================================
	// Variables (0x20-0x2F)
	// ========================================================================

	OpLoadScalar1  Opcode = 0x20 // Push compiled local: OpLoadScalar1 <slot:u8>
	OpLoadScalar4  Opcode = 0x21 // Push compiled local: OpLoadScalar4 <slot:u32>
	OpStoreScalar1 Opcode = 0x22 // Store TOS to compiled local, leave value
	OpStoreScalar4 Opcode = 0x23
	OpLoadStk      Opcode = 0x24 // Pop name, push variable value
	OpStoreStk     Opcode = 0x25 // Pop value then name, store, push value
	OpLoadArrayStk Opcode = 0x26 // Pop element then name, push element value
	OpStoreArrayStk Opcode = 0x27 // Pop value, element, name; store; push value
	OpIncrScalar1  Opcode = 0x28 // Pop increment, add to local slot, push result
	OpIncrStk      Opcode = 0x29 // Pop increment then name, add, push result

	// ========================================================================
	// Invocation (0x30-0x3F)
	// ========================================================================

	OpInvoke1    Opcode = 0x30 // Invoke command: OpInvoke1 <argc:u8>, words on stack
	OpInvoke4    Opcode = 0x31 // Invoke command: OpInvoke4 <argc:u32>
	OpInvokeList Opcode = 0x32 // Pop one list, invoke its elements as the words

	// ========================================================================
	// Control flow (0x40-0x4F)
	// ========================================================================

	OpJump1      Opcode = 0x40 // Relative jump: OpJump1 <offset:i8>
	OpJump4      Opcode = 0x41 // Relative jump: OpJump4 <offset:i32>
	OpJumpTrue1  Opcode = 0x42 // Pop condition, jump when true
	OpJumpTrue4  Opcode = 0x43
	OpJumpFalse1 Opcode = 0x44 // Pop condition, jump when false
	OpJumpFalse4 Opcode = 0x45
	OpBreak      Opcode = 0x46 // Unwind to the innermost loop range's break target
	OpContinue   Opcode = 0x47 // Unwind to the innermost loop range's continue target

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd    Opcode = 0x50 // Pop two, push sum
	OpSub    Opcode = 0x51 // Pop two, push difference
	OpMult   Opcode = 0x52 // Pop two, push product
	OpDiv    Opcode = 0x53 // Pop two, push quotient (integer division floors)
	OpMod    Opcode = 0x54 // Pop two, push remainder (sign follows divisor)
	OpUminus Opcode = 0x55 // Negate TOS
	OpUplus  Opcode = 0x56 // Verify TOS is numeric, leave it
	OpExpon  Opcode = 0x57 // Pop two, push power

	// ========================================================================
	// Bit operations (0x58-0x5F)
	// ========================================================================

	OpBitAnd Opcode = 0x58
	OpBitOr  Opcode = 0x59
	OpBitXor Opcode = 0x5A
	OpBitNot Opcode = 0x5B
	OpLshift Opcode = 0x5C
	OpRshift Opcode = 0x5D

	// ========================================================================
	// Comparison and logic (0x60-0x6F)
	// ========================================================================

	OpEq     Opcode = 0x60 // Numeric when both numeric, else string compare
	OpNeq    Opcode = 0x61
	OpLt     Opcode = 0x62
	OpGt     Opcode = 0x63
	OpLe     Opcode = 0x64
	OpGe     Opcode = 0x65
	OpStrEq  Opcode = 0x66 // Always string compare
	OpStrNeq Opcode = 0x67
	OpNot    Opcode = 0x68 // Logical NOT
	OpListIn  Opcode = 0x69 // Pop list then value, push membership
	OpListNotIn Opcode = 0x6A
	OpTryCvtNumeric Opcode = 0x6B // Canonicalize TOS to a number when it parses as one

	// ========================================================================
	// Strings and lists (0x70-0x7F)
	// ========================================================================

	OpConcat1   Opcode = 0x70 // Concatenate N strings: OpConcat1 <n:u8>
	OpStrLen    Opcode = 0x71 // Push character length of TOS
	OpStrIndex  Opcode = 0x72 // Pop index then string, push character
	OpList        Opcode = 0x73 // Build list of N elements: OpList <n:u32>
	OpListLength  Opcode = 0x74 // Pop list, push element count
	OpListIndex   Opcode = 0x75 // Pop index then list, push element
	OpListConcat1 Opcode = 0x76 // Pop N lists, push their concatenation: <n:u8>

	// ========================================================================
	// Foreach (0x90-0x9F)
	// ========================================================================

	OpForeachStart4 Opcode = 0x90 // Pop the value lists, init iteration: <aux:u32>
	OpForeachStep4  Opcode = 0x91 // Assign next batch, push continue flag: <aux:u32>

	// ========================================================================
	// Exceptions (0x80-0x8F)
	// ========================================================================

	OpBeginCatch4   Opcode = 0x80 // Enter catch range: OpBeginCatch4 <range:u32>
	OpEndCatch      Opcode = 0x81 // Leave innermost catch range
	OpPushResult    Opcode = 0x82 // Push the interpreter result
	OpPushReturnCode Opcode = 0x83 // Push the last completion code
	OpPushReturnOpts Opcode = 0x84 // Push the return-options dictionary

	// ========================================================================
	// Completion (0xF0-0xFF)
	// ========================================================================

	OpDone      Opcode = 0xF0 // Finish the unit with TOS as the result
	OpReturnImm Opcode = 0xF1 // Return TOS: OpReturnImm <code:u8> <level:u8>
	OpReturnStk Opcode = 0xF2 // Pop options dict then result, process return
)

// OpcodeInfo describes an instruction for the disassembler and for
// compile-time stack accounting.
type OpcodeInfo struct {
	Name       string
	StackPop   int // -1 = determined by operand
	StackPush  int
	OperandLen int
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:  {"nop", 0, 0, 0},
	OpPop:  {"pop", 1, 0, 0},
	OpDup:  {"dup", 1, 2, 0},
	OpOver: {"over", 2, 3, 0},

	OpPush1: {"push1", 0, 1, 1},
	OpPush4: {"push4", 0, 1, 4},

	OpLoadScalar1:   {"loadScalar1", 0, 1, 1},
	OpLoadScalar4:   {"loadScalar4", 0, 1, 4},
	OpStoreScalar1:  {"storeScalar1", 1, 1, 1},
	OpStoreScalar4:  {"storeScalar4", 1, 1, 4},
	OpLoadStk:       {"loadStk", 1, 1, 0},
	OpStoreStk:      {"storeStk", 2, 1, 0},
	OpLoadArrayStk:  {"loadArrayStk", 2, 1, 0},
	OpStoreArrayStk: {"storeArrayStk", 3, 1, 0},
	OpIncrScalar1:   {"incrScalar1", 1, 1, 1},
	OpIncrStk:       {"incrStk", 2, 1, 0},

	OpInvoke1:    {"invoke1", -1, 1, 1},
	OpInvoke4:    {"invoke4", -1, 1, 4},
	OpInvokeList: {"invokeList", 1, 1, 0},

	OpJump1:      {"jump1", 0, 0, 1},
	OpJump4:      {"jump4", 0, 0, 4},
	OpJumpTrue1:  {"jumpTrue1", 1, 0, 1},
	OpJumpTrue4:  {"jumpTrue4", 1, 0, 4},
	OpJumpFalse1: {"jumpFalse1", 1, 0, 1},
	OpJumpFalse4: {"jumpFalse4", 1, 0, 4},
	OpBreak:      {"break", 0, 1, 0},
	OpContinue:   {"continue", 0, 1, 0},

	OpAdd:    {"add", 2, 1, 0},
	OpSub:    {"sub", 2, 1, 0},
	OpMult:   {"mult", 2, 1, 0},
	OpDiv:    {"div", 2, 1, 0},
	OpMod:    {"mod", 2, 1, 0},
	OpUminus: {"uminus", 1, 1, 0},
	OpUplus:  {"uplus", 1, 1, 0},
	OpExpon:  {"expon", 2, 1, 0},

	OpBitAnd: {"bitand", 2, 1, 0},
	OpBitOr:  {"bitor", 2, 1, 0},
	OpBitXor: {"bitxor", 2, 1, 0},
	OpBitNot: {"bitnot", 1, 1, 0},
	OpLshift: {"lshift", 2, 1, 0},
	OpRshift: {"rshift", 2, 1, 0},

	OpEq:            {"eq", 2, 1, 0},
	OpNeq:           {"neq", 2, 1, 0},
	OpLt:            {"lt", 2, 1, 0},
	OpGt:            {"gt", 2, 1, 0},
	OpLe:            {"le", 2, 1, 0},
	OpGe:            {"ge", 2, 1, 0},
	OpStrEq:         {"streq", 2, 1, 0},
	OpStrNeq:        {"strneq", 2, 1, 0},
	OpNot:           {"not", 1, 1, 0},
	OpListIn:        {"listIn", 2, 1, 0},
	OpListNotIn:     {"listNotIn", 2, 1, 0},
	OpTryCvtNumeric: {"tryCvtToNumeric", 1, 1, 0},

	OpConcat1:    {"concat1", -1, 1, 1},
	OpStrLen:     {"strlen", 1, 1, 0},
	OpStrIndex:   {"strindex", 2, 1, 0},
	OpList:        {"list", -1, 1, 4},
	OpListLength:  {"listLength", 1, 1, 0},
	OpListIndex:   {"listIndex", 2, 1, 0},
	OpListConcat1: {"listConcat1", -1, 1, 1},

	OpForeachStart4: {"foreachStart4", -1, 0, 4},
	OpForeachStep4:  {"foreachStep4", 0, 1, 4},

	OpBeginCatch4:    {"beginCatch4", 0, 0, 4},
	OpEndCatch:       {"endCatch", 0, 0, 0},
	OpPushResult:     {"pushResult", 0, 1, 0},
	OpPushReturnCode: {"pushReturnCode", 0, 1, 0},
	OpPushReturnOpts: {"pushReturnOpts", 0, 1, 0},

	OpDone:      {"done", 1, 0, 0},
	OpReturnImm: {"returnImm", 1, 1, 2},
	OpReturnStk: {"returnStk", 2, 1, 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown(0x%02X)", byte(op))}
}

func (op Opcode) String() string { return op.Info().Name }
