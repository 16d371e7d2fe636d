package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Constants and literals
const (
	OpConstant Opcode = 0x00 // push constant (8-bit pool index)
	OpNil      Opcode = 0x01 // push nil
	OpTrue     Opcode = 0x02 // push true
	OpFalse    Opcode = 0x03 // push false
	OpPop      Opcode = 0x04 // discard top of stack
)

// Variables
const (
	OpGetLocal   Opcode = 0x10 // push local (8-bit slot)
	OpSetLocal   Opcode = 0x11 // store into local (8-bit slot)
	OpGetGlobal  Opcode = 0x12 // push global (8-bit name constant)
	OpSetGlobal  Opcode = 0x13 // store into global (8-bit name constant)
	OpGetUpvalue Opcode = 0x14 // push captured variable (8-bit index)
	OpSetUpvalue Opcode = 0x15 // store into captured variable (8-bit index)
	OpGetField   Opcode = 0x16 // push instance field (8-bit name constant)
	OpSetField   Opcode = 0x17 // store into instance field (8-bit name constant)
)

// Arithmetic and comparison
const (
	OpEqual    Opcode = 0x20
	OpGreater  Opcode = 0x21
	OpLess     Opcode = 0x22
	OpAdd      Opcode = 0x23
	OpSubtract Opcode = 0x24
	OpMultiply Opcode = 0x25
	OpDivide   Opcode = 0x26
	OpNot      Opcode = 0x27
	OpNegate   Opcode = 0x28
)

// Control flow and calls
const (
	OpJump        Opcode = 0x30 // unconditional jump (16-bit offset)
	OpJumpIfFalse Opcode = 0x31 // jump if top is falsy (16-bit offset)
	OpLoop        Opcode = 0x32 // backward jump (16-bit offset)
	OpCall        Opcode = 0x33 // call (8-bit argc)
	OpInvoke      Opcode = 0x34 // method call (8-bit name constant, 8-bit argc)
	OpReturn      Opcode = 0x35 // return top of stack
)

// Closures and objects
const (
	OpClosure      Opcode = 0x40 // wrap function constant in a closure (8-bit index + per-upvalue pairs)
	OpCloseUpvalue Opcode = 0x41 // close upvalue over top of stack, then pop
	OpClass        Opcode = 0x42 // create class (8-bit name constant)
	OpMethod       Opcode = 0x43 // attach method closure to class (8-bit name constant)
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of fixed operand bytes (-1 = variable)
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 1},
	OpNil:      {"NIL", 0},
	OpTrue:     {"TRUE", 0},
	OpFalse:    {"FALSE", 0},
	OpPop:      {"POP", 0},

	OpGetLocal:   {"GET_LOCAL", 1},
	OpSetLocal:   {"SET_LOCAL", 1},
	OpGetGlobal:  {"GET_GLOBAL", 1},
	OpSetGlobal:  {"SET_GLOBAL", 1},
	OpGetUpvalue: {"GET_UPVALUE", 1},
	OpSetUpvalue: {"SET_UPVALUE", 1},
	OpGetField:   {"GET_FIELD", 1},
	OpSetField:   {"SET_FIELD", 1},

	OpEqual:    {"EQUAL", 0},
	OpGreater:  {"GREATER", 0},
	OpLess:     {"LESS", 0},
	OpAdd:      {"ADD", 0},
	OpSubtract: {"SUBTRACT", 0},
	OpMultiply: {"MULTIPLY", 0},
	OpDivide:   {"DIVIDE", 0},
	OpNot:      {"NOT", 0},
	OpNegate:   {"NEGATE", 0},

	OpJump:        {"JUMP", 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2},
	OpLoop:        {"LOOP", 2},
	OpCall:        {"CALL", 1},
	OpInvoke:      {"INVOKE", 2},
	OpReturn:      {"RETURN", 0},

	OpClosure:      {"CLOSURE", -1},
	OpCloseUpvalue: {"CLOSE_UPVALUE", 0},
	OpClass:        {"CLASS", 1},
	OpMethod:       {"METHOD", 1},
}

// Info returns metadata for the opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// ---------------------------------------------------------------------------
// Chunk: compiled bytecode body
// ---------------------------------------------------------------------------

// Chunk is a compiled function body: bytecode, a constant pool, and a
// per-byte source line table. The object model treats it as an opaque
// payload owned by an ObjFunction; the compiler produces it and the
// interpreter consumes it.
type Chunk struct {
	Code      []byte
	Lines     []int // source line per code byte
	Constants []Value
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 32),
		Lines:     make([]int, 0, 32),
		Constants: make([]Value, 0, 8),
	}
}

// Write appends one code byte with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode with its source line.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends a value to the constant pool and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the code length in bytes.
func (c *Chunk) Len() int { return len(c.Code) }

// Line returns the source line for a code offset, or 0 if unknown.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// size returns the chunk's contribution to allocation accounting.
func (c *Chunk) size() uint64 {
	if c == nil {
		return 0
	}
	return uint64(len(c.Code)) + uint64(len(c.Lines))*8 + uint64(len(c.Constants))*sizeValue
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble renders the chunk's code as human-readable text, one
// instruction per line.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.disassembleInstruction(&sb, offset)
	}
	return sb.String()
}

func (c *Chunk) disassembleInstruction(sb *strings.Builder, offset int) int {
	fmt.Fprintf(sb, "%04d ", offset)
	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", c.Line(offset))
	}

	op := Opcode(c.Code[offset])
	info, ok := opcodeTable[op]
	if !ok {
		fmt.Fprintf(sb, "UNKNOWN 0x%02X\n", byte(op))
		return offset + 1
	}

	switch {
	case op == OpClosure:
		// CLOSURE fnConst, then one (isLocal, index) byte pair per upvalue.
		// The pair count is not in the instruction stream; render the
		// constant reference only.
		idx := int(c.Code[offset+1])
		fmt.Fprintf(sb, "%-16s %4d\n", info.Name, idx)
		return offset + 2
	case info.OperandBytes == 0:
		sb.WriteString(info.Name)
		sb.WriteByte('\n')
		return offset + 1
	case info.OperandBytes == 1:
		fmt.Fprintf(sb, "%-16s %4d\n", info.Name, c.Code[offset+1])
		return offset + 2
	case info.OperandBytes == 2:
		operand := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		fmt.Fprintf(sb, "%-16s %4d\n", info.Name, operand)
		return offset + 3
	default:
		sb.WriteString(info.Name)
		sb.WriteByte('\n')
		return offset + 1
	}
}
