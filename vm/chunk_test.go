package vm

import (
	"strings"
	"testing"
)

func TestChunkWriteAndLines(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpConstant, 2)
	c.Write(0, 2)

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Line(0) != 1 || c.Line(1) != 2 || c.Line(2) != 2 {
		t.Error("line table should track each code byte")
	}
	if c.Line(-1) != 0 || c.Line(99) != 0 {
		t.Error("out-of-range offsets should report line 0")
	}
}

func TestChunkAddConstant(t *testing.T) {
	c := NewChunk()
	if idx := c.AddConstant(FromSmallInt(1)); idx != 0 {
		t.Errorf("first constant index = %d, want 0", idx)
	}
	if idx := c.AddConstant(FromSmallInt(2)); idx != 1 {
		t.Errorf("second constant index = %d, want 1", idx)
	}
	if c.Constants[1].SmallInt() != 2 {
		t.Error("constant pool should hold appended values")
	}
}

func TestOpcodeInfo(t *testing.T) {
	info, ok := OpReturn.Info()
	if !ok || info.Name != "RETURN" || info.OperandBytes != 0 {
		t.Errorf("OpReturn.Info() = %+v, %v", info, ok)
	}
	info, ok = OpJump.Info()
	if !ok || info.OperandBytes != 2 {
		t.Errorf("OpJump should take a 16-bit operand, got %+v", info)
	}
	if _, ok := Opcode(0xFF).Info(); ok {
		t.Error("unknown opcode should report no info")
	}
}

func TestDisassemble(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(FromSmallInt(42))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpNegate, 1)
	c.WriteOp(OpReturn, 2)

	out := c.Disassemble("test")
	if !strings.HasPrefix(out, "== test ==\n") {
		t.Errorf("disassembly should open with the chunk name:\n%s", out)
	}
	for _, want := range []string{"CONSTANT", "NEGATE", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
	// Same-line instructions render the line placeholder.
	if !strings.Contains(out, "   | ") {
		t.Errorf("repeated source line should render as \"   | \":\n%s", out)
	}
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	c := NewChunk()
	c.Write(0xEE, 1)
	out := c.Disassemble("bad")
	if !strings.Contains(out, "UNKNOWN 0xEE") {
		t.Errorf("unknown byte should render as UNKNOWN:\n%s", out)
	}
}

func TestDisassembleJumpOperand(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpJump, 1)
	c.Write(0x01, 1)
	c.Write(0x02, 1)

	out := c.Disassemble("jump")
	if !strings.Contains(out, "JUMP") || !strings.Contains(out, "258") {
		t.Errorf("16-bit operand should decode big-endian to 258:\n%s", out)
	}
}
