package cpu

import (
	"testing"

	"github.com/mrexodia/icicle-emu/pkg/exception"
	"github.com/mrexodia/icicle-emu/pkg/mem"
	"github.com/mrexodia/icicle-emu/pkg/pcode"
)

func TestReadValueZxt(t *testing.T) {
	m := mem.NewMmu()
	if err := m.Map(0x1000, mem.PageSize, mem.PermAll); err != nil {
		t.Fatalf("Map: %v", err)
	}
	c := NewCpu(m)
	c.Regs.Write(1, 0x1122334455667788)
	if err := m.Write(0x1000, 0xcafe, 8); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := ReadValueZxt(c, pcode.Imm(7)); got != 7 {
		t.Errorf("immediate = %d, want 7", got)
	}
	if got := ReadValueZxt(c, pcode.Reg(1, 4)); got != 0x55667788 {
		t.Errorf("4-byte register read = %#x, want 0x55667788", got)
	}
	if got := ReadValueZxt(c, pcode.MemAt(0x1000, 8)); got != 0xcafe {
		t.Errorf("memory operand = %#x, want 0xcafe", got)
	}
	if c.ExceptionPending() {
		t.Errorf("successful reads left %v pending", c.PendingException())
	}

	if got := ReadValueSxt(c, pcode.Reg(1, 2)); got != 0x7788 {
		t.Errorf("2-byte sign extend = %#x, want 0x7788", got)
	}
}

func TestReadValueMemOperandFault(t *testing.T) {
	c := NewCpu(mem.NewMmu())

	if got := ReadValueZxt(c, pcode.MemAt(0x5000, 8)); got != 0 {
		t.Errorf("faulting memory operand = %#x, want 0", got)
	}
	// The fault is recorded, not swallowed.
	if got := c.PendingException(); got != exception.ReadUnmapped {
		t.Fatalf("pending exception = %v, want ReadUnmapped", got)
	}
	if c.Exception.Value != 0x5000 {
		t.Errorf("exception value = %#x, want the operand address", c.Exception.Value)
	}
}
