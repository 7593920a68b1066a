package cpu

import (
	"github.com/mrexodia/icicle-emu/pkg/exception"
	"github.com/mrexodia/icicle-emu/pkg/mem"
	"github.com/mrexodia/icicle-emu/pkg/pcode"
	"github.com/mrexodia/icicle-emu/pkg/regs"
)

// Exception is the pending fault state of a CPU: a taxonomy code plus the
// code-specific value (faulting address, syscall number, raw sub-code).
type Exception struct {
	Code  uint32
	Value uint64
}

// Cpu is one guest execution context: register file, program counter, ISA
// mode, instruction accounting and the pending exception. The memory image
// is attached by reference; the Cpu does not own it.
type Cpu struct {
	Regs    regs.File
	Pc      uint64
	IsaMode uint64

	// Icount counts retired native instructions. IcountLimit makes the
	// interpreter loop stop with InstructionLimit once reached; zero means
	// no limit.
	Icount      uint64
	IcountLimit uint64

	Exception Exception
	Mem       *mem.Mmu
}

func NewCpu(m *mem.Mmu) *Cpu {
	return &Cpu{Mem: m}
}

// BlockKey returns the translation cache key for the CPU's current position.
func (c *Cpu) BlockKey() BlockKey {
	return BlockKey{Vaddr: c.Pc, IsaMode: c.IsaMode}
}

// SetException records a pending exception. Raising a second exception
// before the first is handled overwrites it; delivery order is the
// interpreter loop's business.
func (c *Cpu) SetException(code exception.Code, value uint64) {
	c.Exception = Exception{Code: uint32(code), Value: value}
}

// ClearException resets the pending exception to None.
func (c *Cpu) ClearException() {
	c.Exception = Exception{}
}

// PendingException decodes the pending exception code through the taxonomy,
// so unrecognized raw values surface as UnknownError.
func (c *Cpu) PendingException() exception.Code {
	return exception.FromU32(c.Exception.Code)
}

// ExceptionPending reports whether an exception is waiting to be delivered.
func (c *Cpu) ExceptionPending() bool {
	return c.Exception.Code != uint32(exception.None)
}

// ReadValueZxt reads an operand as an unsigned 64-bit integer: registers and
// memory operands are zero-extended from their width, immediates pass
// through. A failing memory-operand read raises the read fault on the CPU
// and returns 0; callers check ExceptionPending before using the value.
func ReadValueZxt(c *Cpu, v pcode.Value) uint64 {
	switch v.Kind {
	case pcode.ValueReg:
		return c.Regs.ReadSized(v.Reg, v.Size)
	case pcode.ValueMem:
		val, err := c.Mem.Read(v.Addr, v.Size)
		if err != nil {
			merr, ok := err.(mem.Error)
			if !ok {
				merr = mem.ErrUnknown
			}
			c.SetException(exception.FromLoadError(merr), v.Addr)
			return 0
		}
		return regs.Truncate(val, v.Size)
	default:
		return regs.Truncate(v.Imm, v.Size)
	}
}

// ReadValueSxt reads an operand as a sign-extended 64-bit integer.
func ReadValueSxt(c *Cpu, v pcode.Value) int64 {
	return regs.SignExtend(ReadValueZxt(c, v), v.Size)
}
