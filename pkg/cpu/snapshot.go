package cpu

import (
	"encoding/binary"
	"fmt"

	"github.com/mrexodia/icicle-emu/pkg/regs"
)

// CpuSnapshot captures all CPU-owned state: registers, position, counters
// and the pending exception. Memory and environment state are captured
// separately by their owners.
type CpuSnapshot struct {
	Regs        [regs.NumRegs]uint64
	Pc          uint64
	IsaMode     uint64
	Icount      uint64
	IcountLimit uint64
	Exception   Exception
}

// Snapshot captures the CPU's current state.
func (c *Cpu) Snapshot() *CpuSnapshot {
	return &CpuSnapshot{
		Regs:        c.Regs.Snapshot(),
		Pc:          c.Pc,
		IsaMode:     c.IsaMode,
		Icount:      c.Icount,
		IcountLimit: c.IcountLimit,
		Exception:   c.Exception,
	}
}

// Restore reinstates a snapshot taken from this CPU.
func (c *Cpu) Restore(snap *CpuSnapshot) {
	c.Regs.Restore(snap.Regs)
	c.Pc = snap.Pc
	c.IsaMode = snap.IsaMode
	c.Icount = snap.Icount
	c.IcountLimit = snap.IcountLimit
	c.Exception = snap.Exception
}

const cpuSnapshotSize = (regs.NumRegs+4)*8 + 4 + 8

// MarshalBinary encodes the snapshot as fixed-layout little-endian bytes,
// suitable for the persistent snapshot store.
func (s *CpuSnapshot) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, cpuSnapshotSize)
	for _, r := range s.Regs {
		buf = binary.LittleEndian.AppendUint64(buf, r)
	}
	buf = binary.LittleEndian.AppendUint64(buf, s.Pc)
	buf = binary.LittleEndian.AppendUint64(buf, s.IsaMode)
	buf = binary.LittleEndian.AppendUint64(buf, s.Icount)
	buf = binary.LittleEndian.AppendUint64(buf, s.IcountLimit)
	buf = binary.LittleEndian.AppendUint32(buf, s.Exception.Code)
	buf = binary.LittleEndian.AppendUint64(buf, s.Exception.Value)
	return buf, nil
}

// UnmarshalBinary decodes bytes produced by MarshalBinary.
func (s *CpuSnapshot) UnmarshalBinary(data []byte) error {
	if len(data) != cpuSnapshotSize {
		return fmt.Errorf("cpu snapshot: got %d bytes, want %d", len(data), cpuSnapshotSize)
	}
	off := 0
	next64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[off:])
		off += 8
		return v
	}
	for i := range s.Regs {
		s.Regs[i] = next64()
	}
	s.Pc = next64()
	s.IsaMode = next64()
	s.Icount = next64()
	s.IcountLimit = next64()
	s.Exception.Code = binary.LittleEndian.Uint32(data[off:])
	off += 4
	s.Exception.Value = binary.LittleEndian.Uint64(data[off:])
	return nil
}
