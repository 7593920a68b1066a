package isa

import "encoding/binary"

// Asm is a tiny byte-level assembler for the demo ISA, used by tests and
// the example driver to build guest images.
type Asm struct {
	buf []byte
}

func (a *Asm) Bytes() []byte { return a.buf }
func (a *Asm) Len() int      { return len(a.buf) }

func (a *Asm) Halt() *Asm {
	a.buf = append(a.buf, OpHalt)
	return a
}

func (a *Asm) Movi(rd int, imm uint32) *Asm {
	a.buf = append(a.buf, OpMovi, byte(rd))
	a.buf = binary.LittleEndian.AppendUint32(a.buf, imm)
	return a
}

func (a *Asm) Mov(rd, rs int) *Asm {
	a.buf = append(a.buf, OpMov, byte(rd), byte(rs))
	return a
}

func (a *Asm) Add(rd, rs int) *Asm {
	a.buf = append(a.buf, OpAdd, byte(rd), byte(rs))
	return a
}

func (a *Asm) Sub(rd, rs int) *Asm {
	a.buf = append(a.buf, OpSub, byte(rd), byte(rs))
	return a
}

func (a *Asm) Load(rd, rs int) *Asm {
	a.buf = append(a.buf, OpLoad, byte(rd), byte(rs))
	return a
}

func (a *Asm) Store(rd, rs int) *Asm {
	a.buf = append(a.buf, OpStore, byte(rd), byte(rs))
	return a
}

func (a *Asm) Jmp(rel int16) *Asm {
	a.buf = append(a.buf, OpJmp)
	a.buf = binary.LittleEndian.AppendUint16(a.buf, uint16(rel))
	return a
}

func (a *Asm) Jnz(rs int, rel int16) *Asm {
	a.buf = append(a.buf, OpJnz, byte(rs))
	a.buf = binary.LittleEndian.AppendUint16(a.buf, uint16(rel))
	return a
}

func (a *Asm) Sys(num uint16) *Asm {
	a.buf = append(a.buf, OpSys)
	a.buf = binary.LittleEndian.AppendUint16(a.buf, num)
	return a
}

func (a *Asm) Jr(rs int) *Asm {
	a.buf = append(a.buf, OpJr, byte(rs))
	return a
}
