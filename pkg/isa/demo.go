// Package isa provides a compact byte-coded instruction set used by the
// example driver and the end-to-end tests. The execution core itself is
// ISA-agnostic; real guests plug in their own Decoder.
package isa

import (
	"encoding/binary"

	"github.com/mrexodia/icicle-emu/pkg/exception"
	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/pcode"
)

// Opcodes. All encodings are little-endian; registers are single bytes
// naming slots r0..r15.
const (
	OpHalt  = 0x00 // halt
	OpMovi  = 0x01 // movi rd, imm32
	OpMov   = 0x02 // mov rd, rs
	OpAdd   = 0x03 // add rd, rs
	OpSub   = 0x04 // sub rd, rs
	OpLoad  = 0x05 // load rd, [rs]
	OpStore = 0x06 // store [rd], rs
	OpJmp   = 0x07 // jmp rel16 (relative to next instruction)
	OpJnz   = 0x08 // jnz rs, rel16
	OpSys   = 0x09 // sys imm16
	OpJr    = 0x0a // jr rs
)

const numRegs = 16

// Decoder translates demo ISA bytes into intermediate form. Only ISA mode 0
// exists.
type Decoder struct{}

func (Decoder) Decode(src lifter.Source, addr, isaMode uint64) (lifter.Decoded, error) {
	if isaMode != 0 {
		return lifter.Decoded{}, lifter.ErrInvalidInstruction
	}
	var buf [6]byte
	if err := src.FetchBytes(addr, buf[:1]); err != nil {
		return lifter.Decoded{}, lifter.ErrNonExecutableMemory
	}

	fetch := func(n int) error {
		return src.FetchBytes(addr, buf[:n])
	}
	reg := func(i int) (pcode.Value, bool) {
		if int(buf[i]) >= numRegs {
			return pcode.Value{}, false
		}
		return pcode.Reg(int(buf[i]), 8), true
	}

	switch buf[0] {
	case OpHalt:
		return lifter.Decoded{
			Len: 1,
			Ops: []pcode.Instruction{{
				Op:     pcode.OpException,
				Inputs: [2]pcode.Value{pcode.Imm(uint64(exception.Halt)), pcode.Imm(0)},
			}},
			Terminates: true,
		}, nil

	case OpMovi:
		if err := fetch(6); err != nil {
			return lifter.Decoded{}, lifter.ErrNonExecutableMemory
		}
		rd, ok := reg(1)
		if !ok {
			return lifter.Decoded{}, lifter.ErrInvalidInstruction
		}
		imm := uint64(binary.LittleEndian.Uint32(buf[2:6]))
		return lifter.Decoded{
			Len: 6,
			Ops: []pcode.Instruction{{
				Op:     pcode.OpCopy,
				Inputs: [2]pcode.Value{pcode.Imm(imm)},
				Output: rd,
			}},
		}, nil

	case OpMov, OpAdd, OpSub, OpLoad, OpStore:
		if err := fetch(3); err != nil {
			return lifter.Decoded{}, lifter.ErrNonExecutableMemory
		}
		rd, ok1 := reg(1)
		rs, ok2 := reg(2)
		if !ok1 || !ok2 {
			return lifter.Decoded{}, lifter.ErrInvalidInstruction
		}
		var inst pcode.Instruction
		switch buf[0] {
		case OpMov:
			inst = pcode.Instruction{Op: pcode.OpCopy, Inputs: [2]pcode.Value{rs}, Output: rd}
		case OpAdd:
			inst = pcode.Instruction{Op: pcode.OpIntAdd, Inputs: [2]pcode.Value{rd, rs}, Output: rd}
		case OpSub:
			inst = pcode.Instruction{Op: pcode.OpIntSub, Inputs: [2]pcode.Value{rd, rs}, Output: rd}
		case OpLoad:
			inst = pcode.Instruction{Op: pcode.OpLoad, Inputs: [2]pcode.Value{rs}, Output: rd}
		case OpStore:
			inst = pcode.Instruction{Op: pcode.OpStore, Inputs: [2]pcode.Value{rd, rs}}
		}
		return lifter.Decoded{Len: 3, Ops: []pcode.Instruction{inst}}, nil

	case OpJmp:
		if err := fetch(3); err != nil {
			return lifter.Decoded{}, lifter.ErrNonExecutableMemory
		}
		rel := int64(int16(binary.LittleEndian.Uint16(buf[1:3])))
		target := uint64(int64(addr+3) + rel)
		return lifter.Decoded{
			Len: 3,
			Ops: []pcode.Instruction{{
				Op:     pcode.OpBranch,
				Inputs: [2]pcode.Value{pcode.Imm(target)},
			}},
			Terminates: true,
		}, nil

	case OpJnz:
		if err := fetch(4); err != nil {
			return lifter.Decoded{}, lifter.ErrNonExecutableMemory
		}
		rs, ok := reg(1)
		if !ok {
			return lifter.Decoded{}, lifter.ErrInvalidInstruction
		}
		rel := int64(int16(binary.LittleEndian.Uint16(buf[2:4])))
		target := uint64(int64(addr+4) + rel)
		return lifter.Decoded{
			Len: 4,
			Ops: []pcode.Instruction{{
				Op:     pcode.OpCBranch,
				Inputs: [2]pcode.Value{rs, pcode.Imm(target)},
			}},
			Terminates: true,
		}, nil

	case OpSys:
		if err := fetch(3); err != nil {
			return lifter.Decoded{}, lifter.ErrNonExecutableMemory
		}
		num := uint64(binary.LittleEndian.Uint16(buf[1:3]))
		return lifter.Decoded{
			Len: 3,
			Ops: []pcode.Instruction{{
				Op:     pcode.OpException,
				Inputs: [2]pcode.Value{pcode.Imm(uint64(exception.Syscall)), pcode.Imm(num)},
			}},
			Terminates: true,
		}, nil

	case OpJr:
		if err := fetch(2); err != nil {
			return lifter.Decoded{}, lifter.ErrNonExecutableMemory
		}
		rs, ok := reg(1)
		if !ok {
			return lifter.Decoded{}, lifter.ErrInvalidInstruction
		}
		return lifter.Decoded{
			Len: 2,
			Ops: []pcode.Instruction{{
				Op:     pcode.OpIJump,
				Inputs: [2]pcode.Value{rs},
			}},
			Terminates: true,
		}, nil

	default:
		return lifter.Decoded{}, lifter.ErrInvalidInstruction
	}
}
