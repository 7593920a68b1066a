package lifter_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrexodia/icicle-emu/pkg/isa"
	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/mem"
	"github.com/mrexodia/icicle-emu/pkg/pcode"
)

// byteSource serves a fixed image at a base address.
type byteSource struct {
	base uint64
	data []byte
}

func (s byteSource) FetchBytes(addr uint64, buf []byte) error {
	off := addr - s.base
	if addr < s.base || off+uint64(len(buf)) > uint64(len(s.data)) {
		return mem.ErrUnmapped
	}
	copy(buf, s.data[off:])
	return nil
}

func TestLiftStraightLine(t *testing.T) {
	var asm isa.Asm
	asm.Movi(1, 5) // 0x1000, 6 bytes
	asm.Add(1, 1)  // 0x1006, 3 bytes
	asm.Halt()     // 0x1009, 1 byte

	l := lifter.NewBlockLifter(isa.Decoder{})
	block, err := l.Lift(byteSource{base: 0x1000, data: asm.Bytes()}, 0x1000, 0)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	if block.Start != 0x1000 || block.End != 0x100a {
		t.Errorf("block range [%#x, %#x), want [0x1000, 0x100a)", block.Start, block.End)
	}
	want := []lifter.NativeInstruction{
		{Addr: 0x1000, Len: 6},
		{Addr: 0x1006, Len: 3},
		{Addr: 0x1009, Len: 1},
	}
	if diff := cmp.Diff(want, block.Instructions()); diff != "" {
		t.Errorf("marker mismatch (-want +got):\n%s", diff)
	}
	if block.Instrs[0].Op != pcode.OpInstructionMarker {
		t.Errorf("block does not start with a marker: %v", block.Instrs[0].Op)
	}
}

func TestLiftStopsAtBranch(t *testing.T) {
	var asm isa.Asm
	asm.Jmp(4)      // terminator
	asm.Movi(1, 99) // never part of this block

	l := lifter.NewBlockLifter(isa.Decoder{})
	block, err := l.Lift(byteSource{base: 0x1000, data: asm.Bytes()}, 0x1000, 0)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	if got := len(block.Instructions()); got != 1 {
		t.Errorf("block covers %d native instructions, want 1", got)
	}
	if block.End != 0x1003 {
		t.Errorf("block end = %#x, want 0x1003", block.End)
	}
}

func TestLiftEntryDecodeError(t *testing.T) {
	l := lifter.NewBlockLifter(isa.Decoder{})

	_, err := l.Lift(byteSource{base: 0x1000, data: []byte{0xff}}, 0x1000, 0)
	if !errors.Is(err, lifter.ErrInvalidInstruction) {
		t.Errorf("invalid entry byte = %v, want ErrInvalidInstruction", err)
	}

	_, err = l.Lift(byteSource{base: 0x1000, data: nil}, 0x1000, 0)
	if !errors.Is(err, lifter.ErrNonExecutableMemory) {
		t.Errorf("unfetchable entry = %v, want ErrNonExecutableMemory", err)
	}
}

func TestLiftTruncatesOnLateDecodeError(t *testing.T) {
	var asm isa.Asm
	asm.Movi(1, 5)
	image := append(asm.Bytes(), 0xff)

	l := lifter.NewBlockLifter(isa.Decoder{})
	block, err := l.Lift(byteSource{base: 0x1000, data: image}, 0x1000, 0)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	if got := len(block.Instructions()); got != 1 {
		t.Errorf("block covers %d native instructions, want 1", got)
	}
	if block.End != 0x1006 {
		t.Errorf("block end = %#x, want 0x1006", block.End)
	}
}

func TestLiftInstructionBound(t *testing.T) {
	var asm isa.Asm
	for i := 0; i < 2*lifter.MaxBlockInstructions; i++ {
		asm.Add(1, 2)
	}

	l := lifter.NewBlockLifter(isa.Decoder{})
	block, err := l.Lift(byteSource{base: 0x1000, data: asm.Bytes()}, 0x1000, 0)
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}
	if got := len(block.Instructions()); got != lifter.MaxBlockInstructions {
		t.Errorf("block covers %d native instructions, want %d", got, lifter.MaxBlockInstructions)
	}
}
