package lifter

import "github.com/mrexodia/icicle-emu/pkg/pcode"

// Block is one lifted native basic block: an owned, immutable instruction
// stream plus the native address range it was lifted from. Blocks never
// reference other blocks; successors are plain address values resolved
// through the block table at execution time, so no ownership cycles can
// form between blocks.
type Block struct {
	// Instrs is the lifted instruction stream. The first instruction of a
	// well-formed block is always an instruction marker.
	Instrs []pcode.Instruction
	// Start and End delimit the native byte range [Start, End) the block was
	// lifted from.
	Start uint64
	End   uint64
	// IsaMode records the instruction-set mode the bytes were decoded under.
	IsaMode uint64
}

// Instructions returns the (start address, length) pair of every native
// instruction in the block, in stream order, recovered from the boundary
// markers.
func (b *Block) Instructions() []NativeInstruction {
	var out []NativeInstruction
	for _, inst := range b.Instrs {
		if inst.Op == pcode.OpInstructionMarker {
			out = append(out, NativeInstruction{
				Addr: inst.Inputs[0].Imm,
				Len:  inst.Inputs[1].Imm,
			})
		}
	}
	return out
}

// NativeInstruction identifies one native instruction a block was lifted
// from.
type NativeInstruction struct {
	Addr uint64
	Len  uint64
}

// BlockGroup is a contiguous index range [Start, End) over a block store,
// identifying all blocks of one translation unit. The block at Start is the
// entry block. Groups are small values and are always copied, never aliased
// into the store.
type BlockGroup struct {
	Start int
	End   int
}

func (g BlockGroup) Len() int {
	return g.End - g.Start
}

// Contains reports whether index is inside the group's range.
func (g BlockGroup) Contains(index int) bool {
	return index >= g.Start && index < g.End
}
