package lifter

import "github.com/mrexodia/icicle-emu/pkg/pcode"

// Source provides the bytes a block is lifted from. Fetches fail with the
// memory subsystem's error values; the lifter folds them into its own
// DecodeError domain before they escape.
type Source interface {
	FetchBytes(addr uint64, buf []byte) error
}

// Decoded is the result of decoding a single native instruction.
type Decoded struct {
	// Len is the encoded length of the native instruction in bytes.
	Len uint64
	// Ops is the instruction's intermediate-form semantics, excluding the
	// boundary marker, which the block lifter emits itself.
	Ops []pcode.Instruction
	// Terminates marks instructions that end a basic block (branches, traps,
	// anything that redirects control flow).
	Terminates bool
}

// Decoder translates one native instruction into intermediate form. This is
// the boundary to the external instruction decoder; the execution core never
// looks at guest bytes itself.
type Decoder interface {
	Decode(src Source, addr, isaMode uint64) (Decoded, error)
}

// MaxBlockInstructions bounds how many native instructions a single lifted
// block may cover. Long straight-line runs are split so breakpoint checks
// and timer yields happen at a reasonable granularity.
const MaxBlockInstructions = 64

// BlockLifter drives a Decoder over a byte source, producing marker-prefixed
// blocks. It owns the shape of translation output; the decoder owns only
// per-instruction semantics.
type BlockLifter struct {
	decoder Decoder
}

func NewBlockLifter(decoder Decoder) *BlockLifter {
	return &BlockLifter{decoder: decoder}
}

// Lift translates the basic block starting at addr. Decoding proceeds until
// the first terminating instruction or the per-block instruction bound.
// Every native instruction contributes a boundary marker followed by its
// semantics, so the lifted stream doubles as the offset-to-address lookup
// table consumed by BlockTable.AddressOf.
func (l *BlockLifter) Lift(src Source, addr, isaMode uint64) (Block, error) {
	block := Block{Start: addr, End: addr, IsaMode: isaMode}
	pc := addr
	for count := 0; count < MaxBlockInstructions; count++ {
		decoded, err := l.decoder.Decode(src, pc, isaMode)
		if err != nil {
			if count == 0 {
				if derr, ok := err.(DecodeError); ok {
					return Block{}, derr
				}
				return Block{}, ErrInvalidInstruction
			}
			// A decode failure past the entry ends the block early; the
			// failing address gets its own (failing) translation when
			// execution actually reaches it.
			break
		}
		block.Instrs = append(block.Instrs, pcode.Marker(pc, decoded.Len))
		block.Instrs = append(block.Instrs, decoded.Ops...)
		pc += decoded.Len
		block.End = pc
		if decoded.Terminates {
			break
		}
	}
	return block, nil
}
