package cpu

import (
	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/pcode"
)

// BlockKey identifies a translation entry point. The ISA mode is a secondary
// key so different instruction-set variants at the same address translate to
// different blocks.
type BlockKey struct {
	Vaddr   uint64
	IsaMode uint64
}

// BlockTable keeps track of all the code the engine has discovered and
// lifted. It owns the lookup map, the block store, the disassembly-text
// cache, the breakpoint set and the modified set; no other component mutates
// them directly. The table is not safe for concurrent mutation: one table
// serves one CPU.
type BlockTable struct {
	// Map is the translation cache: entry point -> block group.
	Map map[BlockKey]lifter.BlockGroup
	// Blocks is the append-only block store. An index into it is the stable
	// identity of a block until the next flush.
	Blocks []lifter.Block
	// Disasm caches disassembly text by native address.
	Disasm map[uint64]string
	// Breakpoints is the set of native addresses with an active breakpoint.
	// Breakpoints are user intent, independent of translation state, and
	// survive code flushes.
	Breakpoints map[uint64]struct{}
	// Modified is the set of block-store indices whose underlying bytes have
	// been written since translation. A non-empty set means the cache is
	// stale; whether and when to flush is the driver's decision, not the
	// table's.
	Modified map[int]struct{}
}

func NewBlockTable() *BlockTable {
	return &BlockTable{
		Map:         make(map[BlockKey]lifter.BlockGroup),
		Disasm:      make(map[uint64]string),
		Breakpoints: make(map[uint64]struct{}),
		Modified:    make(map[int]struct{}),
	}
}

// Lookup returns the block group translated for key. The group is a small
// value and is returned by copy; it cannot alias the store.
func (t *BlockTable) Lookup(key BlockKey) (lifter.BlockGroup, bool) {
	group, ok := t.Map[key]
	return group, ok
}

// Insert records the mapping for key. The group's range is not validated
// here: only the lifter allocates block-store entries, so keeping the range
// in bounds is its obligation.
func (t *BlockTable) Insert(key BlockKey, group lifter.BlockGroup) {
	t.Map[key] = group
}

// AppendBlock adds a block to the store and returns its index. This is the
// only way block-store indices are created.
func (t *BlockTable) AppendBlock(block lifter.Block) int {
	t.Blocks = append(t.Blocks, block)
	return len(t.Blocks) - 1
}

// MarkModified records that the bytes block index was lifted from have been
// overwritten. The table never flushes on its own; flush timing is a
// scheduling decision that belongs to the driver.
func (t *BlockTable) MarkModified(index int) {
	if index < 0 || index >= len(t.Blocks) {
		return
	}
	t.Modified[index] = struct{}{}
}

// MarkModifiedRange marks every block whose native range overlaps
// [addr, addr+size) as modified, and reports whether any did. This is the
// write-barrier hook the driver calls when the memory subsystem reports a
// store into guest memory.
func (t *BlockTable) MarkModifiedRange(addr, size uint64) bool {
	hit := false
	for i := range t.Blocks {
		b := &t.Blocks[i]
		if addr < b.End && addr+size > b.Start {
			t.Modified[i] = struct{}{}
			hit = true
		}
	}
	return hit
}

// FlushCode drops every translation as one step: lookup map, block store,
// disassembly cache and modified set are cleared together so no stale view
// of any of them can be observed. Breakpoints are deliberately untouched.
func (t *BlockTable) FlushCode() {
	t.Map = make(map[BlockKey]lifter.BlockGroup)
	t.Blocks = t.Blocks[:0]
	t.Disasm = make(map[uint64]string)
	t.Modified = make(map[int]struct{})
}

// AddressOf reconstructs the native address for a position in the lifted
// instruction stream of block id: the address carried by the closest
// instruction marker at or before offset. A well-formed block always starts
// with a marker, so a zero result signals a malformed or empty block rather
// than a valid address.
func (t *BlockTable) AddressOf(id int, offset int) uint64 {
	if id < 0 || id >= len(t.Blocks) {
		return 0
	}
	addr := uint64(0)
	instrs := t.Blocks[id].Instrs
	for i := 0; i <= offset && i < len(instrs); i++ {
		if instrs[i].Op == pcode.OpInstructionMarker {
			addr = instrs[i].Inputs[0].Imm
		}
	}
	return addr
}

// GetInfo returns a read-only view over the group translated for key.
func (t *BlockTable) GetInfo(key BlockKey) (*BlockInfo, bool) {
	group, ok := t.Map[key]
	if !ok {
		return nil, false
	}
	return &BlockInfo{group: group, code: t}, true
}

// AddBreakpoint arms a breakpoint at a native address.
func (t *BlockTable) AddBreakpoint(addr uint64) {
	t.Breakpoints[addr] = struct{}{}
}

// RemoveBreakpoint disarms the breakpoint at addr, if any.
func (t *BlockTable) RemoveBreakpoint(addr uint64) {
	delete(t.Breakpoints, addr)
}

// HasBreakpoint reports whether a breakpoint is armed at addr.
func (t *BlockTable) HasBreakpoint(addr uint64) bool {
	_, ok := t.Breakpoints[addr]
	return ok
}

// BlockInfo is a view over one block group. Its lifetime is bounded by the
// owning table: it must not be used across a flush.
type BlockInfo struct {
	group lifter.BlockGroup
	code  *BlockTable
}

func (info *BlockInfo) Group() lifter.BlockGroup {
	return info.group
}

// EntryBlock returns the group's entry block.
func (info *BlockInfo) EntryBlock() *lifter.Block {
	return &info.code.Blocks[info.group.Start]
}

// Instructions returns a restartable iterator over the (start address,
// length) pair of every native instruction in the group, in block order.
func (info *BlockInfo) Instructions() *InstructionIter {
	return &InstructionIter{info: info, block: info.group.Start}
}

// InstructionIter walks native instructions across a block group. Each call
// to Instructions yields a fresh iterator, so walks are restartable.
type InstructionIter struct {
	info   *BlockInfo
	block  int
	offset int
}

// Next returns the next native (address, length) pair; ok is false when the
// group is exhausted.
func (it *InstructionIter) Next() (addr, length uint64, ok bool) {
	for it.block < it.info.group.End {
		instrs := it.info.code.Blocks[it.block].Instrs
		for it.offset < len(instrs) {
			inst := instrs[it.offset]
			it.offset++
			if inst.Op == pcode.OpInstructionMarker {
				return inst.Inputs[0].Imm, inst.Inputs[1].Imm, true
			}
		}
		it.block++
		it.offset = 0
	}
	return 0, 0, false
}
