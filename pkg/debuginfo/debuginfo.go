package debuginfo

import "sort"

// SourceLocation is the shape of symbolication results the core consumes.
// How the information is obtained (symbol files, debug sections, maps) is
// the environment's business.
type SourceLocation struct {
	Symbol string
	File   string
	Line   int
	// Offset is the distance from the symbol's start address.
	Offset uint64
}

// Symbol is one named address range.
type Symbol struct {
	Name string
	Addr uint64
	Size uint64
}

// DebugInfo is a best-effort symbol table. Lookups that find nothing report
// absence, never failure.
type DebugInfo struct {
	byName map[string]Symbol
	sorted []Symbol // ascending by Addr
}

func New() *DebugInfo {
	return &DebugInfo{byName: make(map[string]Symbol)}
}

func (d *DebugInfo) AddSymbol(sym Symbol) {
	d.byName[sym.Name] = sym
	i := sort.Search(len(d.sorted), func(i int) bool { return d.sorted[i].Addr >= sym.Addr })
	d.sorted = append(d.sorted, Symbol{})
	copy(d.sorted[i+1:], d.sorted[i:])
	d.sorted[i] = sym
}

// LookupName resolves a symbol name to its start address.
func (d *DebugInfo) LookupName(name string) (uint64, bool) {
	sym, ok := d.byName[name]
	return sym.Addr, ok
}

// SymbolizeAddr finds the symbol covering addr, if any.
func (d *DebugInfo) SymbolizeAddr(addr uint64) (SourceLocation, bool) {
	i := sort.Search(len(d.sorted), func(i int) bool { return d.sorted[i].Addr > addr })
	if i == 0 {
		return SourceLocation{}, false
	}
	sym := d.sorted[i-1]
	if sym.Size != 0 && addr >= sym.Addr+sym.Size {
		return SourceLocation{}, false
	}
	return SourceLocation{Symbol: sym.Name, Offset: addr - sym.Addr}, true
}
