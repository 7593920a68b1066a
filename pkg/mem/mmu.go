package mem

import (
	"encoding/binary"
	"fmt"
)

// Constants for guest memory layout and access control
const (
	PageSize = 1 << 12
	PageMask = PageSize - 1
)

// Perm is a bitmask of page access rights.
type Perm uint8

const (
	PermNone  Perm = 0
	PermRead  Perm = 1 << 0
	PermWrite Perm = 1 << 1
	PermExec  Perm = 1 << 2
)

const PermAll = PermRead | PermWrite | PermExec

// Mmu is a page-granular guest memory image. It is the authoritative owner of
// page content, permissions, and watchpoints; everything else reaches guest
// memory through it. Accesses that cannot be satisfied fail with one value of
// the closed Error domain above, never with a raw Go error.
type Mmu struct {
	pages map[uint64][]byte // page number -> page content
	perms map[uint64]Perm   // page number -> access rights

	readWatch  map[uint64]struct{}
	writeWatch map[uint64]struct{}

	// MaxPages bounds how many pages may be mapped; 0 means unbounded.
	MaxPages int
	// RequireAlignment makes multi-byte accesses fail with ErrUnaligned when
	// the address is not a multiple of the access size.
	RequireAlignment bool
}

func NewMmu() *Mmu {
	return &Mmu{
		pages:      make(map[uint64][]byte),
		perms:      make(map[uint64]Perm),
		readWatch:  make(map[uint64]struct{}),
		writeWatch: make(map[uint64]struct{}),
	}
}

func pageAndOffset(addr uint64) (pageNum uint64, offset uint64) {
	return addr / PageSize, addr & PageMask
}

// Map establishes permissions for all pages covering [addr, addr+size),
// allocating zeroed content for pages not yet backed.
func (m *Mmu) Map(addr, size uint64, perm Perm) error {
	if size == 0 {
		return fmt.Errorf("zero-length mapping at %#x", addr)
	}
	if addr+size < addr {
		return ErrAddressOverflow
	}
	first := addr / PageSize
	last := (addr + size - 1) / PageSize
	if m.MaxPages > 0 {
		// Re-mapping already-backed pages (a permission change) costs
		// nothing against the budget.
		newPages := 0
		for p := first; p <= last; p++ {
			if _, ok := m.pages[p]; !ok {
				newPages++
			}
		}
		if len(m.pages)+newPages > m.MaxPages {
			return ErrOutOfMemory
		}
	}
	for p := first; p <= last; p++ {
		if _, ok := m.pages[p]; !ok {
			m.pages[p] = make([]byte, PageSize)
		}
		m.perms[p] = perm
	}
	return nil
}

// Unmap drops all pages covering [addr, addr+size). The caller owns flushing
// any translated code that referenced the region.
func (m *Mmu) Unmap(addr, size uint64) {
	if size == 0 {
		return
	}
	first := addr / PageSize
	last := (addr + size - 1) / PageSize
	for p := first; p <= last; p++ {
		delete(m.pages, p)
		delete(m.perms, p)
	}
}

// IsMapped reports whether every page covering [addr, addr+size) is mapped.
func (m *Mmu) IsMapped(addr, size uint64) bool {
	if addr+size < addr {
		return false
	}
	first := addr / PageSize
	last := (addr + size - 1) / PageSize
	for p := first; p <= last; p++ {
		if _, ok := m.pages[p]; !ok {
			return false
		}
	}
	return true
}

func (m *Mmu) AddReadWatch(addr uint64)  { m.readWatch[addr] = struct{}{} }
func (m *Mmu) AddWriteWatch(addr uint64) { m.writeWatch[addr] = struct{}{} }
func (m *Mmu) RemoveReadWatch(addr uint64) {
	delete(m.readWatch, addr)
}
func (m *Mmu) RemoveWriteWatch(addr uint64) {
	delete(m.writeWatch, addr)
}

func (m *Mmu) checkAccess(addr uint64, size int, want Perm) error {
	if size <= 0 {
		return ErrUnknown
	}
	end := addr + uint64(size)
	if end < addr {
		return ErrAddressOverflow
	}
	if m.RequireAlignment && size > 1 && addr%uint64(size) != 0 {
		return ErrUnaligned
	}
	first := addr / PageSize
	last := (end - 1) / PageSize
	for p := first; p <= last; p++ {
		perm, ok := m.perms[p]
		if !ok {
			return ErrUnmapped
		}
		if perm&want != want {
			switch {
			case want&PermExec != 0:
				return ErrExecViolation
			case want&PermWrite != 0:
				return ErrWriteViolation
			default:
				return ErrReadViolation
			}
		}
	}
	return nil
}

func (m *Mmu) watchHit(addr uint64, size int, watch map[uint64]struct{}) bool {
	for i := 0; i < size; i++ {
		if _, ok := watch[addr+uint64(i)]; ok {
			return true
		}
	}
	return false
}

// ReadBytes fills buf from guest memory starting at addr.
func (m *Mmu) ReadBytes(addr uint64, buf []byte) error {
	if err := m.checkAccess(addr, len(buf), PermRead); err != nil {
		return err
	}
	if m.watchHit(addr, len(buf), m.readWatch) {
		return ErrReadWatch
	}
	return m.copyOut(addr, buf)
}

// WriteBytes copies buf into guest memory starting at addr.
func (m *Mmu) WriteBytes(addr uint64, buf []byte) error {
	if err := m.checkAccess(addr, len(buf), PermWrite); err != nil {
		return err
	}
	if m.watchHit(addr, len(buf), m.writeWatch) {
		return ErrWriteWatch
	}
	return m.copyIn(addr, buf)
}

// FetchBytes reads instruction bytes. Fetches are read-like but checked
// against execute permission so "can't execute this" stays distinguishable
// from "can't read this".
func (m *Mmu) FetchBytes(addr uint64, buf []byte) error {
	if err := m.checkAccess(addr, len(buf), PermExec); err != nil {
		return err
	}
	return m.copyOut(addr, buf)
}

func (m *Mmu) copyOut(addr uint64, buf []byte) error {
	for done := 0; done < len(buf); {
		p, off := pageAndOffset(addr + uint64(done))
		page, ok := m.pages[p]
		if !ok {
			return ErrUnmapped
		}
		done += copy(buf[done:], page[off:])
	}
	return nil
}

func (m *Mmu) copyIn(addr uint64, buf []byte) error {
	for done := 0; done < len(buf); {
		p, off := pageAndOffset(addr + uint64(done))
		page, ok := m.pages[p]
		if !ok {
			return ErrUnmapped
		}
		done += copy(page[off:], buf[done:])
	}
	return nil
}

// Read performs a little-endian load of size bytes (1, 2, 4 or 8).
func (m *Mmu) Read(addr uint64, size int) (uint64, error) {
	var buf [8]byte
	if size < 1 || size > 8 {
		return 0, ErrUnknown
	}
	if err := m.ReadBytes(addr, buf[:size]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Write performs a little-endian store of size bytes (1, 2, 4 or 8).
func (m *Mmu) Write(addr uint64, value uint64, size int) error {
	var buf [8]byte
	if size < 1 || size > 8 {
		return ErrUnknown
	}
	binary.LittleEndian.PutUint64(buf[:], value)
	return m.WriteBytes(addr, buf[:size])
}

// Snapshot captures the full content and permission state of the Mmu.
func (m *Mmu) Snapshot() *MmuSnapshot {
	snap := &MmuSnapshot{
		Pages: make(map[uint64][]byte, len(m.pages)),
		Perms: make(map[uint64]Perm, len(m.perms)),
	}
	for p, content := range m.pages {
		dup := make([]byte, len(content))
		copy(dup, content)
		snap.Pages[p] = dup
	}
	for p, perm := range m.perms {
		snap.Perms[p] = perm
	}
	return snap
}

// Restore reinstates a snapshot previously produced by this Mmu's Snapshot.
// Watchpoints are user-intent state and are left untouched.
func (m *Mmu) Restore(snap *MmuSnapshot) {
	m.pages = make(map[uint64][]byte, len(snap.Pages))
	m.perms = make(map[uint64]Perm, len(snap.Perms))
	for p, content := range snap.Pages {
		dup := make([]byte, len(content))
		copy(dup, content)
		m.pages[p] = dup
	}
	for p, perm := range snap.Perms {
		m.perms[p] = perm
	}
}

type MmuSnapshot struct {
	Pages map[uint64][]byte
	Perms map[uint64]Perm
}
