package regs

// NumRegs is the number of general-purpose slots in the register file. The
// execution core does not care which guest registers map to which slots;
// that assignment belongs to the lifter.
const NumRegs = 32

// File is the typed register storage for one CPU. Reads and writes narrower
// than 8 bytes operate on the low-order bytes of the slot, matching the
// little-endian convention used by guest memory.
type File struct {
	slots [NumRegs]uint64
}

func (f *File) Read(slot int) uint64 {
	if slot < 0 || slot >= NumRegs {
		return 0
	}
	return f.slots[slot]
}

func (f *File) Write(slot int, value uint64) {
	if slot < 0 || slot >= NumRegs {
		return
	}
	f.slots[slot] = value
}

// ReadSized returns the low size bytes of a slot, zero-extended.
func (f *File) ReadSized(slot, size int) uint64 {
	return Truncate(f.Read(slot), size)
}

// WriteSized stores the low size bytes of value, leaving the remaining bytes
// of the slot zeroed (writes always clear the full slot first).
func (f *File) WriteSized(slot int, value uint64, size int) {
	f.Write(slot, Truncate(value, size))
}

// Truncate masks value down to the low size bytes.
func Truncate(value uint64, size int) uint64 {
	switch size {
	case 1:
		return value & 0xff
	case 2:
		return value & 0xffff
	case 4:
		return value & 0xffffffff
	default:
		return value
	}
}

// SignExtend interprets the low size bytes of value as a signed integer and
// extends it to 64 bits.
func SignExtend(value uint64, size int) int64 {
	switch size {
	case 1:
		return int64(int8(value))
	case 2:
		return int64(int16(value))
	case 4:
		return int64(int32(value))
	default:
		return int64(value)
	}
}

// Snapshot returns a copy of all slots.
func (f *File) Snapshot() [NumRegs]uint64 {
	return f.slots
}

// Restore overwrites all slots from a snapshot.
func (f *File) Restore(slots [NumRegs]uint64) {
	f.slots = slots
}
