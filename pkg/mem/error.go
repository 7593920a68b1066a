package mem

// Error is the closed error domain of the memory subsystem. Note that it is
// direction-agnostic: an unmapped load and an unmapped store both report
// ErrUnmapped, and the call site is responsible for remembering whether the
// failing operation was a read or a write when translating the error into an
// exception code.
type Error int

const (
	ErrUnknown Error = iota
	ErrUnallocated
	ErrUnmapped
	ErrUninitialized
	ErrReadViolation
	ErrWriteViolation
	ErrExecViolation
	ErrReadWatch
	ErrWriteWatch
	ErrUnaligned
	ErrOutOfMemory
	ErrSelfModifyingCode
	ErrAddressOverflow
)

var errNames = map[Error]string{
	ErrUnknown:           "unknown memory error",
	ErrUnallocated:       "unallocated",
	ErrUnmapped:          "unmapped",
	ErrUninitialized:     "uninitialized",
	ErrReadViolation:     "read violation",
	ErrWriteViolation:    "write violation",
	ErrExecViolation:     "execute violation",
	ErrReadWatch:         "read watchpoint hit",
	ErrWriteWatch:        "write watchpoint hit",
	ErrUnaligned:         "unaligned access",
	ErrOutOfMemory:       "out of memory",
	ErrSelfModifyingCode: "write to translated code",
	ErrAddressOverflow:   "address overflow",
}

func (e Error) Error() string {
	if name, ok := errNames[e]; ok {
		return name
	}
	return "unknown memory error"
}
