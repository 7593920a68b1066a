package lifter

// DecodeError is the closed error domain of instruction decoding and block
// translation.
type DecodeError int

const (
	// ErrInvalidInstruction reports bytes that do not decode to any
	// instruction in the current ISA mode.
	ErrInvalidInstruction DecodeError = iota
	// ErrNonExecutableMemory reports a fetch from memory without execute
	// permission.
	ErrNonExecutableMemory
	// ErrBadAlignment reports a fetch from a misaligned entry address.
	ErrBadAlignment
	// ErrDisassemblyChanged reports that the underlying bytes changed while
	// the block was being translated.
	ErrDisassemblyChanged
	// ErrOptimizationError reports an internal failure in the optimizer. It
	// is not actionable by the guest, only by the engine.
	ErrOptimizationError
)

func (e DecodeError) Error() string {
	switch e {
	case ErrInvalidInstruction:
		return "invalid instruction"
	case ErrNonExecutableMemory:
		return "fetch from non-executable memory"
	case ErrBadAlignment:
		return "misaligned instruction fetch"
	case ErrDisassemblyChanged:
		return "code bytes changed during translation"
	case ErrOptimizationError:
		return "internal optimization error"
	default:
		return "unknown decode error"
	}
}
