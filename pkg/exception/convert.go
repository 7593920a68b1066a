package exception

import (
	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/mem"
)

// The memory subsystem's error domain does not record whether the failing
// operation was a load or a store; both directions share the same underlying
// error values. The call site knows, so the taxonomy provides directional
// conversions that pick the read or write family accordingly, plus a
// direction-agnostic fallback for sites that cannot supply one.

// FromLoadError converts a memory error raised by a load into the read
// fault family.
func FromLoadError(err mem.Error) Code {
	switch err {
	case mem.ErrUnmapped:
		return ReadUnmapped
	case mem.ErrUninitialized:
		return ReadUninitialized
	case mem.ErrReadViolation:
		return ReadPerm
	case mem.ErrUnaligned:
		return ReadUnaligned
	case mem.ErrReadWatch:
		return ReadWatch
	default:
		return FromMemError(err)
	}
}

// FromStoreError converts a memory error raised by a store into the write
// fault family.
func FromStoreError(err mem.Error) Code {
	switch err {
	case mem.ErrUnmapped:
		return WriteUnmapped
	case mem.ErrWriteViolation:
		return WritePerm
	case mem.ErrUnaligned:
		return WriteUnaligned
	case mem.ErrWriteWatch:
		return WriteWatch
	default:
		return FromMemError(err)
	}
}

// FromMemError is the direction-agnostic conversion, used for execute
// fetches and any other site that cannot name a direction. Direction-shared
// errors resolve to the read family.
func FromMemError(err mem.Error) Code {
	switch err {
	case mem.ErrUnmapped:
		return ReadUnmapped
	case mem.ErrUninitialized:
		return ReadUninitialized
	case mem.ErrReadViolation:
		return ReadPerm
	case mem.ErrWriteViolation:
		return WritePerm
	case mem.ErrExecViolation:
		return ExecViolation
	case mem.ErrReadWatch:
		return ReadWatch
	case mem.ErrWriteWatch:
		return WriteWatch
	case mem.ErrUnaligned:
		return ReadUnaligned
	case mem.ErrOutOfMemory:
		return OutOfMemory
	case mem.ErrSelfModifyingCode:
		return SelfModifyingCode
	case mem.ErrAddressOverflow:
		return AddressOverflow
	default:
		// ErrUnallocated and ErrUnknown should have been handled inside the
		// memory subsystem.
		return UnknownError
	}
}

// FromDecodeError converts a translation failure into the
// decode/translation-integrity family. Optimizer failures map to the
// catch-all: they are actionable by the engine, not the guest.
func FromDecodeError(err lifter.DecodeError) Code {
	switch err {
	case lifter.ErrInvalidInstruction:
		return InvalidInstruction
	case lifter.ErrNonExecutableMemory:
		return ExecViolation
	case lifter.ErrBadAlignment:
		return ExecUnaligned
	case lifter.ErrDisassemblyChanged:
		return SelfModifyingCode
	default:
		return UnknownError
	}
}
