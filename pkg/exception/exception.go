package exception

import "fmt"

// Code is the unified exception taxonomy every fault in the engine is
// normalized into. The numeric values are part of the external contract:
// they appear in snapshots, traces and debugger output, and must never be
// renumbered. Codes are grouped by family through their high byte.
type Code uint32

const (
	None Code = 0x0000

	// Control exits: not faults, the interpreter continues or stops
	// gracefully.
	InstructionLimit Code = 0x0001
	Halt             Code = 0x0002
	Sleep            Code = 0x0003

	// Fault traps raised by guest instructions.
	Syscall         Code = 0x0101
	CpuStateChanged Code = 0x0102
	DivideByZero    Code = 0x0103

	// Memory read faults.
	ReadUnmapped      Code = 0x0201
	ReadPerm          Code = 0x0202
	ReadUnaligned     Code = 0x0203
	ReadWatch         Code = 0x0204
	ReadUninitialized Code = 0x0205

	// Memory write faults.
	WriteUnmapped  Code = 0x0301
	WritePerm      Code = 0x0302
	WriteWatch     Code = 0x0303
	WriteUnaligned Code = 0x0304

	// Execution-integrity faults. Fetch faults are read-like but keep their
	// own family so "can't execute this" stays distinguishable from "can't
	// read this".
	ExecViolation     Code = 0x0401
	SelfModifyingCode Code = 0x0402
	ExecUnaligned     Code = 0x0404

	OutOfMemory     Code = 0x0501
	AddressOverflow Code = 0x0502

	// Decode/translation-integrity faults.
	InvalidInstruction  Code = 0x1001
	UnknownInterrupt    Code = 0x1002
	UnknownCpuID        Code = 0x1003
	InvalidOpSize       Code = 0x1004
	InvalidFloatSize    Code = 0x1005
	CodeNotTranslated   Code = 0x1006
	ShadowStackOverflow Code = 0x1007
	ShadowStackInvalid  Code = 0x1008
	InvalidTarget       Code = 0x1009
	UnimplementedOp     Code = 0x100a

	// Host/environment faults.
	ExternalAddr Code = 0x2001
	Environment  Code = 0x2002

	// Internal-consistency faults.
	JitError      Code = 0x3001
	InternalError Code = 0x3002

	// UnknownError is the catch-all for codes this build does not recognize
	// (e.g. arriving in a snapshot written by a different build).
	UnknownError Code = 0x3003
)

var codeNames = map[Code]string{
	None:                "None",
	InstructionLimit:    "InstructionLimit",
	Halt:                "Halt",
	Sleep:               "Sleep",
	Syscall:             "Syscall",
	CpuStateChanged:     "CpuStateChanged",
	DivideByZero:        "DivideByZero",
	ReadUnmapped:        "ReadUnmapped",
	ReadPerm:            "ReadPerm",
	ReadUnaligned:       "ReadUnaligned",
	ReadWatch:           "ReadWatch",
	ReadUninitialized:   "ReadUninitialized",
	WriteUnmapped:       "WriteUnmapped",
	WritePerm:           "WritePerm",
	WriteWatch:          "WriteWatch",
	WriteUnaligned:      "WriteUnaligned",
	ExecViolation:       "ExecViolation",
	SelfModifyingCode:   "SelfModifyingCode",
	ExecUnaligned:       "ExecUnaligned",
	OutOfMemory:         "OutOfMemory",
	AddressOverflow:     "AddressOverflow",
	InvalidInstruction:  "InvalidInstruction",
	UnknownInterrupt:    "UnknownInterrupt",
	UnknownCpuID:        "UnknownCpuID",
	InvalidOpSize:       "InvalidOpSize",
	InvalidFloatSize:    "InvalidFloatSize",
	CodeNotTranslated:   "CodeNotTranslated",
	ShadowStackOverflow: "ShadowStackOverflow",
	ShadowStackInvalid:  "ShadowStackInvalid",
	InvalidTarget:       "InvalidTarget",
	UnimplementedOp:     "UnimplementedOp",
	ExternalAddr:        "ExternalAddr",
	Environment:         "Environment",
	JitError:            "JitError",
	InternalError:       "InternalError",
	UnknownError:        "UnknownError",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%#04x)", uint32(c))
}

// strict controls the verification behavior of FromU32. In production an
// unrecognized code must never crash the emulator; during development it
// indicates a taxonomy mismatch that must be found immediately. The flag is
// runtime state rather than a build tag so both behaviors stay testable.
var strict bool

// SetStrict enables or disables strict verification and returns the previous
// setting.
func SetStrict(enabled bool) bool {
	prev := strict
	strict = enabled
	return prev
}

// FromU32 maps a raw numeric code back onto the taxonomy. Recognized values
// map 1:1; unrecognized values map to UnknownError, or panic under strict
// verification.
func FromU32(code uint32) Code {
	c := Code(code)
	if _, ok := codeNames[c]; ok && c != UnknownError {
		return c
	}
	if strict {
		panic(fmt.Sprintf("unknown exception code: %#04x", code))
	}
	return UnknownError
}

// IsRunning reports whether the interpreter loop may continue (or stop
// gracefully) under this code without treating it as a fault. Only None and
// InstructionLimit qualify.
func (c Code) IsRunning() bool {
	return c == None || c == InstructionLimit
}

// IsMemoryError reports whether this code belongs to the read or write fault
// families or is SelfModifyingCode. Callers use it to decide whether the
// memory subsystem can supply a human-readable diagnostic.
func (c Code) IsMemoryError() bool {
	switch c {
	case ReadUnmapped, ReadPerm, ReadUnaligned, ReadWatch, ReadUninitialized,
		WriteUnmapped, WritePerm, WriteWatch, WriteUnaligned,
		SelfModifyingCode:
		return true
	}
	return false
}
