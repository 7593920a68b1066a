package exception

import (
	"testing"

	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/mem"
)

// Every documented code with its stable numeric value. The numbers are part
// of the external contract; this table is the regression guard against
// accidental renumbering.
var documentedCodes = []struct {
	value uint32
	code  Code
}{
	{0x0000, None},
	{0x0001, InstructionLimit},
	{0x0002, Halt},
	{0x0003, Sleep},
	{0x0101, Syscall},
	{0x0102, CpuStateChanged},
	{0x0103, DivideByZero},
	{0x0201, ReadUnmapped},
	{0x0202, ReadPerm},
	{0x0203, ReadUnaligned},
	{0x0204, ReadWatch},
	{0x0205, ReadUninitialized},
	{0x0301, WriteUnmapped},
	{0x0302, WritePerm},
	{0x0303, WriteWatch},
	{0x0304, WriteUnaligned},
	{0x0401, ExecViolation},
	{0x0402, SelfModifyingCode},
	{0x0404, ExecUnaligned},
	{0x0501, OutOfMemory},
	{0x0502, AddressOverflow},
	{0x1001, InvalidInstruction},
	{0x1002, UnknownInterrupt},
	{0x1003, UnknownCpuID},
	{0x1004, InvalidOpSize},
	{0x1005, InvalidFloatSize},
	{0x1006, CodeNotTranslated},
	{0x1007, ShadowStackOverflow},
	{0x1008, ShadowStackInvalid},
	{0x1009, InvalidTarget},
	{0x100a, UnimplementedOp},
	{0x2001, ExternalAddr},
	{0x2002, Environment},
	{0x3001, JitError},
	{0x3002, InternalError},
}

func TestFromU32RoundTrip(t *testing.T) {
	for _, tc := range documentedCodes {
		if got := FromU32(tc.value); got != tc.code {
			t.Errorf("FromU32(%#04x) = %v, want %v", tc.value, got, tc.code)
		}
		if uint32(tc.code) != tc.value {
			t.Errorf("%v has numeric value %#04x, want %#04x", tc.code, uint32(tc.code), tc.value)
		}
	}
}

func TestFromU32Unrecognized(t *testing.T) {
	for _, value := range []uint32{0x0005, 0x0777, 0x4000, 0xffffffff} {
		if got := FromU32(value); got != UnknownError {
			t.Errorf("FromU32(%#04x) = %v, want UnknownError", value, got)
		}
	}
}

func TestFromU32StrictPanics(t *testing.T) {
	prev := SetStrict(true)
	defer SetStrict(prev)

	// Recognized codes still convert normally under strict verification.
	if got := FromU32(0x0201); got != ReadUnmapped {
		t.Fatalf("FromU32(0x0201) = %v, want ReadUnmapped", got)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("FromU32 with unknown code did not panic in strict mode")
		}
	}()
	FromU32(0x4242)
}

func TestIsRunning(t *testing.T) {
	running := map[Code]bool{None: true, InstructionLimit: true}
	for _, tc := range documentedCodes {
		if got := tc.code.IsRunning(); got != running[tc.code] {
			t.Errorf("%v.IsRunning() = %v, want %v", tc.code, got, running[tc.code])
		}
	}
	if UnknownError.IsRunning() {
		t.Errorf("UnknownError.IsRunning() = true, want false")
	}
}

func TestIsMemoryError(t *testing.T) {
	memErrs := map[Code]bool{
		ReadUnmapped: true, ReadPerm: true, ReadUnaligned: true,
		ReadWatch: true, ReadUninitialized: true,
		WriteUnmapped: true, WritePerm: true, WriteWatch: true,
		WriteUnaligned: true, SelfModifyingCode: true,
	}
	for _, tc := range documentedCodes {
		if got := tc.code.IsMemoryError(); got != memErrs[tc.code] {
			t.Errorf("%v.IsMemoryError() = %v, want %v", tc.code, got, memErrs[tc.code])
		}
	}
	if UnknownError.IsMemoryError() {
		t.Errorf("UnknownError.IsMemoryError() = true, want false")
	}
}

func TestDirectionalConversion(t *testing.T) {
	// The same underlying error yields different codes depending on which
	// direction the call site reports: direction lives at the call site,
	// not in the error value.
	if got := FromLoadError(mem.ErrUnmapped); got != ReadUnmapped {
		t.Errorf("FromLoadError(ErrUnmapped) = %v, want ReadUnmapped", got)
	}
	if got := FromStoreError(mem.ErrUnmapped); got != WriteUnmapped {
		t.Errorf("FromStoreError(ErrUnmapped) = %v, want WriteUnmapped", got)
	}

	cases := []struct {
		err   mem.Error
		load  Code
		store Code
	}{
		{mem.ErrUnmapped, ReadUnmapped, WriteUnmapped},
		{mem.ErrUnaligned, ReadUnaligned, WriteUnaligned},
		{mem.ErrReadWatch, ReadWatch, ReadWatch},
		{mem.ErrWriteWatch, WriteWatch, WriteWatch},
		{mem.ErrReadViolation, ReadPerm, ReadPerm},
		{mem.ErrWriteViolation, WritePerm, WritePerm},
		{mem.ErrOutOfMemory, OutOfMemory, OutOfMemory},
		{mem.ErrSelfModifyingCode, SelfModifyingCode, SelfModifyingCode},
	}
	for _, tc := range cases {
		if got := FromLoadError(tc.err); got != tc.load {
			t.Errorf("FromLoadError(%v) = %v, want %v", tc.err, got, tc.load)
		}
		if got := FromStoreError(tc.err); got != tc.store {
			t.Errorf("FromStoreError(%v) = %v, want %v", tc.err, got, tc.store)
		}
	}
}

func TestFromMemError(t *testing.T) {
	// Execute fetches keep their own family instead of reusing the read
	// family.
	if got := FromMemError(mem.ErrExecViolation); got != ExecViolation {
		t.Errorf("FromMemError(ErrExecViolation) = %v, want ExecViolation", got)
	}
	// Errors the memory subsystem should have handled itself degrade to the
	// catch-all.
	if got := FromMemError(mem.ErrUnallocated); got != UnknownError {
		t.Errorf("FromMemError(ErrUnallocated) = %v, want UnknownError", got)
	}
	if got := FromMemError(mem.ErrUnknown); got != UnknownError {
		t.Errorf("FromMemError(ErrUnknown) = %v, want UnknownError", got)
	}
}

func TestFromDecodeError(t *testing.T) {
	cases := []struct {
		err  lifter.DecodeError
		want Code
	}{
		{lifter.ErrInvalidInstruction, InvalidInstruction},
		{lifter.ErrNonExecutableMemory, ExecViolation},
		{lifter.ErrBadAlignment, ExecUnaligned},
		{lifter.ErrDisassemblyChanged, SelfModifyingCode},
		{lifter.ErrOptimizationError, UnknownError},
	}
	for _, tc := range cases {
		if got := FromDecodeError(tc.err); got != tc.want {
			t.Errorf("FromDecodeError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
