package cpu

import (
	"errors"
	"math"

	"github.com/mrexodia/icicle-emu/pkg/debuginfo"
)

// EnvSnapshot is an opaque capture of environment-owned state. Payloads are
// private to the environment implementation that produced them; the kind tag
// exists so Restore can reject a snapshot from a different implementation,
// which is a programmer error rather than a recoverable runtime condition.
type EnvSnapshot interface {
	EnvKind() string
}

// Environment is the abstraction boundary to a guest execution context:
// bare-metal firmware, an OS process, a kernel. Exactly one environment is
// active per running CPU and it is exclusively owned by the engine for the
// session.
type Environment interface {
	// Load loads the guest image into the environment. On success the CPU's
	// registers and entry state already reflect the guest's start state:
	// entry-point setup belongs to Load, not the caller.
	Load(cpu *Cpu, image []byte) error

	// HandleException is called whenever the CPU raises a fault or trap. A
	// nil result means the condition was fully resolved (a guest signal was
	// delivered, a syscall emulated) and execution resumes; a non-nil result
	// escalates out of the engine, and the faulting instruction is never
	// resumed afterwards.
	HandleException(cpu *Cpu) *VmExit

	// NextTimer returns the next absolute instruction count at which the
	// interpreter loop must stop and re-enter the environment even absent a
	// fault. Environments without periodic work report "never".
	NextTimer() uint64

	// DebugInfo exposes the debug information loaded for the current guest,
	// or nil if there is none.
	DebugInfo() *debuginfo.DebugInfo

	// SymbolizeAddr is a best-effort reverse symbol lookup; absence of
	// information is normal, not exceptional.
	SymbolizeAddr(cpu *Cpu, addr uint64) (debuginfo.SourceLocation, bool)

	// LookupSymbol resolves a symbol name to an address, best-effort.
	LookupSymbol(symbol string) (uint64, bool)

	// EntryPoint reports the guest entry point for introspection and
	// debugging only; Load already configures the CPU with it.
	EntryPoint() uint64

	// Snapshot captures all environment-owned state. CPU and memory state
	// are snapshotted separately by their owners.
	Snapshot() EnvSnapshot

	// Restore reinstates state captured by this environment's Snapshot.
	Restore(snap EnvSnapshot)
}

// ErrNoEnvironment is returned by the empty environment's Load.
var ErrNoEnvironment = errors.New("no environment loaded")

// EmptyEnv is the always-available "no guest environment configured"
// variant. It satisfies the full contract with the most conservative
// answers, so callers never need a nil check.
type EmptyEnv struct{}

type emptySnapshot struct{}

func (emptySnapshot) EnvKind() string { return "empty" }

func (EmptyEnv) Load(*Cpu, []byte) error         { return ErrNoEnvironment }
func (EmptyEnv) HandleException(*Cpu) *VmExit    { return nil }
func (EmptyEnv) NextTimer() uint64               { return math.MaxUint64 }
func (EmptyEnv) DebugInfo() *debuginfo.DebugInfo { return nil }
func (EmptyEnv) SymbolizeAddr(*Cpu, uint64) (debuginfo.SourceLocation, bool) {
	return debuginfo.SourceLocation{}, false
}
func (EmptyEnv) LookupSymbol(string) (uint64, bool) { return 0, false }
func (EmptyEnv) EntryPoint() uint64                 { return 0 }
func (EmptyEnv) Snapshot() EnvSnapshot              { return emptySnapshot{} }
func (EmptyEnv) Restore(EnvSnapshot)                {}
