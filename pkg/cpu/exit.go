package cpu

import (
	"fmt"

	"github.com/mrexodia/icicle-emu/pkg/exception"
)

// VmExitKind classifies why execution returned to the embedding driver.
type VmExitKind int

const (
	ExitRunning VmExitKind = iota
	ExitInstructionLimit
	ExitBreakpoint
	ExitInterrupted
	ExitHalt
	ExitKilled
	ExitOutOfMemory
	ExitUnhandledException
)

// VmExit is the unified value handed from the core to the driver when
// execution cannot continue without an external decision. For
// ExitUnhandledException, Code and Value carry the escalated exception.
type VmExit struct {
	Kind  VmExitKind
	Code  exception.Code
	Value uint64
}

// Pre-allocated exits for the common kinds.
var (
	VmExitRunning          = VmExit{Kind: ExitRunning}
	VmExitInstructionLimit = VmExit{Kind: ExitInstructionLimit}
	VmExitBreakpoint       = VmExit{Kind: ExitBreakpoint}
	VmExitInterrupted      = VmExit{Kind: ExitInterrupted}
	VmExitHalt             = VmExit{Kind: ExitHalt}
	VmExitKilled           = VmExit{Kind: ExitKilled}
	VmExitOutOfMemory      = VmExit{Kind: ExitOutOfMemory}
)

// UnhandledException builds the escalation exit for an exception the
// environment declined to resolve.
func UnhandledException(code exception.Code, value uint64) VmExit {
	return VmExit{Kind: ExitUnhandledException, Code: code, Value: value}
}

func (e VmExit) String() string {
	switch e.Kind {
	case ExitRunning:
		return "running"
	case ExitInstructionLimit:
		return "instruction limit reached"
	case ExitBreakpoint:
		return "breakpoint"
	case ExitInterrupted:
		return "interrupted"
	case ExitHalt:
		return "halt"
	case ExitKilled:
		return "killed"
	case ExitOutOfMemory:
		return "out of memory"
	case ExitUnhandledException:
		return fmt.Sprintf("unhandled exception: %v (value=%#x)", e.Code, e.Value)
	default:
		return fmt.Sprintf("exit(%d)", int(e.Kind))
	}
}
