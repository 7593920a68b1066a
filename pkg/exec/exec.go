// Package exec drives one CPU against one block table and one environment:
// the single-threaded cooperative interpreter loop of the engine.
package exec

import (
	"log"
	"os"
	"strings"

	"github.com/mrexodia/icicle-emu/pkg/cpu"
	"github.com/mrexodia/icicle-emu/pkg/exception"
	"github.com/mrexodia/icicle-emu/pkg/lifter"
	"github.com/mrexodia/icicle-emu/pkg/mem"
	"github.com/mrexodia/icicle-emu/pkg/pcode"
)

var fileLogger *log.Logger

// InitFileLogger enables per-block trace logging to the given file. Passing
// the empty string disables tracing again.
func InitFileLogger(filename string) error {
	if filename == "" {
		fileLogger = nil
		return nil
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	fileLogger = log.New(file, "", log.LstdFlags)
	return nil
}

const noBreakpoint = ^uint64(0)

// VM ties one Cpu, one BlockTable and one Environment together and runs the
// lookup -> lift-on-miss -> execute cycle. It owns no locking: drivers that
// want parallelism run independent VMs.
type VM struct {
	Cpu    *cpu.Cpu
	Code   *cpu.BlockTable
	Env    cpu.Environment
	Lifter *lifter.BlockLifter

	// lastBreakpoint suppresses the breakpoint at the resume address once,
	// so a driver can continue past the stop it just reported.
	lastBreakpoint uint64
}

func NewVM(c *cpu.Cpu, env cpu.Environment, l *lifter.BlockLifter) *VM {
	return &VM{
		Cpu:            c,
		Code:           cpu.NewBlockTable(),
		Env:            env,
		Lifter:         l,
		lastBreakpoint: noBreakpoint,
	}
}

// Run executes until something needs an external decision and returns the
// exit value describing it. Calling Run again resumes from the stop point.
func (vm *VM) Run() cpu.VmExit {
	c := vm.Cpu
	for {
		// A non-empty modified set means translations are stale; flushing
		// before executing anything else is this driver's policy.
		if len(vm.Code.Modified) > 0 {
			vm.Code.FlushCode()
		}

		if c.IcountLimit != 0 && c.Icount >= c.IcountLimit {
			return cpu.VmExitInstructionLimit
		}
		if vm.Env.NextTimer() <= c.Icount {
			return cpu.VmExitInterrupted
		}

		if c.Pc == vm.lastBreakpoint {
			vm.lastBreakpoint = noBreakpoint
		} else if vm.Code.HasBreakpoint(c.Pc) {
			vm.lastBreakpoint = c.Pc
			return cpu.VmExitBreakpoint
		}

		key := c.BlockKey()
		group, ok := vm.Code.Lookup(key)
		if !ok {
			var err error
			group, err = vm.translate(key)
			if err != nil {
				derr, isDecode := err.(lifter.DecodeError)
				if !isDecode {
					derr = lifter.ErrInvalidInstruction
				}
				c.SetException(exception.FromDecodeError(derr), c.Pc)
				if exit := vm.deliverException(); exit != nil {
					return *exit
				}
				continue
			}
		}

		vm.stepBlock(&vm.Code.Blocks[group.Start])

		if c.ExceptionPending() {
			if exit := vm.deliverException(); exit != nil {
				return *exit
			}
		}
	}
}

// deliverException hands the pending exception to the environment. A nil
// result means the environment fully resolved it and execution resumes; any
// other result propagates out of the engine.
func (vm *VM) deliverException() *cpu.VmExit {
	if exit := vm.Env.HandleException(vm.Cpu); exit != nil {
		return exit
	}
	vm.Cpu.ClearException()
	return nil
}

// translate lifts the block at key, appends it to the store and records the
// mapping. It also seeds the disassembly cache with the lifted form of each
// native instruction.
func (vm *VM) translate(key cpu.BlockKey) (lifter.BlockGroup, error) {
	block, err := vm.Lifter.Lift(vm.Cpu.Mem, key.Vaddr, key.IsaMode)
	if err != nil {
		return lifter.BlockGroup{}, err
	}
	idx := vm.Code.AppendBlock(block)
	group := lifter.BlockGroup{Start: idx, End: idx + 1}
	vm.Code.Insert(key, group)
	vm.cacheDisasm(&vm.Code.Blocks[idx])

	if fileLogger != nil {
		fileLogger.Printf("translated block %d at %#x..%#x (mode=%d)", idx, block.Start, block.End, key.IsaMode)
	}
	return group, nil
}

func (vm *VM) cacheDisasm(block *lifter.Block) {
	addr := uint64(0)
	var text []string
	flush := func() {
		if len(text) > 0 {
			vm.Code.Disasm[addr] = strings.Join(text, "; ")
			text = text[:0]
		}
	}
	for _, inst := range block.Instrs {
		if inst.Op == pcode.OpInstructionMarker {
			flush()
			addr = inst.Inputs[0].Imm
			continue
		}
		text = append(text, inst.String())
	}
	flush()
}

// stepBlock evaluates one lifted block. On return either the pc points at
// the next native instruction to execute or an exception is pending on the
// CPU.
func (vm *VM) stepBlock(block *lifter.Block) {
	c := vm.Cpu
	for i := 0; i < len(block.Instrs); i++ {
		inst := block.Instrs[i]
		switch inst.Op {
		case pcode.OpInstructionMarker:
			addr := inst.Inputs[0].Imm
			c.Pc = addr
			// Stop in front of mid-block breakpoints; the outer loop
			// reports the stop. The block entry was already checked.
			if i != 0 && vm.Code.HasBreakpoint(addr) {
				return
			}
			c.Icount++

		case pcode.OpNop:

		case pcode.OpCopy:
			val := cpu.ReadValueZxt(c, inst.Inputs[0])
			if c.ExceptionPending() || !vm.writeValue(inst.Output, val) {
				return
			}

		case pcode.OpLoad:
			addr := cpu.ReadValueZxt(c, inst.Inputs[0])
			if c.ExceptionPending() {
				return
			}
			val, err := c.Mem.Read(addr, inst.Output.Size)
			if err != nil {
				c.SetException(exception.FromLoadError(asMemError(err)), addr)
				return
			}
			if !vm.writeValue(inst.Output, val) {
				return
			}

		case pcode.OpStore:
			addr := cpu.ReadValueZxt(c, inst.Inputs[0])
			val := cpu.ReadValueZxt(c, inst.Inputs[1])
			if c.ExceptionPending() {
				return
			}
			size := inst.Inputs[1].Size
			if err := c.Mem.Write(addr, val, size); err != nil {
				c.SetException(exception.FromStoreError(asMemError(err)), addr)
				return
			}
			// Self-modifying-code barrier: writes overlapping lifted code
			// mark the affected blocks; the outer loop decides when the
			// stale cache is actually flushed.
			if vm.Code.MarkModifiedRange(addr, uint64(size)) && fileLogger != nil {
				fileLogger.Printf("write to translated code at %#x", addr)
			}

		case pcode.OpIntAdd, pcode.OpIntSub, pcode.OpIntAnd, pcode.OpIntOr,
			pcode.OpIntXor, pcode.OpIntMul, pcode.OpIntEqual, pcode.OpIntLess:
			a := cpu.ReadValueZxt(c, inst.Inputs[0])
			b := cpu.ReadValueZxt(c, inst.Inputs[1])
			if c.ExceptionPending() || !vm.writeValue(inst.Output, intOp(inst.Op, a, b)) {
				return
			}

		case pcode.OpBranch:
			target := cpu.ReadValueZxt(c, inst.Inputs[0])
			if c.ExceptionPending() {
				return
			}
			c.Pc = target
			return

		case pcode.OpCBranch:
			cond := cpu.ReadValueZxt(c, inst.Inputs[0])
			if c.ExceptionPending() {
				return
			}
			if cond != 0 {
				target := cpu.ReadValueZxt(c, inst.Inputs[1])
				if c.ExceptionPending() {
					return
				}
				c.Pc = target
				return
			}

		case pcode.OpIJump:
			target := cpu.ReadValueZxt(c, inst.Inputs[0])
			if c.ExceptionPending() {
				return
			}
			c.Pc = target
			return

		case pcode.OpException:
			code := exception.FromU32(uint32(inst.Inputs[0].Imm))
			c.SetException(code, cpu.ReadValueZxt(c, inst.Inputs[1]))
			return

		case pcode.OpInvalid:
			c.SetException(exception.InvalidInstruction, c.Pc)
			return

		default:
			c.SetException(exception.UnimplementedOp, uint64(inst.Op))
			return
		}
	}
	// Fallthrough off the end of the block: continue at the next native
	// address.
	c.Pc = block.End
}

// writeValue stores an instruction result. Memory-destination outputs are
// stores like any other: a fault sets the pending exception and reports
// failure so the block stops, and a successful write goes through the
// self-modifying-code barrier.
func (vm *VM) writeValue(out pcode.Value, val uint64) bool {
	c := vm.Cpu
	switch out.Kind {
	case pcode.ValueReg:
		c.Regs.WriteSized(out.Reg, val, out.Size)
	case pcode.ValueMem:
		if err := c.Mem.Write(out.Addr, val, out.Size); err != nil {
			c.SetException(exception.FromStoreError(asMemError(err)), out.Addr)
			return false
		}
		if vm.Code.MarkModifiedRange(out.Addr, uint64(out.Size)) && fileLogger != nil {
			fileLogger.Printf("write to translated code at %#x", out.Addr)
		}
	}
	return true
}

func intOp(op pcode.Op, a, b uint64) uint64 {
	switch op {
	case pcode.OpIntAdd:
		return a + b
	case pcode.OpIntSub:
		return a - b
	case pcode.OpIntAnd:
		return a & b
	case pcode.OpIntOr:
		return a | b
	case pcode.OpIntXor:
		return a ^ b
	case pcode.OpIntMul:
		return a * b
	case pcode.OpIntEqual:
		if a == b {
			return 1
		}
		return 0
	case pcode.OpIntLess:
		if a < b {
			return 1
		}
		return 0
	}
	return 0
}

func asMemError(err error) mem.Error {
	if merr, ok := err.(mem.Error); ok {
		return merr
	}
	return mem.ErrUnknown
}
