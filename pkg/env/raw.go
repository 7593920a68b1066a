// Package env provides concrete guest environments for the execution core.
package env

import (
	"fmt"
	"math"

	"github.com/mrexodia/icicle-emu/pkg/cpu"
	"github.com/mrexodia/icicle-emu/pkg/debuginfo"
	"github.com/mrexodia/icicle-emu/pkg/exception"
	"github.com/mrexodia/icicle-emu/pkg/mem"
)

const rawEnvKind = "raw"

// RawEnv runs a flat binary image bare-metal style: the image is mapped
// read/write/execute at a fixed base, execution starts at the base, and
// there is no OS layer to resolve faults, so every fault except a clean halt
// escalates to the driver. An optional tick interval models a periodic
// interrupt source.
type RawEnv struct {
	// Base is the load address of the image.
	Base uint64
	// TickInterval, when non-zero, makes NextTimer report a deadline every
	// TickInterval retired instructions.
	TickInterval uint64

	loaded   bool
	entry    uint64
	imageLen uint64
	nextTick uint64
	debug    *debuginfo.DebugInfo
}

// NewRawEnv builds a raw environment loading at base.
func NewRawEnv(base uint64) *RawEnv {
	return &RawEnv{Base: base, nextTick: math.MaxUint64}
}

// SetDebugInfo attaches an optional symbol table for the image.
func (e *RawEnv) SetDebugInfo(info *debuginfo.DebugInfo) {
	e.debug = info
}

func (e *RawEnv) Load(c *cpu.Cpu, image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("empty image")
	}
	if err := c.Mem.Map(e.Base, uint64(len(image)), mem.PermAll); err != nil {
		return fmt.Errorf("mapping %d bytes at %#x: %w", len(image), e.Base, err)
	}
	if err := c.Mem.WriteBytes(e.Base, image); err != nil {
		return fmt.Errorf("writing image at %#x: %w", e.Base, err)
	}
	e.entry = e.Base
	e.imageLen = uint64(len(image))
	e.loaded = true
	if e.TickInterval != 0 {
		e.nextTick = c.Icount + e.TickInterval
	}
	c.Pc = e.entry
	c.ClearException()
	return nil
}

func (e *RawEnv) HandleException(c *cpu.Cpu) *cpu.VmExit {
	code := c.PendingException()
	switch code {
	case exception.None:
		return nil
	case exception.Halt:
		exit := cpu.VmExitHalt
		return &exit
	case exception.Sleep:
		// Bare metal has nothing to wake up for except the tick; treat a
		// sleep with no timer as a halt.
		if e.TickInterval == 0 {
			exit := cpu.VmExitHalt
			return &exit
		}
		c.ClearException()
		return nil
	default:
		exit := cpu.UnhandledException(code, c.Exception.Value)
		return &exit
	}
}

func (e *RawEnv) NextTimer() uint64 {
	if e.TickInterval == 0 {
		return math.MaxUint64
	}
	return e.nextTick
}

// AdvanceTimer schedules the next tick after a timer-driven stop. The driver
// calls this when it re-enters the environment for a timer.
func (e *RawEnv) AdvanceTimer(now uint64) {
	if e.TickInterval != 0 {
		e.nextTick = now + e.TickInterval
	}
}

func (e *RawEnv) DebugInfo() *debuginfo.DebugInfo {
	return e.debug
}

func (e *RawEnv) SymbolizeAddr(_ *cpu.Cpu, addr uint64) (debuginfo.SourceLocation, bool) {
	if e.debug == nil {
		return debuginfo.SourceLocation{}, false
	}
	return e.debug.SymbolizeAddr(addr)
}

func (e *RawEnv) LookupSymbol(symbol string) (uint64, bool) {
	if e.debug == nil {
		return 0, false
	}
	return e.debug.LookupName(symbol)
}

func (e *RawEnv) EntryPoint() uint64 {
	return e.entry
}

type rawSnapshot struct {
	loaded   bool
	entry    uint64
	imageLen uint64
	nextTick uint64
}

func (rawSnapshot) EnvKind() string { return rawEnvKind }

func (e *RawEnv) Snapshot() cpu.EnvSnapshot {
	return rawSnapshot{
		loaded:   e.loaded,
		entry:    e.entry,
		imageLen: e.imageLen,
		nextTick: e.nextTick,
	}
}

func (e *RawEnv) Restore(snap cpu.EnvSnapshot) {
	raw, ok := snap.(rawSnapshot)
	if !ok {
		// Restoring a foreign snapshot is a programmer error, not a guest
		// condition.
		panic(fmt.Sprintf("raw environment cannot restore %q snapshot", snap.EnvKind()))
	}
	e.loaded = raw.loaded
	e.entry = raw.entry
	e.imageLen = raw.imageLen
	e.nextTick = raw.nextTick
}
