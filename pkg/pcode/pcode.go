package pcode

import "fmt"

// Op identifies one intermediate-form operation. The vocabulary is
// intentionally small: it carries exactly what the execution core needs to
// run lifted blocks, not the full semantics of any particular guest ISA.
type Op byte

const (
	OpInvalid Op = iota
	OpNop

	// OpInstructionMarker denotes a native instruction boundary. Inputs[0]
	// carries the native start address and Inputs[1] the native length.
	// Every well-formed block starts with a marker.
	OpInstructionMarker

	OpCopy
	OpLoad
	OpStore

	OpIntAdd
	OpIntSub
	OpIntAnd
	OpIntOr
	OpIntXor
	OpIntMul
	OpIntEqual
	OpIntLess

	// OpBranch jumps unconditionally to the address in Inputs[0].
	OpBranch
	// OpCBranch jumps to Inputs[1] when Inputs[0] is non-zero.
	OpCBranch
	// OpIJump jumps to the address held by the operand in Inputs[0].
	OpIJump

	// OpException raises a guest exception: Inputs[0] is the exception code,
	// Inputs[1] the associated value.
	OpException
)

var opNames = map[Op]string{
	OpInvalid:           "invalid",
	OpNop:               "nop",
	OpInstructionMarker: "instruction_marker",
	OpCopy:              "copy",
	OpLoad:              "load",
	OpStore:             "store",
	OpIntAdd:            "int_add",
	OpIntSub:            "int_sub",
	OpIntAnd:            "int_and",
	OpIntOr:             "int_or",
	OpIntXor:            "int_xor",
	OpIntMul:            "int_mul",
	OpIntEqual:          "int_equal",
	OpIntLess:           "int_less",
	OpBranch:            "branch",
	OpCBranch:           "cbranch",
	OpIJump:             "ijump",
	OpException:         "exception",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// ValueKind distinguishes the three operand forms the register file exposes
// typed reads for: a register slot, an immediate, or a memory-indirect
// location.
type ValueKind byte

const (
	ValueImm ValueKind = iota
	ValueReg
	ValueMem
)

// Value is one operand of an intermediate-form instruction.
type Value struct {
	Kind ValueKind
	Reg  int    // register slot for ValueReg
	Addr uint64 // absolute address for ValueMem
	Imm  uint64 // literal for ValueImm
	Size int    // operand width in bytes: 1, 2, 4 or 8
}

func Imm(v uint64) Value {
	return Value{Kind: ValueImm, Imm: v, Size: 8}
}

func ImmSized(v uint64, size int) Value {
	return Value{Kind: ValueImm, Imm: v, Size: size}
}

func Reg(slot, size int) Value {
	return Value{Kind: ValueReg, Reg: slot, Size: size}
}

func MemAt(addr uint64, size int) Value {
	return Value{Kind: ValueMem, Addr: addr, Size: size}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueReg:
		return fmt.Sprintf("r%d:%d", v.Reg, v.Size)
	case ValueMem:
		return fmt.Sprintf("[%#x]:%d", v.Addr, v.Size)
	default:
		return fmt.Sprintf("%#x", v.Imm)
	}
}

// Instruction is one intermediate-form operation with up to two inputs and
// one output. Instructions are plain values; blocks own their slices.
type Instruction struct {
	Op     Op
	Inputs [2]Value
	Output Value
}

// Marker builds the native-instruction-boundary marker for an instruction
// starting at addr with the given encoded length.
func Marker(addr, length uint64) Instruction {
	return Instruction{
		Op:     OpInstructionMarker,
		Inputs: [2]Value{Imm(addr), Imm(length)},
	}
}

func (inst Instruction) String() string {
	if inst.Op == OpInstructionMarker {
		return fmt.Sprintf("marker %#x len=%d", inst.Inputs[0].Imm, inst.Inputs[1].Imm)
	}
	if inst.Output.Size != 0 {
		return fmt.Sprintf("%s = %s %s, %s", inst.Output, inst.Op, inst.Inputs[0], inst.Inputs[1])
	}
	return fmt.Sprintf("%s %s, %s", inst.Op, inst.Inputs[0], inst.Inputs[1])
}
