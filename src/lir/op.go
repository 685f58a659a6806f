// Package lir implements the six-operation low-level instruction set the
// backend emits: NoOp, Wait, MatMul, SIMD, DataMove, and LoadWeights. It
// defines the polymorphic Sink interface, the Generator, Printer and
// Broadcast sinks, and the Parser that replays a serialized stream onto any
// Sink. The cost-estimating sink lives in package estimate.
package lir

import (
	"fmt"

	"github.com/rajivbishwokarma/tensil/src/address"
)

// Opcode enumerates the six LIR operations.
type Opcode int

const (
	OpNoOp Opcode = iota
	OpWait
	OpMatMul
	OpSIMD
	OpDataMove
	OpLoadWeights
)

func (op Opcode) String() string {
	switch op {
	case OpNoOp:
		return "nop"
	case OpWait:
		return "wait"
	case OpMatMul:
		return "matmul"
	case OpSIMD:
		return "simd"
	case OpDataMove:
		return "datamove"
	case OpLoadWeights:
		return "ldweights"
	default:
		return "invalid"
	}
}

// SimdOp names the ALU operation performed by a SIMD instruction.
type SimdOp int

const (
	SimdAdd SimdOp = iota
	SimdMul
	SimdMax
	SimdRelu
)

func (s SimdOp) String() string {
	switch s {
	case SimdAdd:
		return "add"
	case SimdMul:
		return "mul"
	case SimdMax:
		return "max"
	case SimdRelu:
		return "relu"
	default:
		return "?"
	}
}

// Sink is implemented by every consumer of a decoded or freshly constructed
// LIR instruction stream: the binary generator, the disassembly printer, the
// cost-estimating accumulator, the fan-out broadcaster, and the overlay's
// per-thread address-rewriting wrapper. The variant set is closed; new
// backends should compose these rather than add a seventh operation.
type Sink interface {
	NoOp() error
	Wait(tid uint32) error
	MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error
	SIMD(accumulate bool, simdOp SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error
	DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error
	LoadWeights(localStride, localAddr address.Address, size uint32) error
}

// Emit re-emits a decoded instruction of kind op, with the supplied
// operands, onto sink. It is used by the Parser so that every Sink
// implementation only needs to know how to handle the six named methods,
// never a generic "decoded instruction" record.
//
// Instruction's fields hold, in their per-op grouping, whatever the given op
// requires; callers (the Parser) are expected to populate exactly the right
// shape, since Emit is an internal helper and not part of the public Sink
// contract.
type Instruction struct {
	Op          Opcode
	Tid         uint32
	Accumulate  bool
	SimdOp      SimdOp
	LocalStride address.Address
	LocalAddr   address.Address
	AccStride   address.Address
	AccAddr     address.Address
	SrcL        address.Address
	SrcR        address.Address
	Dst         address.Address
	WriteAcc    address.Address
	ReadAcc     address.Address
	ToLocal     bool
	Stride      address.Address
	Addr        address.Address
	Size        uint32
}

// Emit replays ins onto sink by calling the one Sink method matching ins.Op.
func (ins Instruction) Emit(sink Sink) error {
	switch ins.Op {
	case OpNoOp:
		return sink.NoOp()
	case OpWait:
		return sink.Wait(ins.Tid)
	case OpMatMul:
		return sink.MatMul(ins.Accumulate, ins.LocalStride, ins.LocalAddr, ins.AccStride, ins.AccAddr, ins.Size)
	case OpSIMD:
		return sink.SIMD(ins.Accumulate, ins.SimdOp, ins.SrcL, ins.SrcR, ins.Dst, ins.WriteAcc, ins.ReadAcc)
	case OpDataMove:
		return sink.DataMove(ins.ToLocal, ins.Accumulate, ins.LocalStride, ins.LocalAddr, ins.Stride, ins.Addr, ins.Size)
	case OpLoadWeights:
		return sink.LoadWeights(ins.LocalStride, ins.LocalAddr, ins.Size)
	default:
		return fmt.Errorf("lir: unknown opcode %d", ins.Op)
	}
}
