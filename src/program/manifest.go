// Package program loads a front-end-produced segment manifest — the JSON
// description of every (layer, stage, partition, kind) segment and its LIR
// instructions — and replays it into a backend.Backend. The manifest shape
// mirrors the teacher's JSON-driven model spec (assembler.ChipletModelSpec):
// a flat, tagged struct per instruction rather than a polymorphic payload,
// decoded with the standard encoding/json package the way the teacher does.
package program

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/backend"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/lir"
	"github.com/rajivbishwokarma/tensil/src/segment"
)

// AddressSpec is the JSON form of an address.Address.
type AddressSpec struct {
	Tag string `json:"tag"`
	Raw uint64 `json:"raw"`
}

func (a AddressSpec) resolve() (address.Address, error) {
	tag, err := parseTag(a.Tag)
	if err != nil {
		return address.Address{}, err
	}
	return address.New(tag, a.Raw), nil
}

func parseTag(s string) (address.Tag, error) {
	switch s {
	case "local":
		return address.Local, nil
	case "accumulator":
		return address.Accumulator, nil
	case "dram0":
		return address.DRAM0, nil
	case "dram1":
		return address.DRAM1, nil
	case "zero":
		return address.Zero, nil
	default:
		return 0, fmt.Errorf("program: unknown address tag %q", s)
	}
}

// InstructionSpec is the JSON form of one LIR instruction. Fields unused by
// Op are ignored, mirroring the teacher's tagged-stage-spec decoding.
type InstructionSpec struct {
	Op          string       `json:"op"`
	Tid         uint32       `json:"tid,omitempty"`
	Accumulate  bool         `json:"accumulate,omitempty"`
	SimdOp      string       `json:"simd_op,omitempty"`
	LocalStride *AddressSpec `json:"local_stride,omitempty"`
	LocalAddr   *AddressSpec `json:"local_addr,omitempty"`
	AccStride   *AddressSpec `json:"acc_stride,omitempty"`
	AccAddr     *AddressSpec `json:"acc_addr,omitempty"`
	SrcL        *AddressSpec `json:"src_l,omitempty"`
	SrcR        *AddressSpec `json:"src_r,omitempty"`
	Dst         *AddressSpec `json:"dst,omitempty"`
	WriteAcc    *AddressSpec `json:"write_acc,omitempty"`
	ReadAcc     *AddressSpec `json:"read_acc,omitempty"`
	ToLocal     bool         `json:"to_local,omitempty"`
	Stride      *AddressSpec `json:"stride,omitempty"`
	Addr        *AddressSpec `json:"addr,omitempty"`
	Size        uint32       `json:"size,omitempty"`
}

func resolveOptional(a *AddressSpec) (address.Address, error) {
	if a == nil {
		return address.Address{}, nil
	}
	return a.resolve()
}

func parseSimdOp(s string) (lir.SimdOp, error) {
	switch s {
	case "", "add":
		return lir.SimdAdd, nil
	case "mul":
		return lir.SimdMul, nil
	case "max":
		return lir.SimdMax, nil
	case "relu":
		return lir.SimdRelu, nil
	default:
		return 0, fmt.Errorf("program: unknown simd op %q", s)
	}
}

// emit replays this instruction spec onto sink.
func (ins InstructionSpec) emit(sink lir.Sink) error {
	switch ins.Op {
	case "nop":
		return sink.NoOp()
	case "wait":
		return sink.Wait(ins.Tid)
	case "matmul":
		localStride, err := resolveOptional(ins.LocalStride)
		if err != nil {
			return err
		}
		localAddr, err := resolveOptional(ins.LocalAddr)
		if err != nil {
			return err
		}
		accStride, err := resolveOptional(ins.AccStride)
		if err != nil {
			return err
		}
		accAddr, err := resolveOptional(ins.AccAddr)
		if err != nil {
			return err
		}
		return sink.MatMul(ins.Accumulate, localStride, localAddr, accStride, accAddr, ins.Size)
	case "simd":
		simdOp, err := parseSimdOp(ins.SimdOp)
		if err != nil {
			return err
		}
		srcL, err := resolveOptional(ins.SrcL)
		if err != nil {
			return err
		}
		srcR, err := resolveOptional(ins.SrcR)
		if err != nil {
			return err
		}
		dst, err := resolveOptional(ins.Dst)
		if err != nil {
			return err
		}
		writeAcc, err := resolveOptional(ins.WriteAcc)
		if err != nil {
			return err
		}
		readAcc, err := resolveOptional(ins.ReadAcc)
		if err != nil {
			return err
		}
		return sink.SIMD(ins.Accumulate, simdOp, srcL, srcR, dst, writeAcc, readAcc)
	case "datamove":
		localStride, err := resolveOptional(ins.LocalStride)
		if err != nil {
			return err
		}
		localAddr, err := resolveOptional(ins.LocalAddr)
		if err != nil {
			return err
		}
		stride, err := resolveOptional(ins.Stride)
		if err != nil {
			return err
		}
		addr, err := resolveOptional(ins.Addr)
		if err != nil {
			return err
		}
		return sink.DataMove(ins.ToLocal, ins.Accumulate, localStride, localAddr, stride, addr, ins.Size)
	case "ldweights":
		localStride, err := resolveOptional(ins.LocalStride)
		if err != nil {
			return err
		}
		localAddr, err := resolveOptional(ins.LocalAddr)
		if err != nil {
			return err
		}
		return sink.LoadWeights(localStride, localAddr, ins.Size)
	default:
		return fmt.Errorf("program: unknown instruction op %q", ins.Op)
	}
}

// SegmentSpec is one manifest entry: a key plus its ordered instructions.
type SegmentSpec struct {
	Layer        uint32            `json:"layer"`
	Stage        uint32            `json:"stage"`
	Partition    uint32            `json:"partition"`
	Kind         string            `json:"kind"`
	Instructions []InstructionSpec `json:"instructions"`
}

func parseKind(s string) (segment.Kind, error) {
	switch s {
	case "init":
		return segment.Init, nil
	case "load":
		return segment.Load, nil
	case "compute":
		return segment.Compute, nil
	case "save":
		return segment.Save, nil
	default:
		return 0, fmt.Errorf("program: unknown segment kind %q", s)
	}
}

// Manifest is the top-level decoded form of a segment manifest file.
type Manifest struct {
	Segments []SegmentSpec `json:"segments"`
}

// LoadManifest reads and decodes a segment manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.IO("read manifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("program: decode manifest: %w", err)
	}
	return &m, nil
}

// Populate builds one backend.Segment per manifest entry, replays its
// instructions, and finalizes it into b. It stops at the first error,
// leaving b.WriteSegments to decide how much partial state matters.
func (m *Manifest) Populate(b *backend.Backend) error {
	for _, spec := range m.Segments {
		kind, err := parseKind(spec.Kind)
		if err != nil {
			return err
		}
		key := segment.Key{Layer: spec.Layer, Stage: spec.Stage, Partition: spec.Partition, Kind: kind}
		seg, err := b.MakeSegment(key, nil, nil)
		if err != nil {
			return err
		}
		for _, ins := range spec.Instructions {
			if err := ins.emit(seg); err != nil {
				return err
			}
		}
		if err := b.FinalizeSegment(seg); err != nil {
			return err
		}
	}
	return nil
}
