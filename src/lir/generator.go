package lir

import (
	"io"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/layout"
)

// Generator is an LIR Sink that serializes each operation into a fixed-width
// binary instruction and writes it to an underlying io.Writer. Field widths
// and the total instruction size come from Layout; unused bits are zero.
// Encoding an operand that does not fit its field is fatal — Generator
// writes nothing for that instruction and returns a *cerr.EncodingError.
type Generator struct {
	w      io.Writer
	layout layout.Layout
}

var _ Sink = (*Generator)(nil)

// NewGenerator returns a Generator that writes packed instructions to w
// using l's field widths and instruction size.
func NewGenerator(w io.Writer, l layout.Layout) *Generator {
	return &Generator{w: w, layout: l}
}

func (g *Generator) writeAddress(bw *bitWriter, name string, addr address.Address) error {
	if err := bw.writeField(name+".tag", uint64(addr.Tag), tagWidthFor(g.layout)); err != nil {
		return err
	}
	width := rawWidthFor(g.layout, int(addr.Tag))
	return bw.writeField(name+".raw", addr.Raw, width)
}

func (g *Generator) flush(bw *bitWriter) error {
	if _, err := g.w.Write(bw.bytes()); err != nil {
		return cerr.IO("generator write", err)
	}
	return nil
}

func (g *Generator) NoOp() error {
	bw := newBitWriter(g.layout.InstructionBytes, g.layout.LittleEndian)
	if err := bw.writeField("opcode", uint64(OpNoOp), g.layout.Fields.Opcode); err != nil {
		return err
	}
	return g.flush(bw)
}

func (g *Generator) Wait(tid uint32) error {
	bw := newBitWriter(g.layout.InstructionBytes, g.layout.LittleEndian)
	if err := bw.writeField("opcode", uint64(OpWait), g.layout.Fields.Opcode); err != nil {
		return err
	}
	if err := bw.writeField("tid", uint64(tid), g.layout.Fields.ThreadID); err != nil {
		return err
	}
	return g.flush(bw)
}

func (g *Generator) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	bw := newBitWriter(g.layout.InstructionBytes, g.layout.LittleEndian)
	if err := bw.writeField("opcode", uint64(OpMatMul), g.layout.Fields.Opcode); err != nil {
		return err
	}
	if err := bw.writeField("accumulate", boolBit(accumulate), g.layout.Fields.Accumulate); err != nil {
		return err
	}
	for _, step := range []struct {
		name string
		addr address.Address
	}{
		{"local_stride", localStride},
		{"local_addr", localAddr},
		{"acc_stride", accStride},
		{"acc_addr", accAddr},
	} {
		if err := g.writeAddress(bw, step.name, step.addr); err != nil {
			return err
		}
	}
	if err := bw.writeField("size", uint64(size), g.layout.Fields.Size); err != nil {
		return err
	}
	return g.flush(bw)
}

func (g *Generator) SIMD(accumulate bool, simdOp SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	bw := newBitWriter(g.layout.InstructionBytes, g.layout.LittleEndian)
	if err := bw.writeField("opcode", uint64(OpSIMD), g.layout.Fields.Opcode); err != nil {
		return err
	}
	if err := bw.writeField("accumulate", boolBit(accumulate), g.layout.Fields.Accumulate); err != nil {
		return err
	}
	if err := bw.writeField("simd_op", uint64(simdOp), g.layout.Fields.SimdOp); err != nil {
		return err
	}
	for _, step := range []struct {
		name string
		addr address.Address
	}{
		{"src_l", srcL},
		{"src_r", srcR},
		{"dst", dst},
		{"write_acc_addr", writeAccAddr},
		{"read_acc_addr", readAccAddr},
	} {
		if err := g.writeAddress(bw, step.name, step.addr); err != nil {
			return err
		}
	}
	return g.flush(bw)
}

func (g *Generator) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	bw := newBitWriter(g.layout.InstructionBytes, g.layout.LittleEndian)
	if err := bw.writeField("opcode", uint64(OpDataMove), g.layout.Fields.Opcode); err != nil {
		return err
	}
	if err := bw.writeField("to_local", boolBit(toLocal), 1); err != nil {
		return err
	}
	if err := bw.writeField("accumulate", boolBit(accumulate), g.layout.Fields.Accumulate); err != nil {
		return err
	}
	for _, step := range []struct {
		name string
		addr address.Address
	}{
		{"local_stride", localStride},
		{"local_addr", localAddr},
		{"stride", stride},
		{"addr", addr},
	} {
		if err := g.writeAddress(bw, step.name, step.addr); err != nil {
			return err
		}
	}
	if err := bw.writeField("size", uint64(size), g.layout.Fields.Size); err != nil {
		return err
	}
	return g.flush(bw)
}

func (g *Generator) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	bw := newBitWriter(g.layout.InstructionBytes, g.layout.LittleEndian)
	if err := bw.writeField("opcode", uint64(OpLoadWeights), g.layout.Fields.Opcode); err != nil {
		return err
	}
	for _, step := range []struct {
		name string
		addr address.Address
	}{
		{"local_stride", localStride},
		{"local_addr", localAddr},
	} {
		if err := g.writeAddress(bw, step.name, step.addr); err != nil {
			return err
		}
	}
	if err := bw.writeField("size", uint64(size), g.layout.Fields.Size); err != nil {
		return err
	}
	return g.flush(bw)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
