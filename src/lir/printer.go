package lir

import (
	"fmt"
	"io"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/cerr"
)

// Printer is an LIR Sink that writes one line of disassembly per
// instruction: mnemonic followed by decimal operands with a tag prefix. It
// never touches program bytes and has no field-width limit of its own.
type Printer struct {
	w io.Writer
}

var _ Sink = (*Printer)(nil)

// NewPrinter returns a Printer writing disassembly text to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) writeLine(line string) error {
	if _, err := io.WriteString(p.w, line+"\r\n"); err != nil {
		return cerr.IO("printer write", err)
	}
	return nil
}

// Comment writes a segment-boundary annotation, e.g. "; TID 0: 1/0/2/Load".
func (p *Printer) Comment(line string) error {
	return p.writeLine("; " + line)
}

func (p *Printer) NoOp() error {
	return p.writeLine("nop")
}

func (p *Printer) Wait(tid uint32) error {
	return p.writeLine(fmt.Sprintf("wait %d", tid))
}

func (p *Printer) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	return p.writeLine(fmt.Sprintf("matmul acc=%s %s %s %s %s size=%d",
		flagDigit(accumulate), localStride, localAddr, accStride, accAddr, size))
}

func (p *Printer) SIMD(accumulate bool, simdOp SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	return p.writeLine(fmt.Sprintf("simd.%s acc=%s %s %s %s %s %s",
		simdOp, flagDigit(accumulate), srcL, srcR, dst, writeAccAddr, readAccAddr))
}

func (p *Printer) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	dir := "from"
	if toLocal {
		dir = "to"
	}
	return p.writeLine(fmt.Sprintf("datamove %s_local acc=%s %s %s %s %s size=%d",
		dir, flagDigit(accumulate), localStride, localAddr, stride, addr, size))
}

func (p *Printer) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	return p.writeLine(fmt.Sprintf("ldweights %s %s size=%d", localStride, localAddr, size))
}

func flagDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
