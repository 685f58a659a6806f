package lir

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/layout"
)

// Parser reads a previously serialized instruction stream and replays each
// decoded instruction onto any Sink. Multiple Parsers can be concatenated
// with Combine into a single logical stream — the overlay uses this to feed
// one thread's several segment slots as one parser. A Parser retains
// whichever underlying readers were opened as Closers (e.g. a Segment's
// Store.Reader); Close releases them, matching the scoped-resource
// discipline spec.md §5 requires of every reader overlay_tiles opens.
type Parser struct {
	br      *bufio.Reader
	layout  layout.Layout
	closers []io.Closer
}

// NewParser builds a Parser reading instructions of l's fixed width from r.
// If r also implements io.Closer, Close releases it.
func NewParser(r io.Reader, l layout.Layout) *Parser {
	p := &Parser{br: bufio.NewReader(r), layout: l}
	if c, ok := r.(io.Closer); ok {
		p.closers = []io.Closer{c}
	}
	return p
}

// Combine concatenates parsers, in the supplied order, into one Parser that
// decodes using l. All parsers must share the same Layout; Combine does not
// itself validate that, since the overlay only ever combines parsers it
// built from a single Backend's Layout. The combined Parser inherits every
// source parser's Closers, so closing it also releases them — callers that
// close the source parsers directly (as overlayTiles does) may still call
// Close on the combined parser; it is safe to close a Closer more than
// once here since Segment's Store readers are themselves idempotent.
func Combine(l layout.Layout, parsers ...*Parser) *Parser {
	readers := make([]io.Reader, len(parsers))
	var closers []io.Closer
	for i, p := range parsers {
		readers[i] = p.br
		closers = append(closers, p.closers...)
	}
	return &Parser{br: bufio.NewReader(io.MultiReader(readers...)), layout: l, closers: closers}
}

// Close releases every reader this Parser (or, for a combined Parser, any
// of its source parsers) opened. It is safe to call more than once; the
// first error encountered, if any, is returned.
func (p *Parser) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && first == nil {
			first = cerr.IO("parser close", err)
		}
	}
	p.closers = nil
	return first
}

// HasNext reports whether at least one more instruction remains.
func (p *Parser) HasNext() bool {
	_, err := p.br.Peek(1)
	return err == nil
}

func (p *Parser) readAddress(br *bitReader) address.Address {
	tag := address.Tag(br.readField(tagWidthFor(p.layout)))
	raw := br.readField(rawWidthFor(p.layout, int(tag)))
	return address.Address{Tag: tag, Raw: raw}
}

// ParseNext decodes exactly one instruction and replays it onto sink,
// returning the decoded opcode (used by the overlay for cycle accounting)
// and any error from decoding or from the sink itself.
func (p *Parser) ParseNext(sink Sink) (Opcode, error) {
	buf := make([]byte, p.layout.InstructionBytes)
	if _, err := io.ReadFull(p.br, buf); err != nil {
		return 0, cerr.IO("parser read", err)
	}

	br := newBitReader(buf, p.layout.LittleEndian)
	opcode := Opcode(br.readField(p.layout.Fields.Opcode))
	ins := Instruction{Op: opcode}

	switch opcode {
	case OpNoOp:
		// no operands
	case OpWait:
		ins.Tid = uint32(br.readField(p.layout.Fields.ThreadID))
	case OpMatMul:
		ins.Accumulate = br.readField(p.layout.Fields.Accumulate) != 0
		ins.LocalStride = p.readAddress(br)
		ins.LocalAddr = p.readAddress(br)
		ins.AccStride = p.readAddress(br)
		ins.AccAddr = p.readAddress(br)
		ins.Size = uint32(br.readField(p.layout.Fields.Size))
	case OpSIMD:
		ins.Accumulate = br.readField(p.layout.Fields.Accumulate) != 0
		ins.SimdOp = SimdOp(br.readField(p.layout.Fields.SimdOp))
		ins.SrcL = p.readAddress(br)
		ins.SrcR = p.readAddress(br)
		ins.Dst = p.readAddress(br)
		ins.WriteAcc = p.readAddress(br)
		ins.ReadAcc = p.readAddress(br)
	case OpDataMove:
		ins.ToLocal = br.readField(1) != 0
		ins.Accumulate = br.readField(p.layout.Fields.Accumulate) != 0
		ins.LocalStride = p.readAddress(br)
		ins.LocalAddr = p.readAddress(br)
		ins.Stride = p.readAddress(br)
		ins.Addr = p.readAddress(br)
		ins.Size = uint32(br.readField(p.layout.Fields.Size))
	case OpLoadWeights:
		ins.LocalStride = p.readAddress(br)
		ins.LocalAddr = p.readAddress(br)
		ins.Size = uint32(br.readField(p.layout.Fields.Size))
	default:
		return opcode, fmt.Errorf("lir: parser decoded unknown opcode %d", opcode)
	}

	if err := ins.Emit(sink); err != nil {
		return opcode, err
	}
	return opcode, nil
}
