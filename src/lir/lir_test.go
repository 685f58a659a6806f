package lir

import (
	"bytes"
	"io"
	"testing"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/layout"
)

// recordingSink captures whichever instruction it last received, letting a
// round-trip test compare decoded operands against what was encoded.
type recordingSink struct {
	ins Instruction
}

func (r *recordingSink) NoOp() error { r.ins = Instruction{Op: OpNoOp}; return nil }
func (r *recordingSink) Wait(tid uint32) error {
	r.ins = Instruction{Op: OpWait, Tid: tid}
	return nil
}
func (r *recordingSink) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	r.ins = Instruction{Op: OpMatMul, Accumulate: accumulate, LocalStride: localStride, LocalAddr: localAddr, AccStride: accStride, AccAddr: accAddr, Size: size}
	return nil
}
func (r *recordingSink) SIMD(accumulate bool, simdOp SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	r.ins = Instruction{Op: OpSIMD, Accumulate: accumulate, SimdOp: simdOp, SrcL: srcL, SrcR: srcR, Dst: dst, WriteAcc: writeAccAddr, ReadAcc: readAccAddr}
	return nil
}
func (r *recordingSink) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	r.ins = Instruction{Op: OpDataMove, ToLocal: toLocal, Accumulate: accumulate, LocalStride: localStride, LocalAddr: localAddr, Stride: stride, Addr: addr, Size: size}
	return nil
}
func (r *recordingSink) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	r.ins = Instruction{Op: OpLoadWeights, LocalStride: localStride, LocalAddr: localAddr, Size: size}
	return nil
}

func roundTrip(t *testing.T, l layout.Layout, ins Instruction) Instruction {
	t.Helper()
	var buf bytes.Buffer
	gen := NewGenerator(&buf, l)
	if err := ins.Emit(gen); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	parser := NewParser(&buf, l)
	if !parser.HasNext() {
		t.Fatalf("HasNext() = false after encoding one instruction")
	}
	rec := &recordingSink{}
	op, err := parser.ParseNext(rec)
	if err != nil {
		t.Fatalf("ParseNext: %v", err)
	}
	if op != ins.Op {
		t.Fatalf("decoded opcode = %v, want %v", op, ins.Op)
	}
	if parser.HasNext() {
		t.Errorf("HasNext() = true after consuming the only instruction")
	}
	return rec.ins
}

func TestRoundTripEveryOpcode(t *testing.T) {
	t.Parallel()
	l := layout.Default()

	cases := []struct {
		name string
		ins  Instruction
	}{
		{"NoOp", Instruction{Op: OpNoOp}},
		{"Wait", Instruction{Op: OpWait, Tid: 0}},
		{"MatMul", Instruction{
			Op: OpMatMul, Accumulate: true,
			LocalStride: address.New(address.Local, 1), LocalAddr: address.New(address.Local, 200),
			AccStride: address.New(address.Accumulator, 2), AccAddr: address.New(address.Accumulator, 300),
			Size: 64,
		}},
		{"SIMD", Instruction{
			Op: OpSIMD, Accumulate: false, SimdOp: SimdRelu,
			SrcL: address.New(address.Local, 10), SrcR: address.New(address.Local, 20), Dst: address.New(address.Local, 30),
			WriteAcc: address.New(address.Accumulator, 5), ReadAcc: address.New(address.Accumulator, 6),
		}},
		{"DataMove", Instruction{
			Op: OpDataMove, ToLocal: true, Accumulate: false,
			LocalStride: address.New(address.Local, 1), LocalAddr: address.New(address.Local, 500),
			Stride: address.New(address.DRAM0, 4), Addr: address.New(address.DRAM0, 1<<20),
			Size: 128,
		}},
		{"LoadWeights", Instruction{
			Op: OpLoadWeights,
			LocalStride: address.New(address.Local, 1), LocalAddr: address.New(address.Local, 1000),
			Size: 256,
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := roundTrip(t, l, tc.ins)
			if got != tc.ins {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tc.ins)
			}
		})
	}
}

func TestGeneratorRejectsOversizedOperand(t *testing.T) {
	t.Parallel()
	l := layout.Default()

	var buf bytes.Buffer
	gen := NewGenerator(&buf, l)
	// Local raw width is 16 bits; 1<<20 does not fit.
	ins := Instruction{
		Op:          OpLoadWeights,
		LocalStride: address.New(address.Local, 0),
		LocalAddr:   address.New(address.Local, 1<<20),
		Size:        4,
	}
	if err := ins.Emit(gen); err == nil {
		t.Fatal("Emit with oversized operand: want error, got nil")
	}
	if buf.Len() != 0 {
		t.Errorf("buf.Len() = %d, want 0 (no partial instruction written)", buf.Len())
	}
}

func TestCombineConcatenatesStreamsInOrder(t *testing.T) {
	t.Parallel()
	l := layout.Default()

	var bufA, bufB bytes.Buffer
	if err := (Instruction{Op: OpNoOp}).Emit(NewGenerator(&bufA, l)); err != nil {
		t.Fatal(err)
	}
	if err := (Instruction{Op: OpWait, Tid: 0}).Emit(NewGenerator(&bufB, l)); err != nil {
		t.Fatal(err)
	}

	combined := Combine(l, NewParser(&bufA, l), NewParser(&bufB, l))
	var seen []Opcode
	rec := &recordingSink{}
	for combined.HasNext() {
		op, err := combined.ParseNext(rec)
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		seen = append(seen, op)
	}

	want := []Opcode{OpNoOp, OpWait}
	if len(seen) != len(want) {
		t.Fatalf("got %d ops, want %d", len(seen), len(want))
	}
	for i, op := range want {
		if seen[i] != op {
			t.Errorf("op[%d] = %v, want %v", i, seen[i], op)
		}
	}
}

// countingCloser records how many times Close was called, so a test can
// assert a Parser releases an underlying io.Closer exactly once per source.
type countingCloser struct {
	io.Reader
	closes int
}

func (c *countingCloser) Close() error {
	c.closes++
	return nil
}

// TestLittleEndianFieldByteOrderDiffersFromBigEndian exercises
// Layout.LittleEndian: a wide (multi-byte) field must pack differently
// depending on the flag, and each Layout must still round-trip its own
// encoding correctly.
func TestLittleEndianFieldByteOrderDiffersFromBigEndian(t *testing.T) {
	t.Parallel()

	little := layout.Default()
	little.LittleEndian = true
	big := layout.Default()
	big.LittleEndian = false

	ins := Instruction{
		Op:          OpLoadWeights,
		LocalStride: address.New(address.Local, 1),
		LocalAddr:   address.New(address.Local, 2),
		Size:        0x1A2B, // spans more than one byte of the 20-bit Size field
	}

	var bufLittle, bufBig bytes.Buffer
	if err := ins.Emit(NewGenerator(&bufLittle, little)); err != nil {
		t.Fatalf("Emit (little): %v", err)
	}
	if err := ins.Emit(NewGenerator(&bufBig, big)); err != nil {
		t.Fatalf("Emit (big): %v", err)
	}
	if bufLittle.String() == bufBig.String() {
		t.Fatalf("little- and big-endian encodings of a multi-byte field are identical, want different byte order")
	}

	for _, tc := range []struct {
		name string
		buf  bytes.Buffer
		l    layout.Layout
	}{
		{"little", bufLittle, little},
		{"big", bufBig, big},
	} {
		rec := &recordingSink{}
		parser := NewParser(bytes.NewReader(tc.buf.Bytes()), tc.l)
		if _, err := parser.ParseNext(rec); err != nil {
			t.Fatalf("%s: ParseNext: %v", tc.name, err)
		}
		if rec.ins != ins {
			t.Errorf("%s: round trip mismatch:\n got  %+v\n want %+v", tc.name, rec.ins, ins)
		}
	}
}

func TestParserCloseReleasesUnderlyingCloser(t *testing.T) {
	t.Parallel()
	l := layout.Default()

	var buf bytes.Buffer
	if err := (Instruction{Op: OpNoOp}).Emit(NewGenerator(&buf, l)); err != nil {
		t.Fatal(err)
	}

	rc := &countingCloser{Reader: &buf}
	parser := NewParser(rc, l)
	if err := parser.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rc.closes != 1 {
		t.Errorf("underlying Close calls = %d, want 1", rc.closes)
	}
	if err := parser.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if rc.closes != 2 {
		t.Errorf("underlying Close calls after second Parser.Close = %d, want 2", rc.closes)
	}
}

func TestCombineClosePropagatesToEverySource(t *testing.T) {
	t.Parallel()
	l := layout.Default()

	var bufA, bufB bytes.Buffer
	if err := (Instruction{Op: OpNoOp}).Emit(NewGenerator(&bufA, l)); err != nil {
		t.Fatal(err)
	}
	if err := (Instruction{Op: OpWait, Tid: 0}).Emit(NewGenerator(&bufB, l)); err != nil {
		t.Fatal(err)
	}

	rcA := &countingCloser{Reader: &bufA}
	rcB := &countingCloser{Reader: &bufB}
	combined := Combine(l, NewParser(rcA, l), NewParser(rcB, l))
	if err := combined.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rcA.closes != 1 || rcB.closes != 1 {
		t.Errorf("source closes = (%d, %d), want (1, 1)", rcA.closes, rcB.closes)
	}
}

func TestBroadcastAbortsOnFirstError(t *testing.T) {
	t.Parallel()

	okSink := &recordingSink{}
	failing := &alwaysFailSink{}
	broadcast := NewBroadcast(okSink, failing, okSink)

	if err := broadcast.NoOp(); err == nil {
		t.Fatal("NoOp through failing sink: want error, got nil")
	}
}

type alwaysFailSink struct{}

func (alwaysFailSink) NoOp() error { return errBoom }
func (alwaysFailSink) Wait(uint32) error { return errBoom }
func (alwaysFailSink) MatMul(bool, address.Address, address.Address, address.Address, address.Address, uint32) error {
	return errBoom
}
func (alwaysFailSink) SIMD(bool, SimdOp, address.Address, address.Address, address.Address, address.Address, address.Address) error {
	return errBoom
}
func (alwaysFailSink) DataMove(bool, bool, address.Address, address.Address, address.Address, address.Address, uint32) error {
	return errBoom
}
func (alwaysFailSink) LoadWeights(address.Address, address.Address, uint32) error { return errBoom }

var errBoom = &boomError{}

type boomError struct{}

func (*boomError) Error() string { return "boom" }
