// Package segment implements the build-time accumulator for one
// (layer, stage, partition, kind) slot of low-level instructions: an LIR
// sink backed by a byte Store, a tracepoint collector, and optionally a
// cost estimator, grounded on the teacher's segment-oriented chiplet
// command buffers (simulator/chiplet/command.go) and its os.CreateTemp-
// scoped resource idiom.
package segment

import (
	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/estimate"
	"github.com/rajivbishwokarma/tensil/src/layout"
	"github.com/rajivbishwokarma/tensil/src/lir"
	"github.com/rajivbishwokarma/tensil/src/tracepoint"
)

// Segment accumulates one key's worth of LIR instructions. It satisfies
// lir.Sink by broadcasting every emit call to its Generator, its
// tracepoint.Collector, a peak-address tracker, and, if configured, an
// estimate.Sink.
type Segment struct {
	key    Key
	layout layout.Layout
	store  Store
	trace  tracepoint.Collector
	sink   lir.Sink

	count   int
	sealed  bool
	peakRaw [5]uint64 // indexed by address.Tag: Local, Accumulator, DRAM0, DRAM1, Zero
}

var _ lir.Sink = (*Segment)(nil)

// NewSegment returns a Segment for key, writing its binary stream to store
// and recording tracepoints into collector. If stats is non-nil, every
// emitted instruction also charges stats via an estimate.Sink.
func NewSegment(key Key, l layout.Layout, store Store, collector tracepoint.Collector, stats *estimate.Stats) *Segment {
	s := &Segment{key: key, layout: l, store: store, trace: collector}
	sinks := []lir.Sink{
		lir.NewGenerator(store, l),
		&tracingSink{collector: collector, seg: s},
		&peakAddressSink{seg: s},
	}
	if stats != nil {
		sinks = append(sinks, estimate.NewSink(l, stats))
	}
	s.sink = lir.NewBroadcast(sinks...)
	return s
}

// trackAddress records addr.Raw as this segment's peak raw offset for
// addr.Tag, if it is the largest seen so far. Out-of-range tags (a front
// end using a value outside the closed address.Tag set) are ignored here;
// they will still fail at Generator encode time.
func (s *Segment) trackAddress(addr address.Address) {
	ord := int(addr.Tag)
	if ord < 0 || ord >= len(s.peakRaw) {
		return
	}
	if addr.Raw > s.peakRaw[ord] {
		s.peakRaw[ord] = addr.Raw
	}
}

// PeakRaw returns the largest raw offset this segment has emitted for tag,
// used by the backend's pre-flight validation pass to confirm every
// segment's addresses fit the Layout's field widths before the overlay
// begins.
func (s *Segment) PeakRaw(tag address.Tag) uint64 {
	ord := int(tag)
	if ord < 0 || ord >= len(s.peakRaw) {
		return 0
	}
	return s.peakRaw[ord]
}

// Key returns the segment's identifying key.
func (s *Segment) Key() Key { return s.key }

// InstructionsCount returns how many instructions have been emitted so far.
func (s *Segment) InstructionsCount() int { return s.count }

// Close flushes and seals the underlying store. Any emit call after Close
// returns an InvariantViolation.
func (s *Segment) Close() error {
	s.sealed = true
	return s.store.Close()
}

func (s *Segment) checkOpen() error {
	if s.sealed {
		return cerr.Invariant("emit on closed segment " + s.key.String())
	}
	return nil
}

func (s *Segment) NoOp() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.count++
	return s.sink.NoOp()
}

func (s *Segment) Wait(tid uint32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.count++
	return s.sink.Wait(tid)
}

func (s *Segment) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.count++
	return s.sink.MatMul(accumulate, localStride, localAddr, accStride, accAddr, size)
}

func (s *Segment) SIMD(accumulate bool, simdOp lir.SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.count++
	return s.sink.SIMD(accumulate, simdOp, srcL, srcR, dst, writeAccAddr, readAccAddr)
}

func (s *Segment) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.count++
	return s.sink.DataMove(toLocal, accumulate, localStride, localAddr, stride, addr, size)
}

func (s *Segment) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.count++
	return s.sink.LoadWeights(localStride, localAddr, size)
}

// tracingSink adapts a tracepoint.Collector to lir.Sink, recording the
// emitting instruction's offset within the owning segment against an empty
// condition set. Real condition metadata is attached by the front end
// through a richer Collector implementation; this module only guarantees
// the offset is recorded.
type tracingSink struct {
	collector tracepoint.Collector
	seg       *Segment
}

var _ lir.Sink = (*tracingSink)(nil)

func (t *tracingSink) record() error {
	if t.collector == nil {
		return nil
	}
	t.collector.Record(t.seg.count-1, tracepoint.Metadata{})
	return nil
}

func (t *tracingSink) NoOp() error                                      { return t.record() }
func (t *tracingSink) Wait(uint32) error                                { return t.record() }
func (t *tracingSink) MatMul(bool, address.Address, address.Address, address.Address, address.Address, uint32) error {
	return t.record()
}
func (t *tracingSink) SIMD(bool, lir.SimdOp, address.Address, address.Address, address.Address, address.Address, address.Address) error {
	return t.record()
}
func (t *tracingSink) DataMove(bool, bool, address.Address, address.Address, address.Address, address.Address, uint32) error {
	return t.record()
}
func (t *tracingSink) LoadWeights(address.Address, address.Address, uint32) error { return t.record() }

// peakAddressSink updates the owning Segment's per-tag peak raw offset for
// every address operand an emit call carries. It never touches program
// bytes or tracepoints; it exists solely so Backend.validateSegments can
// confirm every segment's addresses fit the Layout's field widths before
// the overlay begins.
type peakAddressSink struct {
	seg *Segment
}

var _ lir.Sink = (*peakAddressSink)(nil)

func (t *peakAddressSink) NoOp() error       { return nil }
func (t *peakAddressSink) Wait(uint32) error { return nil }

func (t *peakAddressSink) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	t.seg.trackAddress(localStride)
	t.seg.trackAddress(localAddr)
	t.seg.trackAddress(accStride)
	t.seg.trackAddress(accAddr)
	return nil
}

func (t *peakAddressSink) SIMD(accumulate bool, simdOp lir.SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	t.seg.trackAddress(srcL)
	t.seg.trackAddress(srcR)
	t.seg.trackAddress(dst)
	t.seg.trackAddress(writeAccAddr)
	t.seg.trackAddress(readAccAddr)
	return nil
}

func (t *peakAddressSink) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	t.seg.trackAddress(localStride)
	t.seg.trackAddress(localAddr)
	t.seg.trackAddress(stride)
	t.seg.trackAddress(addr)
	return nil
}

func (t *peakAddressSink) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	t.seg.trackAddress(localStride)
	t.seg.trackAddress(localAddr)
	return nil
}

// Tracepoints returns the recorded offset -> metadata mapping when the
// segment's collector is a *tracepoint.MapCollector; otherwise it returns
// nil, since arbitrary Collector implementations are not required to expose
// a snapshot.
func (s *Segment) Tracepoints() map[int]tracepoint.Metadata {
	if mc, ok := s.trace.(*tracepoint.MapCollector); ok {
		return mc.Snapshot()
	}
	return nil
}

// Parser returns an lir.Parser reading this segment's sealed bytes. The
// segment must already be Closed. The caller owns the returned Parser and
// must Close it once done, releasing the underlying Store.Reader.
func (s *Segment) Parser() (*lir.Parser, error) {
	rc, err := s.store.Reader()
	if err != nil {
		return nil, err
	}
	return lir.NewParser(rc, s.layout), nil
}

// Release frees the segment's underlying store resource (temp file or
// buffer). Safe to call after Close, and safe to call more than once.
func (s *Segment) Release() error {
	return s.store.Release()
}

// StoreSize reports the sealed byte length of the segment's store, used by
// the backend's pre-flight validation pass.
func (s *Segment) StoreSize() (int64, error) {
	return s.store.Size()
}
