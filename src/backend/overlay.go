package backend

import (
	"fmt"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/estimate"
	"github.com/rajivbishwokarma/tensil/src/layout"
	"github.com/rajivbishwokarma/tensil/src/lir"
	"github.com/rajivbishwokarma/tensil/src/segment"
)

// windowSlot pairs a segment with the thread id that will execute it in this
// window, following the per-offset gather rule in overlayTiles.
type windowSlot struct {
	tid uint32
	seg *segment.Segment
}

func gatherSlots(window []*tile) ([]windowSlot, error) {
	switch len(window) {
	case 1:
		t := window[0]
		return []windowSlot{
			{t.tid, t.init},
			{t.tid, t.load},
			{t.tid, t.compute},
			{t.tid, t.save},
		}, nil
	case 3:
		return []windowSlot{
			{window[0].tid, window[0].save},
			{window[2].tid, window[2].init},
			{window[2].tid, window[2].load},
			{window[1].tid, window[1].compute},
		}, nil
	default:
		return nil, cerr.Invariant(fmt.Sprintf("overlay window size %d unsupported", len(window)))
	}
}

// activeThread is one hardware thread's logical instruction stream for the
// current window, plus the per-thread sink that rewrites addresses and
// tracks cycles as instructions are parsed into it.
type activeThread struct {
	tid    uint32
	parser *lir.Parser
	sink   *threadSink
}

// overlayTiles implements one sliding-window step of the overlay: it
// gathers each active thread's per-tile segment slots into one combined
// parser, interleaves their replay by fewest-accumulated-cycles, and pads the
// window so every active thread ends with equal cycle counts. Every reader
// opened via slot.seg.Parser() is closed before this call returns, on every
// exit path including a fatal error, per spec.md §5.
func (b *Backend) overlayTiles(window []*tile, out lir.Sink, printer *lir.Printer) (err error) {
	slots, slotErr := gatherSlots(window)
	if slotErr != nil {
		return slotErr
	}

	var opened []*lir.Parser
	defer func() {
		for _, p := range opened {
			if closeErr := p.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	}()

	order := make([]uint32, 0, len(slots))
	parsersByTid := map[uint32][]*lir.Parser{}
	for _, slot := range slots {
		if slot.seg == nil {
			continue
		}
		if printer != nil {
			if err := printer.Comment(fmt.Sprintf("TID %d: %s", slot.tid, slot.seg.Key())); err != nil {
				return err
			}
		}
		p, err := slot.seg.Parser()
		if err != nil {
			return err
		}
		opened = append(opened, p)
		if _, seen := parsersByTid[slot.tid]; !seen {
			order = append(order, slot.tid)
		}
		parsersByTid[slot.tid] = append(parsersByTid[slot.tid], p)
	}

	actives := make([]*activeThread, 0, len(order))
	for _, tid := range order {
		combined := lir.Combine(b.layout, parsersByTid[tid]...)
		actives = append(actives, &activeThread{
			tid:    tid,
			parser: combined,
			sink:   newThreadSink(tid, b.layout, out),
		})
	}

	if err := interleaveByLeastCycles(actives); err != nil {
		return err
	}
	return balanceCycles(actives, b.balance)
}

// interleaveByLeastCycles repeatedly advances whichever active thread has
// the fewest accumulated cycles (ties broken by ascending tid) until every
// thread's parser is exhausted.
func interleaveByLeastCycles(actives []*activeThread) error {
	for {
		var best *activeThread
		for _, at := range actives {
			if !at.parser.HasNext() {
				continue
			}
			if best == nil || at.sink.cycles < best.sink.cycles ||
				(at.sink.cycles == best.sink.cycles && at.tid < best.tid) {
				best = at
			}
		}
		if best == nil {
			return nil
		}
		if _, err := best.parser.ParseNext(best.sink); err != nil {
			return err
		}
	}
}

// balanceCycles pads every active thread below the window's maximum cycle
// count until all active threads end the window equal.
func balanceCycles(actives []*activeThread, policy BalancePolicy) error {
	if len(actives) == 0 {
		return nil
	}
	var maxCycles uint64
	for _, at := range actives {
		if at.sink.cycles > maxCycles {
			maxCycles = at.sink.cycles
		}
	}
	for {
		progressed := false
		for _, at := range actives {
			if at.sink.cycles < maxCycles {
				if err := policy.Pad(at.sink); err != nil {
					return err
				}
				progressed = true
			}
		}
		if !progressed {
			return nil
		}
	}
}

// threadSink wraps the outer broadcast sink for one hardware thread during
// overlay: it charges every opcode's estimated cycles against the thread's
// own counter and, for MatMul, DataMove, and LoadWeights, rewrites every
// Local-tagged address operand by adding threadLocalDepth*tid exactly once
// before forwarding the call.
type threadSink struct {
	tid       uint32
	bias      uint64
	estimator estimate.Estimator
	layout    layout.Layout
	out       lir.Sink
	cycles    uint64
}

var _ lir.Sink = (*threadSink)(nil)

func newThreadSink(tid uint32, l layout.Layout, out lir.Sink) *threadSink {
	return &threadSink{
		tid:       tid,
		bias:      l.AddressBias(tid),
		estimator: estimate.NewEstimator(l),
		layout:    l,
		out:       out,
	}
}

func biasLocal(a address.Address, bias uint64) address.Address {
	if a.Tag == address.Local {
		return a.Biased(bias)
	}
	return a
}

func (t *threadSink) NoOp() error {
	t.cycles += t.estimator.Estimate(lir.OpNoOp, 0, 0).Cycles
	return t.out.NoOp()
}

func (t *threadSink) Wait(tid uint32) error {
	t.cycles += t.estimator.Estimate(lir.OpWait, 0, 0).Cycles
	return t.out.Wait(tid)
}

func (t *threadSink) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	t.cycles += t.estimator.Estimate(lir.OpMatMul, size, 0).Cycles
	localStride = biasLocal(localStride, t.bias)
	localAddr = biasLocal(localAddr, t.bias)
	accStride = biasLocal(accStride, t.bias)
	accAddr = biasLocal(accAddr, t.bias)
	return t.out.MatMul(accumulate, localStride, localAddr, accStride, accAddr, size)
}

func (t *threadSink) SIMD(accumulate bool, simdOp lir.SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	t.cycles += t.estimator.Estimate(lir.OpSIMD, 0, 0).Cycles
	return t.out.SIMD(accumulate, simdOp, srcL, srcR, dst, writeAccAddr, readAccAddr)
}

func (t *threadSink) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	flags := estimate.EncodeDataMoveFlags(t.layout, accumulate, addr.Tag)
	t.cycles += t.estimator.Estimate(lir.OpDataMove, size, flags).Cycles
	localStride = biasLocal(localStride, t.bias)
	localAddr = biasLocal(localAddr, t.bias)
	stride = biasLocal(stride, t.bias)
	addr = biasLocal(addr, t.bias)
	return t.out.DataMove(toLocal, accumulate, localStride, localAddr, stride, addr, size)
}

func (t *threadSink) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	t.cycles += t.estimator.Estimate(lir.OpLoadWeights, size, 0).Cycles
	localStride = biasLocal(localStride, t.bias)
	localAddr = biasLocal(localAddr, t.bias)
	return t.out.LoadWeights(localStride, localAddr, size)
}
