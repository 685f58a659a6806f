package lir

import "github.com/rajivbishwokarma/tensil/src/address"

// Broadcast fans every emit call out to a fixed, ordered list of sinks. The
// first error aborts the call and is returned without reaching the
// remaining sinks. It is used both to tee Backend output to
// (Generator, Printer, EstimatorSink) and to assemble a Segment from
// (Generator, tracepoint recorder, optional EstimatorSink).
type Broadcast struct {
	sinks []Sink
}

var _ Sink = (*Broadcast)(nil)

// NewBroadcast returns a Broadcast forwarding to sinks in order.
func NewBroadcast(sinks ...Sink) *Broadcast {
	return &Broadcast{sinks: sinks}
}

func (b *Broadcast) NoOp() error {
	for _, s := range b.sinks {
		if err := s.NoOp(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcast) Wait(tid uint32) error {
	for _, s := range b.sinks {
		if err := s.Wait(tid); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcast) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	for _, s := range b.sinks {
		if err := s.MatMul(accumulate, localStride, localAddr, accStride, accAddr, size); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcast) SIMD(accumulate bool, simdOp SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	for _, s := range b.sinks {
		if err := s.SIMD(accumulate, simdOp, srcL, srcR, dst, writeAccAddr, readAccAddr); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcast) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	for _, s := range b.sinks {
		if err := s.DataMove(toLocal, accumulate, localStride, localAddr, stride, addr, size); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broadcast) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	for _, s := range b.sinks {
		if err := s.LoadWeights(localStride, localAddr, size); err != nil {
			return err
		}
	}
	return nil
}
