package estimate

import (
	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/layout"
	"github.com/rajivbishwokarma/tensil/src/lir"
)

// Sink is an LIR Sink that charges every emitted instruction against a
// shared Stats accumulator via an Estimator. It never touches program bytes
// and never rejects an in-range operand.
type Sink struct {
	estimator Estimator
	layout    layout.Layout
	stats     *Stats
}

var _ lir.Sink = (*Sink)(nil)

// NewSink returns an estimate.Sink charging costs for l's architecture into
// stats.
func NewSink(l layout.Layout, stats *Stats) *Sink {
	return &Sink{estimator: NewEstimator(l), layout: l, stats: stats}
}

func (s *Sink) NoOp() error {
	s.stats.add(lir.OpNoOp, s.estimator.Estimate(lir.OpNoOp, 0, 0))
	return nil
}

func (s *Sink) Wait(tid uint32) error {
	s.stats.add(lir.OpWait, s.estimator.Estimate(lir.OpWait, 0, 0))
	return nil
}

func (s *Sink) MatMul(accumulate bool, localStride, localAddr address.Address, accStride, accAddr address.Address, size uint32) error {
	s.stats.add(lir.OpMatMul, s.estimator.Estimate(lir.OpMatMul, size, 0))
	return nil
}

func (s *Sink) SIMD(accumulate bool, simdOp lir.SimdOp, srcL, srcR, dst address.Address, writeAccAddr, readAccAddr address.Address) error {
	s.stats.add(lir.OpSIMD, s.estimator.Estimate(lir.OpSIMD, 0, 0))
	return nil
}

func (s *Sink) DataMove(toLocal, accumulate bool, localStride, localAddr address.Address, stride, addr address.Address, size uint32) error {
	flags := EncodeDataMoveFlags(s.layout, accumulate, addr.Tag)
	s.stats.add(lir.OpDataMove, s.estimator.Estimate(lir.OpDataMove, size, flags))
	return nil
}

func (s *Sink) LoadWeights(localStride, localAddr address.Address, size uint32) error {
	s.stats.add(lir.OpLoadWeights, s.estimator.Estimate(lir.OpLoadWeights, size, 0))
	return nil
}
