package backend

import "github.com/rajivbishwokarma/tensil/src/lir"

// BalancePolicy decides how an under-budget thread catches up to the
// window's slowest thread during cycle balancing. The default emits a
// single NoOp; a future mutual-Wait insertion policy can implement this
// interface without touching the rest of the overlay.
type BalancePolicy interface {
	Pad(sink lir.Sink) error
}

// NoopBalancePolicy pads an under-budget thread with one NoOp per call.
type NoopBalancePolicy struct{}

var _ BalancePolicy = NoopBalancePolicy{}

func (NoopBalancePolicy) Pad(sink lir.Sink) error {
	return sink.NoOp()
}
