package estimate

import "github.com/rajivbishwokarma/tensil/src/lir"

// Stats accumulates per-opcode cycle and energy counts across a program. A
// single Stats may be shared across every EstimatorSink in a Backend's
// overlay so the final totals cover the whole emitted program.
type Stats struct {
	ByOpcode map[lir.Opcode]Cost
	Total    Cost
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{ByOpcode: make(map[lir.Opcode]Cost)}
}

func (s *Stats) add(op lir.Opcode, c Cost) {
	entry := s.ByOpcode[op]
	entry.Cycles += c.Cycles
	entry.Energy += c.Energy
	s.ByOpcode[op] = entry

	s.Total.Cycles += c.Cycles
	s.Total.Energy += c.Energy
}
