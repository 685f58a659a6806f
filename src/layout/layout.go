// Package layout describes the accelerator architecture and the binary
// encoding used by the LIR generator and parser. A Layout is built once per
// compilation and is read-only for the lifetime of that compilation — it
// plays the same role the teacher's misc.ConfigLoader plays for the DPU
// simulator, but for the chiplet instruction encoding instead of the
// memory hierarchy.
package layout

import "fmt"

// DataType names the numeric format activations and weights are stored in.
type DataType int

const (
	FP16 DataType = iota
	BF16
	INT8
)

func (d DataType) String() string {
	switch d {
	case FP16:
		return "fp16"
	case BF16:
		return "bf16"
	case INT8:
		return "int8"
	default:
		return "unknown"
	}
}

// FieldWidths carries the bit width of every operand field the generator and
// parser must agree on. Widths are in bits; Raw widths are indexed by
// address.Tag ordinal.
type FieldWidths struct {
	Opcode     int
	ThreadID   int
	Size       int
	Flags      int
	SimdOp     int
	Accumulate int
	TagWidth   int
	RawByTag   [5]int // address.Local, Accumulator, DRAM0, DRAM1, Zero
}

// FlagBits names the bit positions packed into the DataMove flags field.
type FlagBits struct {
	ToLocal    uint
	Accumulate uint
	FromZero   uint
}

// Layout is the immutable architecture + encoding descriptor shared by every
// component that needs to reason about field widths or cost constants.
type Layout struct {
	// Architecture.
	DataType          DataType
	ArraySize         int
	NumberOfThreads   int
	AccumulatorDepth  uint64
	LocalDepth        uint64
	DRAMBankWidth     [2]uint64
	PipelineLatency   uint64
	WeightSetupCycles uint64
	SyncCycles        uint64
	SimdCycles        uint64
	ClockMHz          int

	// Encoding.
	Fields            FieldWidths
	Flags             FlagBits
	InstructionBytes  int
	LittleEndian      bool
}

// Default returns a Layout matching a small single-thread reference
// architecture; tests and examples build on top of it.
func Default() Layout {
	return Layout{
		DataType:          FP16,
		ArraySize:         128,
		NumberOfThreads:   1,
		AccumulatorDepth:  1 << 16,
		LocalDepth:        1 << 14,
		DRAMBankWidth:     [2]uint64{1 << 24, 1 << 24},
		PipelineLatency:   8,
		WeightSetupCycles: 16,
		SyncCycles:        1,
		SimdCycles:        4,
		ClockMHz:          800,
		Fields: FieldWidths{
			Opcode:     4,
			ThreadID:   1,
			Size:       20,
			Flags:      4,
			SimdOp:     4,
			Accumulate: 1,
			TagWidth:   3,
			RawByTag:   [5]int{16, 16, 24, 24, 0},
		},
		Flags: FlagBits{
			ToLocal:    0,
			Accumulate: 1,
			FromZero:   2,
		},
		InstructionBytes: 16,
		LittleEndian:     true,
	}
}

// ThreadLocal returns a two-thread, three-tile-window architecture used by
// the pipelined overlay scenarios.
func ThreadLocal() Layout {
	l := Default()
	l.NumberOfThreads = 2
	return l
}

// RawWidth returns the configured raw-offset bit width for tag.
func (l Layout) RawWidth(tagOrdinal int) int {
	if tagOrdinal < 0 || tagOrdinal >= len(l.Fields.RawByTag) {
		return 0
	}
	return l.Fields.RawByTag[tagOrdinal]
}

// WindowSize returns the overlay sliding window size for this Layout's
// thread count, or an error if the thread count is unsupported.
func (l Layout) WindowSize() (int, error) {
	switch l.NumberOfThreads {
	case 1:
		return 1, nil
	case 2:
		return 3, nil
	default:
		return 0, fmt.Errorf("layout: unsupported number of threads %d", l.NumberOfThreads)
	}
}

// Validate reports a descriptive error for any malformed Layout before a
// compilation unit does any segment work.
func (l Layout) Validate() error {
	if _, err := l.WindowSize(); err != nil {
		return err
	}
	if l.InstructionBytes <= 0 {
		return fmt.Errorf("layout: instruction_bytes must be positive, got %d", l.InstructionBytes)
	}
	totalBits := l.Fields.Opcode
	if totalBits <= 0 {
		return fmt.Errorf("layout: opcode field width must be positive")
	}
	if l.Fields.TagWidth <= 0 {
		return fmt.Errorf("layout: tag width must be positive, got %d", l.Fields.TagWidth)
	}
	if 1<<uint(l.Fields.TagWidth) < len(l.Fields.RawByTag) {
		return fmt.Errorf("layout: tag width %d cannot address %d tags", l.Fields.TagWidth, len(l.Fields.RawByTag))
	}
	for tag, width := range l.Fields.RawByTag {
		if width < 0 {
			return fmt.Errorf("layout: raw width for tag %d must be non-negative, got %d", tag, width)
		}
	}
	return nil
}

// TagWidth returns the configured bit width of an address.Tag field.
func (l Layout) TagWidth() int {
	return l.Fields.TagWidth
}

// AddressBias returns the per-thread local-memory offset added during the
// overlay for the given thread identifier.
func (l Layout) AddressBias(tid uint32) uint64 {
	return l.LocalDepth * uint64(tid)
}
