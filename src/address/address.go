// Package address defines the memory address type shared by every LIR
// operand: a memory space tag, a raw offset, and an opaque symbolic
// reference kept only for tracepoint resolution.
package address

import "fmt"

// Tag identifies the memory space a raw offset is relative to.
type Tag int

const (
	Local Tag = iota
	Accumulator
	DRAM0
	DRAM1
	Zero
)

// String returns the disassembly prefix used by the LIR printer.
func (t Tag) String() string {
	switch t {
	case Local:
		return "L"
	case Accumulator:
		return "A"
	case DRAM0:
		return "D0"
	case DRAM1:
		return "D1"
	case Zero:
		return "Z"
	default:
		return "?"
	}
}

// Ref is an opaque symbolic reference used only for tracepoint resolution. It
// never affects program bytes.
type Ref interface{}

// Address is a (tag, ref, raw) triple. Raw is interpreted relative to Tag and
// must fit in the field width the Layout assigns to that tag.
type Address struct {
	Tag Tag
	Ref Ref
	Raw uint64
}

// New builds an Address with no symbolic reference attached.
func New(tag Tag, raw uint64) Address {
	return Address{Tag: tag, Raw: raw}
}

// WithRef returns a copy of a carrying the supplied symbolic reference.
func (a Address) WithRef(ref Ref) Address {
	a.Ref = ref
	return a
}

// Biased returns a copy of a with delta added to Raw. It is the only place
// the overlay's per-thread address rewrite touches an operand.
func (a Address) Biased(delta uint64) Address {
	a.Raw += delta
	return a
}

func (a Address) String() string {
	return fmt.Sprintf("%s%d", a.Tag, a.Raw)
}
