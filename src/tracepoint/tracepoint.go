// Package tracepoint defines the observability collaborators the Segment
// builder populates but never consumes itself: a Collector recording
// instruction-offset metadata, and a SymbolResolver used only to annotate
// disassembly. Both are pure interfaces — the compiler embedding this
// backend owns the real trace context.
package tracepoint

import "github.com/rajivbishwokarma/tensil/src/address"

// Metadata is the condition set recorded against one instruction offset
// within a segment's local byte stream.
type Metadata struct {
	Conditions map[string]string
}

// Collector receives (instruction_offset_within_segment, condition_set)
// pairs during segment build. Implementations are write-only from this
// module's point of view.
type Collector interface {
	Record(instructionOffset int, metadata Metadata)
}

// Object is whatever the front end's symbol table resolves a Ref to; this
// module only carries it through for printing.
type Object struct {
	Name string
}

// SymbolResolver resolves an opaque address.Ref to a front-end object for
// disassembly annotation. It never affects program bytes.
type SymbolResolver interface {
	Resolve(ref address.Ref) (Object, bool)
}

// MapCollector is the default in-process Collector: an ordered map from
// instruction offset to metadata, good enough for a single compilation run.
type MapCollector struct {
	entries map[int]Metadata
	order   []int
}

// NewMapCollector returns an empty MapCollector.
func NewMapCollector() *MapCollector {
	return &MapCollector{entries: make(map[int]Metadata)}
}

func (c *MapCollector) Record(instructionOffset int, metadata Metadata) {
	if _, exists := c.entries[instructionOffset]; !exists {
		c.order = append(c.order, instructionOffset)
	}
	c.entries[instructionOffset] = metadata
}

// Snapshot returns the recorded offset -> metadata mapping as a plain map,
// safe for a caller to retain after the collector itself is discarded.
func (c *MapCollector) Snapshot() map[int]Metadata {
	out := make(map[int]Metadata, len(c.entries))
	for offset, meta := range c.entries {
		out[offset] = meta
	}
	return out
}
