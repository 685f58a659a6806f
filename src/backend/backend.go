// Package backend owns the sorted map of finalized segments and the overlay
// scheduler that linearizes them into one binary program: tile construction,
// per-thread address rewriting, least-cycles interleaving, and cycle
// balancing. It is grounded on the teacher's chiplet orchestrator
// (simulator/chiplet/orchestrator.go), which owns an equivalently-shaped
// per-tile, per-thread schedule, but drives a deterministic code generator
// instead of a cycle-accurate simulation loop.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/rajivbishwokarma/tensil/src/address"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/estimate"
	"github.com/rajivbishwokarma/tensil/src/layout"
	"github.com/rajivbishwokarma/tensil/src/lir"
	"github.com/rajivbishwokarma/tensil/src/segment"
	"github.com/rajivbishwokarma/tensil/src/tracepoint"
	"golang.org/x/sync/errgroup"
)

// Backend accumulates segments keyed by (layer, stage, partition, kind) and
// linearizes them, in key order, into a final instruction stream.
type Backend struct {
	layout   layout.Layout
	segments map[segment.Key]*segment.Segment
	tmpDir   string
	balance  BalancePolicy
}

// New returns an empty Backend targeting l's architecture. tmpDir selects
// where segment temp files are created ("" uses the OS default).
func New(l layout.Layout, tmpDir string) *Backend {
	return &Backend{
		layout:   l,
		segments: make(map[segment.Key]*segment.Segment),
		tmpDir:   tmpDir,
		balance:  NoopBalancePolicy{},
	}
}

// SetBalancePolicy overrides the default no-op cycle-balancing policy.
func (b *Backend) SetBalancePolicy(p BalancePolicy) {
	b.balance = p
}

// MakeSegment opens a new Segment for key, backed by a temp-file Store, and
// tracks it for finalization. It is an error to make a segment for a key
// already present in the Backend.
func (b *Backend) MakeSegment(key segment.Key, collector tracepoint.Collector, stats *estimate.Stats) (*segment.Segment, error) {
	if _, exists := b.segments[key]; exists {
		return nil, cerr.Invariant(fmt.Sprintf("segment %s already exists", key))
	}
	store, err := segment.NewFileStore(b.tmpDir)
	if err != nil {
		return nil, err
	}
	if collector == nil {
		collector = tracepoint.NewMapCollector()
	}
	seg := segment.NewSegment(key, b.layout, store, collector, stats)
	b.segments[key] = seg
	return seg, nil
}

// FinalizeSegment closes seg, sealing its store, and leaves it in place in
// the Backend's map ready for WriteSegments. Calling it twice on the same
// segment is harmless — Close is idempotent on an already-sealed store.
func (b *Backend) FinalizeSegment(seg *segment.Segment) error {
	return seg.Close()
}

// ReleaseAll releases every segment's underlying store resource. Callers
// should defer this after a WriteSegments call, successful or not, the same
// way the teacher defers cleanup of its scoped simulator artifacts.
func (b *Backend) ReleaseAll() error {
	var first error
	for _, seg := range b.segments {
		if err := seg.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *Backend) sortedKeys() []segment.Key {
	keys := make([]segment.Key, 0, len(b.segments))
	for k := range b.segments {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// sortKeys insertion-sorts keys by the Key.Less ordering, adequate for the
// segment counts this backend is expected to handle.
func sortKeys(keys []segment.Key) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j].Less(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// fitsRawWidth reports whether raw is representable in width bits, the
// same bound Generator.writeField enforces at encode time. width <= 0
// means only zero fits (the tag has no addressable field at all, e.g. the
// Zero tag's RawByTag entry).
func fitsRawWidth(raw uint64, width int) bool {
	if width <= 0 {
		return raw == 0
	}
	if width >= 64 {
		return true
	}
	return raw < uint64(1)<<uint(width)
}

// validateSegments performs an independent, read-only pass over every
// finalized segment before the overlay begins, confirming (a) each
// segment's recorded peak raw address, per tag, fits the Layout's field
// width for that tag, and (b) its sealed byte length is a multiple of the
// instruction size. It runs the per-segment checks concurrently via
// errgroup since each check only reads its own segment's Store/peak
// addresses and reports into its own error slot — the one place this
// package uses host-level concurrency, see DESIGN.md.
func (b *Backend) validateSegments(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, seg := range b.segments {
		seg := seg
		g.Go(func() error {
			for _, tag := range []address.Tag{address.Local, address.Accumulator, address.DRAM0, address.DRAM1, address.Zero} {
				width := b.layout.RawWidth(int(tag))
				if peak := seg.PeakRaw(tag); !fitsRawWidth(peak, width) {
					return cerr.Invariant(fmt.Sprintf(
						"segment %s peak %s address %d overflows %d-bit field",
						seg.Key(), tag, peak, width))
				}
			}
			size, err := seg.StoreSize()
			if err != nil {
				return err
			}
			if size%int64(b.layout.InstructionBytes) != 0 {
				return cerr.Invariant(fmt.Sprintf(
					"segment %s byte length %d is not a multiple of instruction size %d",
					seg.Key(), size, b.layout.InstructionBytes))
			}
			return nil
		})
	}
	return g.Wait()
}

// WriteSegments walks the Backend's sorted segment map, groups segments into
// tiles, slides the Layout's overlay window across them, and writes the
// resulting linearized program to programOut, optional disassembly to
// printerOut, and optionally accumulates stats.
func (b *Backend) WriteSegments(programOut io.Writer, printerOut io.Writer, stats *estimate.Stats) error {
	if err := b.layout.Validate(); err != nil {
		return cerr.Configuration("invalid layout", err)
	}
	W, err := b.layout.WindowSize()
	if err != nil {
		return cerr.Configuration("unsupported thread count", err)
	}

	if err := b.validateSegments(context.Background()); err != nil {
		return err
	}

	tiles, err := b.buildTiles(W)
	if err != nil {
		return err
	}
	if len(tiles) < W {
		return nil
	}

	sinks := []lir.Sink{lir.NewGenerator(programOut, b.layout)}
	var printer *lir.Printer
	if printerOut != nil {
		printer = lir.NewPrinter(printerOut)
		sinks = append(sinks, printer)
	}
	if stats != nil {
		sinks = append(sinks, estimate.NewSink(b.layout, stats))
	}
	out := lir.NewBroadcast(sinks...)

	for i := 0; i+W <= len(tiles); i++ {
		if err := b.overlayTiles(tiles[i:i+W], out, printer); err != nil {
			return err
		}
	}
	return nil
}
