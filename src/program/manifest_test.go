package program

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rajivbishwokarma/tensil/src/backend"
	"github.com/rajivbishwokarma/tensil/src/layout"
)

func TestLoadManifestAndPopulateProducesProgram(t *testing.T) {
	t.Parallel()

	manifestJSON := `{
  "segments": [
    {"layer": 0, "stage": 0, "partition": 0, "kind": "init", "instructions": [
      {"op": "nop"}
    ]},
    {"layer": 0, "stage": 0, "partition": 0, "kind": "load", "instructions": [
      {"op": "ldweights", "local_stride": {"tag": "local", "raw": 0}, "local_addr": {"tag": "local", "raw": 0}, "size": 4}
    ]},
    {"layer": 0, "stage": 0, "partition": 0, "kind": "compute", "instructions": [
      {"op": "matmul", "local_stride": {"tag": "local", "raw": 0}, "local_addr": {"tag": "local", "raw": 4}, "acc_stride": {"tag": "accumulator", "raw": 0}, "acc_addr": {"tag": "accumulator", "raw": 0}, "size": 4}
    ]},
    {"layer": 0, "stage": 0, "partition": 0, "kind": "save", "instructions": [
      {"op": "datamove", "to_local": false, "local_stride": {"tag": "local", "raw": 0}, "local_addr": {"tag": "local", "raw": 0}, "stride": {"tag": "dram0", "raw": 0}, "addr": {"tag": "dram0", "raw": 0}, "size": 4}
    ]}
  ]
}`

	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(manifestJSON), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(manifest.Segments) != 4 {
		t.Fatalf("len(Segments) = %d, want 4", len(manifest.Segments))
	}

	l := layout.Default()
	b := backend.New(l, dir)
	if err := manifest.Populate(b); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	var out bytes.Buffer
	if err := b.WriteSegments(&out, nil, nil); err != nil {
		t.Fatalf("WriteSegments: %v", err)
	}
	if out.Len() == 0 {
		t.Error("WriteSegments produced an empty program")
	}
	if err := b.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}
}

func TestLoadManifestRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(`{"segments":[{"layer":0,"stage":0,"partition":0,"kind":"bogus","instructions":[]}]}`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	l := layout.Default()
	b := backend.New(l, dir)
	if err := manifest.Populate(b); err == nil {
		t.Fatal("Populate with unknown kind: want error, got nil")
	}
}
