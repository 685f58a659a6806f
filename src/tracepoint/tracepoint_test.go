package tracepoint

import "testing"

func TestMapCollectorRecordsAndSnapshots(t *testing.T) {
	t.Parallel()

	c := NewMapCollector()
	c.Record(0, Metadata{Conditions: map[string]string{"layer": "0"}})
	c.Record(3, Metadata{Conditions: map[string]string{"layer": "1"}})

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
	if snap[0].Conditions["layer"] != "0" {
		t.Errorf("snap[0] = %+v, want layer=0", snap[0])
	}
	if snap[3].Conditions["layer"] != "1" {
		t.Errorf("snap[3] = %+v, want layer=1", snap[3])
	}
}

func TestMapCollectorOverwritesSameOffset(t *testing.T) {
	t.Parallel()

	c := NewMapCollector()
	c.Record(0, Metadata{Conditions: map[string]string{"v": "first"}})
	c.Record(0, Metadata{Conditions: map[string]string{"v": "second"}})

	snap := c.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", len(snap))
	}
	if snap[0].Conditions["v"] != "second" {
		t.Errorf("snap[0] = %+v, want v=second", snap[0])
	}
}
