package address

import "testing"

func TestBiasedAddsToRawWithoutMutatingOriginal(t *testing.T) {
	t.Parallel()

	a := New(Local, 10)
	b := a.Biased(5)

	if a.Raw != 10 {
		t.Errorf("original Raw mutated: got %d, want 10", a.Raw)
	}
	if b.Raw != 15 {
		t.Errorf("biased Raw = %d, want 15", b.Raw)
	}
}

func TestWithRefPreservesTagAndRaw(t *testing.T) {
	t.Parallel()

	a := New(DRAM0, 42).WithRef("weights[3]")
	if a.Tag != DRAM0 || a.Raw != 42 {
		t.Errorf("WithRef changed Tag/Raw: got %+v", a)
	}
	if a.Ref != "weights[3]" {
		t.Errorf("Ref = %v, want weights[3]", a.Ref)
	}
}

func TestStringIncludesTagPrefix(t *testing.T) {
	t.Parallel()

	cases := map[Tag]string{
		Local:       "L0",
		Accumulator: "A0",
		DRAM0:       "D00",
		DRAM1:       "D10",
		Zero:        "Z0",
	}
	for tag, want := range cases {
		if got := New(tag, 0).String(); got != want {
			t.Errorf("New(%v, 0).String() = %q, want %q", tag, got, want)
		}
	}
}
