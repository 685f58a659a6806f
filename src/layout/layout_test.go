package layout

import "testing"

func TestDefaultValidates(t *testing.T) {
	t.Parallel()
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate(): %v", err)
	}
}

func TestThreadLocalValidates(t *testing.T) {
	t.Parallel()
	if err := ThreadLocal().Validate(); err != nil {
		t.Fatalf("ThreadLocal().Validate(): %v", err)
	}
}

func TestWindowSizeByThreadCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		threads int
		want    int
		wantErr bool
	}{
		{1, 1, false},
		{2, 3, false},
		{3, 0, true},
		{0, 0, true},
	}
	for _, tc := range cases {
		l := Default()
		l.NumberOfThreads = tc.threads
		got, err := l.WindowSize()
		if tc.wantErr {
			if err == nil {
				t.Errorf("threads=%d: want error, got window size %d", tc.threads, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("threads=%d: unexpected error %v", tc.threads, err)
		}
		if got != tc.want {
			t.Errorf("threads=%d: WindowSize() = %d, want %d", tc.threads, got, tc.want)
		}
	}
}

func TestValidateRejectsUnsupportedThreadCount(t *testing.T) {
	t.Parallel()
	l := Default()
	l.NumberOfThreads = 5
	if err := l.Validate(); err == nil {
		t.Fatal("Validate() with unsupported thread count: want error, got nil")
	}
}

func TestValidateRejectsNonPositiveInstructionBytes(t *testing.T) {
	t.Parallel()
	l := Default()
	l.InstructionBytes = 0
	if err := l.Validate(); err == nil {
		t.Fatal("Validate() with zero InstructionBytes: want error, got nil")
	}
}

func TestAddressBiasScalesWithThreadID(t *testing.T) {
	t.Parallel()
	l := Default()
	if got := l.AddressBias(0); got != 0 {
		t.Errorf("AddressBias(0) = %d, want 0", got)
	}
	if got, want := l.AddressBias(1), l.LocalDepth; got != want {
		t.Errorf("AddressBias(1) = %d, want %d", got, want)
	}
	if got, want := l.AddressBias(3), l.LocalDepth*3; got != want {
		t.Errorf("AddressBias(3) = %d, want %d", got, want)
	}
}

func TestValidateRejectsNonPositiveTagWidth(t *testing.T) {
	t.Parallel()
	l := Default()
	l.Fields.TagWidth = 0
	if err := l.Validate(); err == nil {
		t.Fatal("Validate() with zero TagWidth: want error, got nil")
	}
}

func TestValidateRejectsTagWidthTooNarrowForTagCount(t *testing.T) {
	t.Parallel()
	l := Default()
	l.Fields.TagWidth = 1
	if err := l.Validate(); err == nil {
		t.Fatal("Validate() with TagWidth too narrow to address every tag: want error, got nil")
	}
}

func TestRawWidthOutOfRangeTagIsZero(t *testing.T) {
	t.Parallel()
	l := Default()
	if got := l.RawWidth(-1); got != 0 {
		t.Errorf("RawWidth(-1) = %d, want 0", got)
	}
	if got := l.RawWidth(99); got != 0 {
		t.Errorf("RawWidth(99) = %d, want 0", got)
	}
}
