package timeparse

import (
	"testing"
	"time"
)

func TestParseKnownLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-14T09:30:00Z", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"2025-03-14 09:30:00", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"2025-03-14", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"Fri, 14 Mar 2025 09:30:00 +0000", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"14 Mar 2025", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"March 14, 2025", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got := Parse(tc.in)
		if got == nil {
			t.Fatalf("Parse(%q) returned nil", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseUnknownYieldsNil(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "yesterday", "14/03/2025"} {
		if got := Parse(in); got != nil {
			t.Fatalf("Parse(%q) = %v, want nil", in, got)
		}
	}
}
