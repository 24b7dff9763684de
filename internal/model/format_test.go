package model

import "testing"

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1_500_000_000, "1.5B"},
		{1_500, "1.5K"},
		{150, "150"},
		{0, "0"},
		{2_000_000, "2M"},
		{1_000_000_000, "1B"},
		{999, "999"},
		{-1_500, "-1.5K"},
	}

	for _, tt := range tests {
		if got := FormatCompact(tt.in); got != tt.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompactUnknown(t *testing.T) {
	if got := FormatCompact(Unknown()); got != "-" {
		t.Errorf("FormatCompact(Unknown()) = %q, want -", got)
	}
}
