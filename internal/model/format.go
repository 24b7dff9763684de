package model

import (
	"math"
	"strconv"
	"strings"
)

// FormatCompact renders a value the way the dashboard table shows volume
// and market cap: 1_500_000_000 → "1.5B", 1_500 → "1.5K", 150 → "150".
// Unknown values render as "-".
func FormatCompact(v float64) string {
	if IsUnknown(v) {
		return "-"
	}
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}

	switch {
	case v >= 1e9:
		return neg + trimZeros(v/1e9) + "B"
	case v >= 1e6:
		return neg + trimZeros(v/1e6) + "M"
	case v >= 1e3:
		return neg + trimZeros(v/1e3) + "K"
	default:
		return neg + trimZeros(v)
	}
}

// trimZeros formats with one decimal place, dropping a trailing ".0".
func trimZeros(v float64) string {
	s := strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
