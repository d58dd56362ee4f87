// Package engage implements engagement metric normalization, aggregation,
// scoring, and multi-handle comparison.
package engage

import (
	"strconv"
	"strings"
)

// ParseCount converts a human-readable count ("1.2K", "3,456", "N/A") to an
// integer. Unparseable input degrades to 0; this function never fails.
func ParseCount(value string) int64 {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, ",", "")

	if value == "" || value == "N/A" {
		return 0
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(value, "K"):
		multiplier = 1_000
		value = strings.TrimSuffix(value, "K")
	case strings.HasSuffix(value, "M"):
		multiplier = 1_000_000
		value = strings.TrimSuffix(value, "M")
	case strings.HasSuffix(value, "B"):
		multiplier = 1_000_000_000
		value = strings.TrimSuffix(value, "B")
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int64(f * float64(multiplier))
}
