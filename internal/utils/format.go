package utils

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders n with binary units, e.g. "1.5 MiB". Negative means unknown.
func FormatBytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(n))
}

// FormatPercent renders a 0-1 fraction as a percentage
func FormatPercent(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return fmt.Sprintf("%3.0f%%", fraction*100)
}

// FormatAge renders how long ago a unix timestamp was, e.g. "3 minutes ago"
func FormatAge(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return humanize.Time(time.Unix(unix, 0))
}
