package scale

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Sentinel is displayed in place of non-finite numbers.
const Sentinel = "—"

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// FormatPrice renders a price label with thousands separators and precision
// depending on magnitude.
func FormatPrice(v float64) string {
	if !finite(v) {
		return Sentinel
	}
	av := math.Abs(v)
	switch {
	case av >= 1000:
		return humanize.CommafWithDigits(math.Round(v), 0)
	case av >= 100:
		return fmt.Sprintf("%.1f", v)
	case av >= 1:
		return fmt.Sprintf("%.2f", v)
	case v == 0:
		return "0"
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// FormatPercent renders a signed percent label, e.g. "+3.2%".
func FormatPercent(v float64) string {
	if !finite(v) {
		return Sentinel
	}
	if math.Abs(v) < 0.05 {
		return "0%"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

// FormatIndex renders a base-100 index value.
func FormatIndex(v float64) string {
	if !finite(v) {
		return Sentinel
	}
	return fmt.Sprintf("%.1f", v)
}

// FormatReturn renders a fractional return as a signed percent.
func FormatReturn(r float64) string {
	if !finite(r) {
		return Sentinel
	}
	return FormatPercent(r * 100)
}
