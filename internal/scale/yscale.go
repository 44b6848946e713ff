package scale

import "math"

// Mode selects the unit of the y axis.
type Mode int

const (
	// ModePrice plots raw prices.
	ModePrice Mode = iota
	// ModeNormalized plots a base-100 index: 100·p/base.
	ModeNormalized
	// ModePercentFromCurrent plots (p/current − 1)·100.
	ModePercentFromCurrent
)

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormalized:
		return "normalized"
	case ModePercentFromCurrent:
		return "percent"
	default:
		return "price"
	}
}

// ParseMode maps a config name to a Mode, defaulting to ModePrice.
func ParseMode(s string) Mode {
	switch s {
	case "normalized":
		return ModeNormalized
	case "percent", "pct":
		return ModePercentFromCurrent
	default:
		return ModePrice
	}
}

// Y is a price axis. Callers always pass prices; the mode decides which unit
// the axis domain and tick labels use.
type Y struct {
	base Linear
	mode Mode
	ref  float64
}

// NewY builds a y scale for prices in [minPrice, maxPrice] drawn between the
// bottom and top pixels. ref is the base price (ModeNormalized) or current
// price (ModePercentFromCurrent). A non-positive ref falls back to ModePrice.
func NewY(mode Mode, ref, minPrice, maxPrice, bottom, top float64) Y {
	if mode != ModePrice && (ref <= 0 || math.IsNaN(ref) || math.IsInf(ref, 0)) {
		mode = ModePrice
	}
	y := Y{mode: mode, ref: ref}
	y.base = NewLinear(y.toUnit(minPrice), y.toUnit(maxPrice), bottom, top, true)
	return y
}

// NewPrice builds a raw price scale.
func NewPrice(minPrice, maxPrice, bottom, top float64) Y {
	return NewY(ModePrice, 0, minPrice, maxPrice, bottom, top)
}

// NewNormalized builds a base-100 scale anchored at base.
func NewNormalized(base, minPrice, maxPrice, bottom, top float64) Y {
	return NewY(ModeNormalized, base, minPrice, maxPrice, bottom, top)
}

// NewPercentFromCurrent builds a percent-from-current-price scale.
func NewPercentFromCurrent(current, minPrice, maxPrice, bottom, top float64) Y {
	return NewY(ModePercentFromCurrent, current, minPrice, maxPrice, bottom, top)
}

func (y Y) toUnit(p float64) float64 {
	switch y.mode {
	case ModeNormalized:
		return p / y.ref * 100
	case ModePercentFromCurrent:
		return (p/y.ref - 1) * 100
	default:
		return p
	}
}

func (y Y) fromUnit(v float64) float64 {
	switch y.mode {
	case ModeNormalized:
		return v / 100 * y.ref
	case ModePercentFromCurrent:
		return (v/100 + 1) * y.ref
	default:
		return v
	}
}

// Mode returns the effective mode after fallback.
func (y Y) Mode() Mode { return y.mode }

// Price returns the pixel row of price p.
func (y Y) Price(p float64) float64 { return y.base.Map(y.toUnit(p)) }

// Unit returns the pixel row of a value already expressed in axis units.
func (y Y) Unit(v float64) float64 { return y.base.Map(v) }

// PriceAt returns the price under pixel row px.
func (y Y) PriceAt(px float64) float64 { return y.fromUnit(y.base.Invert(px)) }

// ValueAt returns the axis-unit value under pixel row px.
func (y Y) ValueAt(px float64) float64 { return y.base.Invert(px) }

// Domain returns the padded domain in axis units, low first.
func (y Y) Domain() (float64, float64) { return y.base.D0, y.base.D1 }

// Label formats an axis-unit value for tick labels.
func (y Y) Label(v float64) string {
	switch y.mode {
	case ModeNormalized:
		return FormatIndex(v)
	case ModePercentFromCurrent:
		return FormatPercent(v)
	default:
		return FormatPrice(v)
	}
}

// Ticks returns up to n nice tick values inside the domain.
func (y Y) Ticks(n int) []float64 {
	lo, hi := y.Domain()
	var out []float64
	for _, v := range NiceTicks(lo, hi, n) {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

// PriceRange returns the low/high of the given series, skipping non-finite
// values. ok is false when nothing finite was seen.
func PriceRange(series ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi, !math.IsInf(lo, 1)
}
