// Package indicator provides streaming moving averages over close prices.
//
// All indicators implement the Indicator interface: they receive one price at
// a time and expose the current value once enough data has been seen.
package indicator

import (
	"math"
	"strings"

	"trading-chartv1/internal/model"
)

// Indicator is the interface for all moving averages.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears the state for reuse.
	Reset()
}

// Kind selects a moving-average implementation.
type Kind string

const (
	KindSMA  Kind = "SMA"
	KindEMA  Kind = "EMA"
	KindSMMA Kind = "SMMA"
)

// ParseKind maps a case-insensitive name to a Kind, defaulting to SMA.
func ParseKind(s string) Kind {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindEMA:
		return KindEMA
	case KindSMMA:
		return KindSMMA
	default:
		return KindSMA
	}
}

// New creates an indicator of the given kind. Returns nil for a non-positive
// period.
func New(kind Kind, period int) Indicator {
	if period <= 0 {
		return nil
	}
	switch kind {
	case KindEMA:
		return NewEMA(period)
	case KindSMMA:
		return NewSMMA(period)
	default:
		return NewSMA(period)
	}
}

// MovingAverage runs an indicator over the candle closes and returns one value
// per candle. Entries before the indicator is ready, and entries whose close
// is not finite, are NaN; renderers skip them.
func MovingAverage(candles []model.Candle, kind Kind, period int) []float64 {
	out := make([]float64, len(candles))
	ind := New(kind, period)
	for i := range candles {
		if ind == nil {
			out[i] = math.NaN()
			continue
		}
		c := candles[i].C
		ind.Update(c)
		if finite(c) && ind.Ready() {
			out[i] = ind.Value()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
