package model

import (
	"fmt"
	"time"
)

// Candle is one OHLC bar as delivered by the data layer.
// T is the bar open time in epoch milliseconds. V is optional.
type Candle struct {
	T int64    `json:"t"`
	O float64  `json:"o"`
	H float64  `json:"h"`
	L float64  `json:"l"`
	C float64  `json:"c"`
	V *float64 `json:"v,omitempty"`
}

// Time returns the bar open time in UTC.
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.T).UTC()
}

// HasVolume reports whether the bar carries a volume value.
func (c *Candle) HasVolume() bool { return c.V != nil }

// Volume returns the bar volume, or 0 when absent.
func (c *Candle) Volume() float64 {
	if c.V == nil {
		return 0
	}
	return *c.V
}

// Bullish reports whether the bar closed at or above its open.
func (c *Candle) Bullish() bool { return c.C >= c.O }

// Vol is a convenience constructor for the optional volume field.
func Vol(v float64) *float64 { return &v }

// ValidateCandles checks that candles are strictly ordered by time.
// Returns nil for an empty slice.
func ValidateCandles(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].T == candles[i-1].T {
			return fmt.Errorf("duplicate candle timestamp %d at index %d", candles[i].T, i)
		}
		if candles[i].T < candles[i-1].T {
			return fmt.Errorf("candles out of order at index %d (%d < %d)", i, candles[i].T, candles[i-1].T)
		}
	}
	return nil
}

// LastClose returns the close of the final candle, or 0 for no candles.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].C
}
