package source

import (
	"fmt"

	"trading-chartv1/internal/model"
)

// Resample aggregates time-ordered candles into tf-second buckets aligned to
// the unix epoch: bucket = ts - ts%tf. Open is the first open, close the last
// close, high and low the extremes. Volume is summed over the bars that carry
// one and stays absent when none do. The last bucket may be partial.
func Resample(candles []model.Candle, tf int) ([]model.Candle, error) {
	if tf <= 0 {
		return nil, fmt.Errorf("resample: tf must be positive, got %d", tf)
	}
	if len(candles) == 0 {
		return nil, nil
	}
	span := int64(tf) * 1000

	out := make([]model.Candle, 0, len(candles))
	var cur model.Candle
	var bucket int64
	started := false
	for i := range candles {
		c := &candles[i]
		b := c.T - floorMod(c.T, span)
		if !started || b != bucket {
			if started {
				out = append(out, cur)
			}
			bucket = b
			cur = model.Candle{T: b, O: c.O, H: c.H, L: c.L, C: c.C}
			if c.HasVolume() {
				cur.V = model.Vol(c.Volume())
			}
			started = true
			continue
		}
		cur.H = max(cur.H, c.H)
		cur.L = min(cur.L, c.L)
		cur.C = c.C
		if c.HasVolume() {
			cur.V = model.Vol(cur.Volume() + c.Volume())
		}
	}
	return append(out, cur), nil
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
