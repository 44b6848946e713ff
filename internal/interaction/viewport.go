// Package interaction owns the chart viewport and crosshair. Zoom, Pan and
// Reset are pure viewport transforms; Controller maps pointer and wheel
// events onto them.
package interaction

import (
	"math"

	"trading-chartv1/internal/model"
)

// Default window bounds in bars.
const (
	DefaultMinWindow = 60
	DefaultMaxWindow = 520
	DefaultWindow    = 220
)

// bounds returns the effective [min, max] window for a series of total bars.
// A series shorter than minWindow is shown whole.
func bounds(total, minWindow, maxWindow int) (int, int) {
	if minWindow < 1 {
		minWindow = 1
	}
	if maxWindow < minWindow {
		maxWindow = minWindow
	}
	if total < minWindow {
		return total, total
	}
	if maxWindow > total {
		maxWindow = total
	}
	return minWindow, maxWindow
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp forces v into a valid viewport for total bars, keeping its start
// where possible. It is the single place out-of-range viewports are repaired.
func Clamp(v model.Viewport, total, minWindow, maxWindow int) model.Viewport {
	if total <= 0 {
		return model.Viewport{}
	}
	lo, hi := bounds(total, minWindow, maxWindow)
	n := clampInt(v.Len(), lo, hi)
	start := clampInt(v.Start, 0, total-n)
	return model.Viewport{Start: start, End: start + n}
}

// Zoom scales the window by factor around anchorIndex. The next window is
// clamp(round(window·factor), minWindow, maxWindow) and the anchor keeps its
// fractional position inside the window, so the bar under the pointer stays
// where it is on screen. v is not modified.
func Zoom(v model.Viewport, total, anchorIndex int, factor float64, minWindow, maxWindow int) model.Viewport {
	if total <= 0 {
		return model.Viewport{}
	}
	cur := Clamp(v, total, minWindow, maxWindow)
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return cur
	}
	lo, hi := bounds(total, minWindow, maxWindow)
	window := cur.Len()
	next := clampInt(int(math.Round(float64(window)*factor)), lo, hi)

	// frac is measured over bar spacing (window−1), matching scale.Index.
	anchor := clampInt(anchorIndex, cur.Start, cur.End-1)
	frac := 0.0
	if window > 1 {
		frac = float64(anchor-cur.Start) / float64(window-1)
	}
	start := anchor - int(math.Round(frac*float64(next-1)))
	start = clampInt(start, 0, total-next)
	return model.Viewport{Start: start, End: start + next}
}

// Pan shifts both bounds by deltaBars, clamped so the window stays inside
// [0, total]. The window length is unchanged.
func Pan(v model.Viewport, total, deltaBars int) model.Viewport {
	if total <= 0 {
		return model.Viewport{}
	}
	n := v.Len()
	if n <= 0 {
		n = 1
	}
	if n > total {
		n = total
	}
	start := clampInt(v.Start+deltaBars, 0, total-n)
	return model.Viewport{Start: start, End: start + n}
}

// Reset returns the trailing window of defaultWindow bars ending at total.
func Reset(total, defaultWindow int) model.Viewport {
	if total <= 0 {
		return model.Viewport{}
	}
	n := clampInt(defaultWindow, 1, total)
	return model.Viewport{Start: total - n, End: total}
}
