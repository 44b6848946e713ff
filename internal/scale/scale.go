// Package scale maps chart data (candle index, timestamps, prices) to pixel
// coordinates and builds axis ticks. All functions are pure.
package scale

import "math"

const (
	// Epsilon is the minimum domain span a scale accepts.
	Epsilon = 1e-9

	// PadRatio pads price domains on both sides so extremes are not clipped.
	PadRatio = 0.08

	msPerDay = int64(24 * 60 * 60 * 1000)
)

// Index maps a candle index to x: X(i) = Left + i·Step.
type Index struct {
	Left float64
	Step float64
	N    int
}

// NewIndex spreads n bars over plotWidth starting at left.
// Step = plotWidth/(n−1); a single bar gets the full width as step.
func NewIndex(left, plotWidth float64, n int) Index {
	step := plotWidth
	if n > 1 {
		step = plotWidth / float64(n-1)
	}
	return Index{Left: left, Step: step, N: n}
}

// X returns the pixel position of (possibly fractional) index i.
func (s Index) X(i float64) float64 {
	return s.Left + i*s.Step
}

// IndexAt returns the nearest bar index for pixel x, clamped to [0, N−1].
// Returns -1 when the scale has no bars.
func (s Index) IndexAt(x float64) int {
	if s.N <= 0 {
		return -1
	}
	if s.Step <= Epsilon {
		return 0
	}
	i := int(math.Round((x - s.Left) / s.Step))
	if i < 0 {
		i = 0
	}
	if i > s.N-1 {
		i = s.N - 1
	}
	return i
}

// Time linearly maps an epoch-ms domain [D0, D1] onto pixels [R0, R1].
type Time struct {
	D0, D1 int64
	R0, R1 float64
}

// NewTime builds a time scale; an empty or inverted domain is widened to 1 ms.
func NewTime(d0, d1 int64, r0, r1 float64) Time {
	if d1 <= d0 {
		d1 = d0 + 1
	}
	return Time{D0: d0, D1: d1, R0: r0, R1: r1}
}

// ForecastDomain returns the time domain covering history plus the forecast
// horizon: historyStart → now + horizonDays. Forecast bars then extend past the
// last candle without changing candle geometry.
func ForecastDomain(historyStart, now int64, horizonDays int) (int64, int64) {
	if horizonDays < 0 {
		horizonDays = 0
	}
	end := now + int64(horizonDays)*msPerDay
	if end <= historyStart {
		end = historyStart + msPerDay
	}
	return historyStart, end
}

// X returns the pixel position of epoch-ms t.
func (s Time) X(t int64) float64 {
	span := float64(s.D1 - s.D0)
	return s.R0 + (float64(t-s.D0)/span)*(s.R1-s.R0)
}

// T returns the epoch-ms time at pixel x.
func (s Time) T(x float64) int64 {
	w := s.R1 - s.R0
	if math.Abs(w) < Epsilon {
		return s.D0
	}
	return s.D0 + int64(math.Round((x-s.R0)/w*float64(s.D1-s.D0)))
}

// PxPerDay returns the horizontal pixels per calendar day.
func (s Time) PxPerDay() float64 {
	return (s.R1 - s.R0) / float64(s.D1-s.D0) * float64(msPerDay)
}

// DayMs is the length of a calendar day in milliseconds.
func DayMs() int64 { return msPerDay }

// Linear maps a value domain [D0, D1] onto pixels [R0, R1]. For y axes R0 is
// the bottom pixel and R1 the top pixel.
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

// NewLinear builds a linear scale over [min, max]. When pad is set the domain
// is widened by PadRatio of its span on each side. Zero and non-finite spans
// are clamped so Map never divides by zero.
func NewLinear(min, max, r0, r1 float64, pad bool) Linear {
	if math.IsNaN(min) || math.IsInf(min, 0) || math.IsNaN(max) || math.IsInf(max, 0) {
		min, max = 0, 1
	}
	if max < min {
		min, max = max, min
	}
	span := max - min
	if span < Epsilon {
		half := math.Abs(min) * 0.01
		if half < Epsilon {
			half = 1
		}
		min -= half
		max += half
		span = max - min
	}
	if pad {
		min -= span * PadRatio
		max += span * PadRatio
	}
	return Linear{D0: min, D1: max, R0: r0, R1: r1}
}

// Map returns the pixel position of v.
func (l Linear) Map(v float64) float64 {
	return l.R0 + (v-l.D0)/(l.D1-l.D0)*(l.R1-l.R0)
}

// Invert returns the domain value at pixel px.
func (l Linear) Invert(px float64) float64 {
	w := l.R1 - l.R0
	if math.Abs(w) < Epsilon {
		return l.D0
	}
	return l.D0 + (px-l.R0)/w*(l.D1-l.D0)
}
