package forecast

import "math"

// MinDelta is the raw segment delta below which a multiplicative rescale is
// considered degenerate.
const MinDelta = 1e-4

// Anchor days of the calibration (1-based).
const (
	Day7  = 7
	Day14 = 14
	Day30 = 30
)

// RawReturns converts an aftermath template into returns relative to its
// first point: raw[i] = aftermath[i]/aftermath[0] − 1.
func RawReturns(aftermath []float64) []float64 {
	if len(aftermath) == 0 || aftermath[0] == 0 {
		return nil
	}
	base := aftermath[0]
	raw := make([]float64, len(aftermath))
	for i, v := range aftermath {
		raw[i] = v/base - 1
	}
	return raw
}

// anchorTarget returns the target return for the last index of a template
// shorter than 15 points, reading the piecewise-linear anchor curve
// (0,0) (7,R7) (14,R14) (30,R30) at day n.
func anchorTarget(day int, r7, r14, r30 float64) float64 {
	d := float64(day)
	switch {
	case day <= Day7:
		return r7 * d / Day7
	case day <= Day14:
		return r7 + (r14-r7)*(d-Day7)/(Day14-Day7)
	default:
		return r14 + (r30-r14)*(d-Day14)/(Day30-Day14)
	}
}

// anchor is an index into the calibrated series and the return it must hit.
type anchor struct {
	idx    int
	target float64
}

// anchors returns the segment end points for a template of n points.
// Index i is day i+1, so R7 sits at index 6 and R14 at index 13; R30 is
// pinned to the last index whatever the template length.
func anchors(n int, r7, r14, r30 float64) []anchor {
	switch {
	case n <= Day7:
		return []anchor{{n - 1, anchorTarget(n, r7, r14, r30)}}
	case n <= Day14:
		return []anchor{{Day7 - 1, r7}, {n - 1, anchorTarget(n, r7, r14, r30)}}
	default:
		return []anchor{{Day7 - 1, r7}, {Day14 - 1, r14}, {n - 1, r30}}
	}
}

// Calibrate rescales three contiguous segments of raw so that the result hits
// R7 at index 6, R14 at index 13 and R30 at the last index exactly. Inside a
// segment the shape is preserved: every delta from the segment start is
// multiplied by the same factor. When a segment's raw delta is below MinDelta
// the segment is shifted additively instead, with a linear ramp that lands on
// the target, so anchors hold for flat templates too.
func Calibrate(raw []float64, r7, r14, r30 float64) []float64 {
	n := len(raw)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)

	// segment 1 starts from the virtual day 0 with return 0
	prevIdx, prevRaw, prevCal := -1, 0.0, 0.0
	for _, a := range anchors(n, r7, r14, r30) {
		if a.idx <= prevIdx {
			continue
		}
		span := float64(a.idx - prevIdx)
		delta := raw[a.idx] - prevRaw
		want := a.target - prevCal
		degenerate := math.Abs(delta) < MinDelta
		scale := 1.0
		if !degenerate {
			scale = want / delta
		}
		for i := prevIdx + 1; i <= a.idx; i++ {
			d := raw[i] - prevRaw
			if degenerate {
				out[i] = prevCal + d + (want-delta)*float64(i-prevIdx)/span
			} else {
				out[i] = prevCal + d*scale
			}
		}
		out[a.idx] = a.target
		prevIdx, prevRaw, prevCal = a.idx, raw[a.idx], a.target
	}
	return out
}
