package scale

import (
	"math"
	"time"
)

// MinLabelPx is the minimum horizontal separation between time labels.
const MinLabelPx = 75.0

// TimeTick is one labelled position on the time axis.
type TimeTick struct {
	T     int64
	X     float64
	Label string
}

// step is either a number of days or a number of months.
type step struct {
	days   int
	months int
}

func (st step) approxMs() float64 {
	if st.months > 0 {
		return float64(st.months) * 30.44 * float64(msPerDay)
	}
	return float64(st.days) * float64(msPerDay)
}

var monthSteps = []int{1, 2, 3, 6, 12, 24, 60, 120}

// baseStep picks the starting step from the domain span in days.
func baseStep(spanDays float64) step {
	switch {
	case spanDays <= 14:
		return step{days: 2}
	case spanDays <= 60:
		return step{days: 7}
	case spanDays <= 120:
		return step{days: 14}
	case spanDays <= 400:
		return step{months: 1}
	default:
		// roughly 12 labels over the span before the pixel cap kicks in
		months := int(math.Ceil(spanDays / 30.44 / 12))
		for _, m := range monthSteps {
			if m >= months {
				return step{months: m}
			}
		}
		return step{months: monthSteps[len(monthSteps)-1]}
	}
}

// widen returns the next coarser step.
func widen(st step) step {
	if st.months > 0 {
		for _, m := range monthSteps {
			if m > st.months {
				return step{months: m}
			}
		}
		return step{months: st.months * 2}
	}
	switch {
	case st.days < 7:
		return step{days: 7}
	case st.days < 14:
		return step{days: 14}
	default:
		return step{months: 1}
	}
}

// labelLayout picks the label format for the span: day+month, month+day or
// month+year.
func labelLayout(spanDays float64) string {
	switch {
	case spanDays <= 60:
		return "2 Jan"
	case spanDays <= 400:
		return "Jan 2"
	default:
		return "Jan 2006"
	}
}

// TimeTicks returns labelled ticks for the time scale s. The step is chosen
// from the span in days and widened until neighbouring labels are at least
// minLabelPx apart.
func TimeTicks(s Time, minLabelPx float64) []TimeTick {
	if minLabelPx <= 0 {
		minLabelPx = MinLabelPx
	}
	spanMs := float64(s.D1 - s.D0)
	width := math.Abs(s.R1 - s.R0)
	if spanMs <= 0 || width < 1 {
		return nil
	}
	spanDays := spanMs / float64(msPerDay)
	pxPerMs := width / spanMs

	st := baseStep(spanDays)
	for i := 0; i < 16 && st.approxMs()*pxPerMs < minLabelPx; i++ {
		st = widen(st)
	}

	layout := labelLayout(spanDays)
	start := time.UnixMilli(s.D0).UTC()
	end := time.UnixMilli(s.D1).UTC()

	var ticks []TimeTick
	add := func(t time.Time) {
		ms := t.UnixMilli()
		ticks = append(ticks, TimeTick{T: ms, X: s.X(ms), Label: t.Format(layout)})
	}

	if st.months > 0 {
		t := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		if t.Before(start) {
			t = t.AddDate(0, 1, 0)
		}
		for (int(t.Month())-1)%st.months != 0 {
			t = t.AddDate(0, 1, 0)
		}
		for ; !t.After(end); t = t.AddDate(0, st.months, 0) {
			add(t)
		}
		return ticks
	}

	// day steps align to whole UTC days counted from the epoch
	stepMs := int64(st.days) * msPerDay
	first := (s.D0 + stepMs - 1) / stepMs * stepMs
	for ms := first; ms <= s.D1; ms += stepMs {
		add(time.UnixMilli(ms).UTC())
	}
	return ticks
}

// NiceTicks generates roughly n tick values spanning [min, max] on a
// 1, 2, 2.5, 5 × 10^k grid.
func NiceTicks(min, max float64, n int) []float64 {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	candidates := []float64{1, 2, 2.5, 5, 10}
	bestStep := mag
	bestScore := math.MaxFloat64
	for _, c := range candidates {
		step := c * mag
		count := math.Ceil(span/step) + 1
		if count < 2 {
			count = 2
		}
		diff := math.Abs(count - float64(n))
		if diff < bestScore {
			bestScore = diff
			bestStep = step
		}
	}
	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	var out []float64
	for v := start; v <= end+bestStep*0.5; v += bestStep {
		out = append(out, round6(v))
		if len(out) > 4*n {
			break
		}
	}
	return out
}

// round6 rounds to 6 decimal places to stabilize labels.
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
