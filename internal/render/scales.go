package render

import (
	"math"
	"sort"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/scale"
)

// Scales are the coordinate transforms of one frame. In index mode candles
// are spread evenly over the series rect. In time mode (a forecast or
// aftermath horizon is shown and the viewport ends on the last bar) candles
// are placed by timestamp on a domain that runs from the first visible bar to
// now + horizon.
type Scales struct {
	Index    scale.Index
	Time     scale.Time
	TimeMode bool

	Y   scale.Y
	Vol scale.Linear

	// Times are the visible candle open times; Start is the absolute index of
	// Times[0].
	Times []int64
	Start int

	Now     int64
	NowX    float64
	Horizon int

	BarWidth  float64
	MaxVolume float64
}

// X returns the pixel column of visible bar i.
func (s Scales) X(i int) float64 {
	if s.TimeMode && i >= 0 && i < len(s.Times) {
		return s.Time.X(s.Times[i])
	}
	return s.Index.X(float64(i))
}

// TimeX returns the pixel column of an arbitrary timestamp. In index mode the
// position is interpolated between neighbouring bars and extrapolated by the
// edge bar spacing outside them.
func (s Scales) TimeX(t int64) float64 {
	if s.TimeMode {
		return s.Time.X(t)
	}
	n := len(s.Times)
	switch n {
	case 0:
		return s.Index.Left
	case 1:
		days := float64(t-s.Times[0]) / float64(scale.DayMs())
		return s.Index.X(0) + days*s.Index.Step
	}
	frac := func(a, b int64) float64 {
		if b <= a {
			return 0
		}
		return float64(t-a) / float64(b-a)
	}
	i := sort.Search(n, func(k int) bool { return s.Times[k] >= t })
	switch {
	case i == 0:
		return s.Index.X(frac(s.Times[0], s.Times[1]))
	case i == n:
		return s.Index.X(float64(n-2) + frac(s.Times[n-2], s.Times[n-1]))
	default:
		return s.Index.X(float64(i-1) + frac(s.Times[i-1], s.Times[i]))
	}
}

// DayX returns the pixel column of forecast day d (day 0 is now).
func (s Scales) DayX(d int) float64 {
	return s.TimeX(s.Now + int64(d)*scale.DayMs())
}

// IndexAt returns the visible bar nearest to pixel column x, or -1.
func (s Scales) IndexAt(x float64) int {
	n := len(s.Times)
	if n == 0 {
		return -1
	}
	if !s.TimeMode {
		return s.Index.IndexAt(x)
	}
	i := sort.Search(n, func(k int) bool { return s.X(k) >= x })
	if i == n {
		return n - 1
	}
	if i > 0 && x-s.X(i-1) < s.X(i)-x {
		return i - 1
	}
	return i
}

// BarSpan returns the pixel columns of the first and last visible bars.
func (s Scales) BarSpan() (first, last float64) {
	n := len(s.Times)
	if n == 0 {
		return s.Index.Left, s.Index.Left
	}
	return s.X(0), s.X(n - 1)
}

// spacing returns the mean distance between adjacent visible bars.
func (s Scales) spacing() float64 {
	n := len(s.Times)
	if n > 1 {
		return math.Abs(s.X(n-1)-s.X(0)) / float64(n-1)
	}
	if s.TimeMode {
		return s.Time.PxPerDay()
	}
	return s.Index.Step
}

// newScales builds the transforms for the prepared frame.
func newScales(g Geometry, f *frameData) Scales {
	n := len(f.visible)
	s := Scales{
		Index:   scale.NewIndex(g.Series.X, g.Series.W, n),
		Start:   f.start,
		Now:     f.now,
		Horizon: f.horizon,
		Times:   make([]int64, n),
	}
	for i := range f.visible {
		s.Times[i] = f.visible[i].T
	}

	if f.timeMode && n > 0 {
		d0, d1 := scale.ForecastDomain(s.Times[0], f.now, f.horizon)
		s.Time = scale.NewTime(d0, d1, g.Series.X, g.Series.Right())
		s.TimeMode = true
	} else if n > 0 {
		s.Time = scale.NewTime(s.Times[0], s.Times[n-1], s.Index.X(0), s.Index.X(float64(n-1)))
	}
	s.NowX = s.TimeX(f.now)

	s.BarWidth = math.Max(1, math.Min(s.spacing()*g.Layout.BodyRatio, g.Series.W/4))
	if !canvas.Finite(s.BarWidth) {
		s.BarWidth = 1
	}

	lo, hi, ok := scale.PriceRange(f.priceSeries()...)
	if !ok {
		lo, hi = 0, 1
	}
	var ref float64
	switch f.yMode {
	case scale.ModeNormalized:
		if n > 0 {
			ref = f.visible[0].C
		}
	case scale.ModePercentFromCurrent:
		ref = f.lastClose
	}
	s.Y = scale.NewY(f.yMode, ref, lo, hi, g.Plot.Bottom(), g.Plot.Y)

	for i := range f.visible {
		if v := f.visible[i].Volume(); f.visible[i].HasVolume() && v > s.MaxVolume {
			s.MaxVolume = v
		}
	}
	if s.MaxVolume > 0 {
		s.Vol = scale.NewLinear(0, s.MaxVolume, g.Volume.Bottom(), g.Volume.Y, false)
	}
	return s
}
