package render

import (
	"fmt"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/spline"
)

// matchSeries is a historical match resolved to prices.
//
// The analog window (base 100 at its first point) is denormalized with the
// close at the start of the current window, the most recent len(window)
// bars, so both windows share a starting price. The aftermath continues on
// the same base. Distribution percentiles are base 100 at the anchor, the
// last close, and index i is day i+1.
type matchSeries struct {
	// analog[k] is drawn at absolute bar index windowStart+k.
	windowStart int
	analog      []float64
	aftermath   []float64

	anchor float64
	p10    []float64
	p25    []float64
	p50    []float64
	p75    []float64
	p90    []float64

	label string
}

func buildMatch(candles []model.Candle, m *model.Match, dist *model.DistributionSeries) matchSeries {
	var ms matchSeries
	total := len(candles)
	if total == 0 {
		return ms
	}
	ms.anchor = candles[total-1].C

	if !m.Empty() {
		n := min(len(m.WindowNormalized), total)
		w := m.WindowNormalized[len(m.WindowNormalized)-n:]
		ms.windowStart = total - n
		base := candles[ms.windowStart].C
		if w[0] > 0 && base > 0 {
			k := base / w[0]
			ms.analog = scaled(w, k)
			ms.aftermath = scaled(m.AftermathNormalized, k)
		}
		ms.label = matchLabel(m)
	}

	if dist.Valid() && ms.anchor > 0 {
		n := dist.Len()
		k := ms.anchor / 100
		ms.p10 = scaled(dist.P10[:n], k)
		ms.p25 = scaled(dist.P25[:n], k)
		ms.p50 = scaled(dist.P50[:n], k)
		ms.p75 = scaled(dist.P75[:n], k)
		ms.p90 = scaled(dist.P90[:n], k)
	}
	return ms
}

func scaled(vs []float64, k float64) []float64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v * k
	}
	return out
}

func matchLabel(m *model.Match) string {
	sim := m.Similarity
	if sim <= 1 {
		sim *= 100
	}
	s := fmt.Sprintf("match %.0f%%  stability %.2f", sim, m.Stability)
	if m.Phase != "" {
		s += "  " + string(m.Phase)
	}
	return s
}

// empty reports whether there is nothing to draw.
func (ms matchSeries) empty() bool {
	return len(ms.analog) == 0 && len(ms.p50) == 0
}

// days returns the forward horizon covered by the aftermath or the fan.
func (ms matchSeries) days() int {
	return max(len(ms.aftermath), len(ms.p50))
}

// series lists the prices the y scale has to fit.
func (ms matchSeries) series() [][]float64 {
	return [][]float64{ms.analog, ms.aftermath, ms.p10, ms.p90}
}

// matchLayer draws the distribution fan, the analog window over the current
// window and the analog aftermath past the last bar.
type matchLayer struct {
	Series matchSeries
}

func (matchLayer) Name() string { return "match" }

func (l matchLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	ms := l.Series
	if ms.empty() {
		placeholder(ctx, forecastRect(g, s), NoMatchText, th)
		return
	}
	tension := g.Layout.SplineTension
	anchor := spline.Point{X: s.NowX, Y: s.Y.Price(ms.anchor)}

	if len(ms.p50) > 0 {
		ctx.SetFillColor(th.Fan)
		ctx.SetAlpha(FanOuterAlpha)
		band(ctx, l.fan(s, anchor, ms.p90), l.fan(s, anchor, ms.p10), tension)
		ctx.SetAlpha(FanInnerAlpha)
		band(ctx, l.fan(s, anchor, ms.p75), l.fan(s, anchor, ms.p25), tension)
		ctx.SetAlpha(1)

		ctx.SetStrokeColor(th.FanMedian)
		ctx.SetLineWidth(1.5)
		ctx.SetLineDash([]float64{4, 3})
		ctx.BeginPath()
		curve(ctx, finitePoints(l.fan(s, anchor, ms.p50)), tension, false)
		ctx.Stroke()
		ctx.SetLineDash(nil)
	}

	if len(ms.analog) > 0 {
		pts := make([]spline.Point, 0, len(ms.analog))
		for k, p := range ms.analog {
			i := ms.windowStart + k - s.Start
			if i < 0 || i >= len(s.Times) {
				continue
			}
			pts = append(pts, spline.Point{X: s.X(i), Y: s.Y.Price(p)})
		}
		ctx.SetStrokeColor(th.Analog)
		ctx.SetLineWidth(1.5)
		ctx.SetAlpha(AnalogAlpha)
		polyline(ctx, pts)

		if len(ms.aftermath) > 0 {
			last := ms.analog[len(ms.analog)-1]
			after := []spline.Point{{X: s.NowX, Y: s.Y.Price(last)}}
			for d, p := range ms.aftermath {
				x := s.DayX(d + 1)
				if x > g.Chart.Right() {
					break
				}
				after = append(after, spline.Point{X: x, Y: s.Y.Price(p)})
			}
			ctx.SetStrokeColor(th.Aftermath)
			polyline(ctx, after)
		}
		ctx.SetAlpha(1)
	}

	if ms.label != "" {
		lh := g.Layout.LabelHeight
		ctx.SetFillColor(th.Analog)
		ctx.FillText(ms.label, g.Plot.X+6, g.Plot.Y+lh*2.5+6, canvas.AlignLeft)
	}
}

// fan projects a percentile series, prefixed with the anchor point.
func (l matchLayer) fan(s Scales, anchor spline.Point, vs []float64) []spline.Point {
	pts := make([]spline.Point, 0, len(vs)+1)
	pts = append(pts, anchor)
	for d, v := range vs {
		if !canvas.Finite(v) {
			continue
		}
		pts = append(pts, spline.Point{X: s.DayX(d + 1), Y: s.Y.Price(v)})
	}
	return pts
}
