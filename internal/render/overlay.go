package render

import (
	"math"
	"strings"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/scale"
	"trading-chartv1/internal/spline"
)

// OverlayMode selects how a forecast is drawn.
type OverlayMode string

const (
	OverlayAuto       OverlayMode = "auto"
	OverlayCapsule    OverlayMode = "capsule"
	OverlayTrajectory OverlayMode = "trajectory"
	OverlayHybrid     OverlayMode = "hybrid"
)

// ParseOverlayMode maps a case-insensitive name to a mode, defaulting to auto.
func ParseOverlayMode(s string) OverlayMode {
	switch m := OverlayMode(strings.ToLower(strings.TrimSpace(s))); m {
	case OverlayCapsule, OverlayTrajectory, OverlayHybrid:
		return m
	default:
		return OverlayAuto
	}
}

// CapsuleHorizon is the longest horizon auto mode draws as a capsule card.
const CapsuleHorizon = 7

// Overlay is one forecast rendering strategy.
type Overlay interface {
	Mode() OverlayMode
	Draw(ctx canvas.Context, g Geometry, s Scales, th Theme, f *model.ForecastOutput)
}

// SelectOverlay picks the strategy for a horizon. An explicit mode wins; auto
// draws a capsule card up to CapsuleHorizon days and a trajectory beyond.
func SelectOverlay(horizon int, mode OverlayMode) Overlay {
	switch mode {
	case OverlayCapsule:
		return Capsule{}
	case OverlayTrajectory:
		return Trajectory{}
	case OverlayHybrid:
		return Hybrid{}
	}
	if horizon > 0 && horizon <= CapsuleHorizon {
		return Capsule{}
	}
	return Trajectory{}
}

// overlayFor is SelectOverlay, upgraded to Hybrid in auto mode when the
// forecast carries a historical replay.
func overlayFor(horizon int, mode OverlayMode, f *model.ForecastOutput) Overlay {
	o := SelectOverlay(horizon, mode)
	if (mode == "" || mode == OverlayAuto) && o.Mode() == OverlayTrajectory && f != nil && f.Unified.HasReplay() {
		return Hybrid{}
	}
	return o
}

// forecastLayer hands the forecast to its overlay strategy.
type forecastLayer struct {
	Forecast *model.ForecastOutput
	Overlay  Overlay
}

func (forecastLayer) Name() string { return "forecast" }

func (l forecastLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	f := l.Forecast
	if f == nil || f.Unified.Len() == 0 || l.Overlay == nil {
		placeholder(ctx, forecastRect(g, s), NoForecastText, th)
		return
	}
	l.Overlay.Draw(ctx, g, s, th, f)
}

// forecastRect is the chart area right of NOW.
func forecastRect(g Geometry, s Scales) Rect {
	r := g.Plot
	if s.TimeMode && s.NowX > r.X && s.NowX < r.Right() {
		r.W = r.Right() - s.NowX
		r.X = s.NowX
	}
	return r
}

// pathPoints returns the per-day points of f, day 0 first.
func pathPoints(f *model.ForecastOutput) []model.PathPoint {
	return f.Unified.Points
}

// lines projects path points into pixel series for price, bands and replay.
type lines struct {
	price, upper, lower, replay []spline.Point
}

func project(s Scales, pts []model.PathPoint) lines {
	var ls lines
	for _, p := range pts {
		x := s.DayX(p.Day)
		ls.price = append(ls.price, spline.Point{X: x, Y: s.Y.Price(p.Price)})
		ls.upper = append(ls.upper, spline.Point{X: x, Y: s.Y.Price(p.Upper)})
		ls.lower = append(ls.lower, spline.Point{X: x, Y: s.Y.Price(p.Lower)})
		if p.HasReplay() {
			ls.replay = append(ls.replay, spline.Point{X: x, Y: s.Y.Price(p.Replay)})
		}
	}
	return ls
}

// bandAlpha fades the band with the mean confidence decay.
func bandAlpha(f *model.ForecastOutput) float64 {
	if len(f.ConfidenceDecay) == 0 {
		return BandAlpha
	}
	var sum float64
	for _, c := range f.ConfidenceDecay {
		if canvas.Finite(c) {
			sum += math.Max(0, math.Min(1, c))
		}
	}
	mean := sum / float64(len(f.ConfidenceDecay))
	return BandAlpha * (0.5 + 0.5*mean)
}

func drawBand(ctx canvas.Context, g Geometry, th Theme, f *model.ForecastOutput, ls lines) {
	ctx.SetFillColor(th.Band)
	ctx.SetAlpha(bandAlpha(f))
	band(ctx, ls.upper, ls.lower, g.Layout.SplineTension)
	ctx.SetAlpha(1)
}

func drawTailFloor(ctx canvas.Context, g Geometry, s Scales, th Theme, f *model.ForecastOutput) {
	if f.TailFloor <= 0 {
		return
	}
	y := s.Y.Price(f.TailFloor)
	x0, x1 := s.NowX, s.DayX(f.Horizon())
	if !canvas.Finite(y, x0, x1) || y < g.Plot.Y || y > g.Plot.Bottom() {
		return
	}
	ctx.SetStrokeColor(th.TailFloor)
	ctx.SetLineWidth(1)
	ctx.SetLineDash([]float64{6, 4})
	ctx.BeginPath()
	ctx.MoveTo(x0, y)
	ctx.LineTo(x1, y)
	ctx.Stroke()
	ctx.SetLineDash(nil)
	ctx.SetFillColor(th.TailFloor)
	ctx.FillText("tail "+scale.FormatPrice(f.TailFloor), x1, y+g.Layout.LabelHeight/2+2, canvas.AlignRight)
}

func drawPrice(ctx canvas.Context, g Geometry, th Theme, pts []spline.Point) {
	pts = finitePoints(pts)
	if len(pts) < 2 {
		return
	}
	ctx.SetStrokeColor(th.Forecast)
	ctx.SetLineWidth(2)
	ctx.BeginPath()
	curve(ctx, pts, g.Layout.SplineTension, false)
	ctx.Stroke()
}

// drawMarkers dots the key days. Labels closer than NowLabelGap to the NOW
// separator are skipped.
func drawMarkers(ctx canvas.Context, g Geometry, s Scales, th Theme, f *model.ForecastOutput) {
	for _, m := range f.Markers {
		x, y := s.DayX(m.Day), s.Y.Price(m.Price)
		if !canvas.Finite(x, y) || !g.Plot.Contains(x, y) {
			continue
		}
		ctx.SetFillColor(th.Marker)
		ctx.FillRect(x-2.5, y-2.5, 5, 5)
		if math.Abs(x-s.NowX) < g.Layout.NowLabelGap {
			continue
		}
		ctx.FillText(m.Label+" "+scale.FormatPrice(m.Price), x, y-g.Layout.LabelHeight/2-2, canvas.AlignCenter)
	}
}

// Trajectory draws the calibrated path inside its uncertainty band with the
// tail floor and key-day markers.
type Trajectory struct{}

func (Trajectory) Mode() OverlayMode { return OverlayTrajectory }

func (Trajectory) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme, f *model.ForecastOutput) {
	ls := project(s, pathPoints(f))
	drawBand(ctx, g, th, f, ls)
	drawTailFloor(ctx, g, s, th, f)
	drawPrice(ctx, g, th, ls.price)
	drawMarkers(ctx, g, s, th, f)
}

// Hybrid draws the calibrated path and the raw historical replay together.
// Both come from the same unified path, so they share the day-0 anchor.
type Hybrid struct{}

func (Hybrid) Mode() OverlayMode { return OverlayHybrid }

func (Hybrid) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme, f *model.ForecastOutput) {
	ls := project(s, pathPoints(f))
	drawBand(ctx, g, th, f, ls)
	drawTailFloor(ctx, g, s, th, f)

	if len(ls.replay) > 1 {
		ctx.SetStrokeColor(th.Replay)
		ctx.SetLineWidth(1.5)
		ctx.SetLineDash([]float64{5, 3})
		polyline(ctx, ls.replay)
		ctx.SetLineDash(nil)
	}
	drawPrice(ctx, g, th, ls.price)
	drawMarkers(ctx, g, s, th, f)

	r := forecastRect(g, s)
	lh := g.Layout.LabelHeight
	ctx.SetFillColor(th.Forecast)
	ctx.FillText("calibrated", r.Right()-6, r.Y+lh/2+2, canvas.AlignRight)
	if len(ls.replay) > 1 {
		ctx.SetFillColor(th.Replay)
		ctx.FillText("replay", r.Right()-6, r.Y+lh*1.5+4, canvas.AlignRight)
	}
}

// Capsule draws a directional arrow from now to the final day and a compact
// card with the expected return and the final band. Used for short horizons
// where a full trajectory carries little information.
type Capsule struct{}

func (Capsule) Mode() OverlayMode { return OverlayCapsule }

func (Capsule) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme, f *model.ForecastOutput) {
	pts := pathPoints(f)
	p0, last := pts[0].Price, pts[len(pts)-1]
	x0, y0 := s.NowX, s.Y.Price(p0)
	x1, y1 := s.DayX(last.Day), s.Y.Price(last.Price)
	if !canvas.Finite(x0, y0, x1, y1) {
		return
	}
	ret := math.NaN()
	if p0 > 0 {
		ret = last.Price/p0 - 1
	}
	col := th.Direction(ret)

	ctx.SetStrokeColor(col)
	ctx.SetLineWidth(2)
	ctx.BeginPath()
	ctx.MoveTo(x0, y0)
	ctx.LineTo(x1, y1)
	ctx.Stroke()
	arrowHead(ctx, col, x0, y0, x1, y1, 8)

	lh := g.Layout.LabelHeight
	title := scale.FormatReturn(ret) + " by " + dayLabel(s.Now, last.Day)
	rng := scale.FormatPrice(last.Lower) + " – " + scale.FormatPrice(last.Upper)
	w := math.Max(ctx.MeasureText(title), ctx.MeasureText(rng)) + 12
	h := 2*lh + 6
	cx := math.Min(x1+8, g.Plot.Right()-w)
	cy := math.Max(g.Plot.Y, math.Min(y1-h/2, g.Plot.Bottom()-h))

	ctx.SetFillColor(th.LabelBackground)
	ctx.SetAlpha(CardAlpha)
	ctx.FillRect(cx, cy, w, h)
	ctx.SetAlpha(1)
	ctx.SetStrokeColor(col)
	ctx.SetLineWidth(1)
	ctx.StrokeRect(cx, cy, w, h)
	ctx.SetFillColor(col)
	ctx.FillText(title, cx+6, cy+lh/2+3, canvas.AlignLeft)
	ctx.SetFillColor(th.LabelText)
	ctx.FillText(rng, cx+6, cy+lh*1.5+3, canvas.AlignLeft)
}

// arrowHead fills a triangle at (x1, y1) pointing away from (x0, y0).
func arrowHead(ctx canvas.Context, col Color, x0, y0, x1, y1, size float64) {
	a := math.Atan2(y1-y0, x1-x0)
	ctx.SetFillColor(col)
	ctx.BeginPath()
	ctx.MoveTo(x1, y1)
	ctx.LineTo(x1-size*math.Cos(a-math.Pi/6), y1-size*math.Sin(a-math.Pi/6))
	ctx.LineTo(x1-size*math.Cos(a+math.Pi/6), y1-size*math.Sin(a+math.Pi/6))
	ctx.ClosePath()
	ctx.Fill()
}
