package render

import (
	"math"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/spline"
)

type backgroundLayer struct{}

func (backgroundLayer) Name() string { return "background" }

func (backgroundLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	ctx.Clear(th.Background)
}

// gridLayer draws horizontal lines at the price ticks and vertical lines at
// the time ticks.
type gridLayer struct{}

func (gridLayer) Name() string { return "grid" }

func (gridLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	c := g.Chart
	if c.W <= 0 || c.H <= 0 {
		return
	}
	ctx.SetStrokeColor(th.Grid)
	ctx.SetLineWidth(1)
	ctx.BeginPath()
	for _, v := range s.Y.Ticks(g.Layout.PriceTicks) {
		y := s.Y.Unit(v)
		if !canvas.Finite(y) || y < g.Plot.Y || y > g.Plot.Bottom() {
			continue
		}
		ctx.MoveTo(c.X, y)
		ctx.LineTo(c.Right(), y)
	}
	for _, tk := range timeTicks(g, s) {
		ctx.MoveTo(tk.X, c.Y)
		ctx.LineTo(tk.X, c.Bottom())
	}
	if g.Volume.H > 0 {
		ctx.MoveTo(c.X, g.Volume.Y)
		ctx.LineTo(c.Right(), g.Volume.Y)
	}
	ctx.Stroke()
	ctx.StrokeRect(c.X, c.Y, c.W, c.H)
}

type placeholderLayer struct {
	Text string
}

func (placeholderLayer) Name() string { return "placeholder" }

func (l placeholderLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	placeholder(ctx, g.Chart, l.Text, th)
}

// placeholder centers a message in r.
func placeholder(ctx canvas.Context, r Rect, text string, th Theme) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	ctx.SetFillColor(th.Placeholder)
	ctx.FillText(text, r.X+r.W/2, r.Y+r.H/2, canvas.AlignCenter)
}

// phaseLayer shades market-phase zones behind the candles.
type phaseLayer struct {
	Zones []model.PhaseZone
}

func (phaseLayer) Name() string { return "phases" }

func (l phaseLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	c := g.Chart
	half := s.BarWidth / 2
	for _, z := range l.Zones {
		x0 := math.Max(s.TimeX(z.From)-half, c.X)
		x1 := math.Min(s.TimeX(z.To)+half, c.Right())
		if !canvas.Finite(x0, x1) || x1 <= x0 {
			continue
		}
		col := th.Phase(z.Phase)
		ctx.SetFillColor(col)
		ctx.SetAlpha(PhaseAlpha)
		ctx.FillRect(x0, c.Y, x1-x0, c.H)

		label := string(z.Phase)
		if ctx.MeasureText(label)+8 <= x1-x0 {
			ctx.SetAlpha(PhaseTextAlpha)
			ctx.FillText(label, x0+4, c.Y+g.Layout.LabelHeight/2+2, canvas.AlignLeft)
		}
	}
}

// candleLayer draws wicks and bodies.
type candleLayer struct {
	Candles []model.Candle
}

func (candleLayer) Name() string { return "candles" }

func (l candleLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	bw := s.BarWidth
	ctx.SetLineWidth(1)
	for i := range l.Candles {
		c := &l.Candles[i]
		x := s.X(i)
		yO, yH, yL, yC := s.Y.Price(c.O), s.Y.Price(c.H), s.Y.Price(c.L), s.Y.Price(c.C)
		if !canvas.Finite(x, yO, yH, yL, yC) {
			continue
		}
		col := th.Down
		if c.Bullish() {
			col = th.Up
		}
		ctx.SetStrokeColor(col)
		ctx.SetFillColor(col)

		ctx.BeginPath()
		ctx.MoveTo(x, yH)
		ctx.LineTo(x, yL)
		ctx.Stroke()

		top := math.Min(yO, yC)
		h := math.Max(1, math.Abs(yO-yC))
		ctx.FillRect(x-bw/2, top, bw, h)
	}
}

// maLayer draws the moving-average line; NaN values break the line.
type maLayer struct {
	Values []float64
	Label  string
}

func (maLayer) Name() string { return "ma" }

func (l maLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	pts := make([]spline.Point, len(l.Values))
	for i, v := range l.Values {
		pts[i] = spline.Point{X: s.X(i), Y: s.Y.Price(v)}
	}
	ctx.SetStrokeColor(th.MA)
	ctx.SetLineWidth(1.5)
	polyline(ctx, pts)

	if l.Label != "" {
		ctx.SetFillColor(th.MA)
		ctx.FillText(l.Label, g.Plot.X+6, g.Plot.Y+g.Layout.LabelHeight/2+2, canvas.AlignLeft)
	}
}

// volumeLayer draws volume bars in the lower pane. Bars without volume are
// skipped.
type volumeLayer struct {
	Candles []model.Candle
}

func (volumeLayer) Name() string { return "volume" }

func (l volumeLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	if s.MaxVolume <= 0 || g.Volume.H <= 0 {
		return
	}
	bw := s.BarWidth
	base := g.Volume.Bottom()
	ctx.SetAlpha(VolumeAlpha)
	for i := range l.Candles {
		c := &l.Candles[i]
		if !c.HasVolume() {
			continue
		}
		x := s.X(i)
		y := s.Vol.Map(c.Volume())
		if !canvas.Finite(x, y) || y >= base {
			continue
		}
		if c.Bullish() {
			ctx.SetFillColor(th.Up)
		} else {
			ctx.SetFillColor(th.Down)
		}
		ctx.FillRect(x-bw/2, y, bw, base-y)
	}
}

// polyline strokes pts, lifting the pen across non-finite points.
func polyline(ctx canvas.Context, pts []spline.Point) {
	ctx.BeginPath()
	pen := false
	for _, p := range pts {
		if !canvas.Finite(p.X, p.Y) {
			pen = false
			continue
		}
		if pen {
			ctx.LineTo(p.X, p.Y)
		} else {
			ctx.MoveTo(p.X, p.Y)
			pen = true
		}
	}
	ctx.Stroke()
}

// curve appends a Catmull-Rom curve through pts to the current path. When
// join is set the curve continues the path with a line to its first point.
func curve(ctx canvas.Context, pts []spline.Point, tension float64, join bool) {
	if len(pts) == 0 {
		return
	}
	if join {
		ctx.LineTo(pts[0].X, pts[0].Y)
	} else {
		ctx.MoveTo(pts[0].X, pts[0].Y)
	}
	for _, seg := range spline.CatmullRom(pts, tension) {
		ctx.CurveTo(seg.C1.X, seg.C1.Y, seg.C2.X, seg.C2.Y, seg.End.X, seg.End.Y)
	}
}

// finitePoints drops non-finite points.
func finitePoints(pts []spline.Point) []spline.Point {
	out := pts[:0:0]
	for _, p := range pts {
		if canvas.Finite(p.X, p.Y) {
			out = append(out, p)
		}
	}
	return out
}

// band fills the area between upper and lower (same length, left to right)
// as one smooth polygon.
func band(ctx canvas.Context, upper, lower []spline.Point, tension float64) {
	upper, lower = finitePoints(upper), finitePoints(lower)
	if len(upper) < 2 || len(lower) < 2 {
		return
	}
	rev := make([]spline.Point, len(lower))
	for i, p := range lower {
		rev[len(lower)-1-i] = p
	}
	ctx.BeginPath()
	curve(ctx, upper, tension, false)
	curve(ctx, rev, tension, true)
	ctx.ClosePath()
	ctx.Fill()
}

// tag draws text on a filled box. align positions the box relative to x.
func tag(ctx canvas.Context, text string, x, y float64, align canvas.Align, bg, fg Color, h float64) {
	w := ctx.MeasureText(text) + 8
	left := x
	switch align {
	case canvas.AlignCenter:
		left = x - w/2
	case canvas.AlignRight:
		left = x - w
	}
	ctx.SetFillColor(bg)
	ctx.FillRect(left, y-h/2, w, h)
	ctx.SetFillColor(fg)
	ctx.FillText(text, left+4, y, canvas.AlignLeft)
}
