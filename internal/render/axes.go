package render

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/scale"
)

// NowLabel marks the forecast anchor on the time axis.
const NowLabel = "NOW"

// timeTicks returns the time-axis ticks of the frame, positioned with the
// frame's own x mapping.
func timeTicks(g Geometry, s Scales) []scale.TimeTick {
	if len(s.Times) == 0 {
		return nil
	}
	ticks := scale.TimeTicks(s.Time, g.Layout.MinLabelPx)
	out := ticks[:0]
	for _, tk := range ticks {
		tk.X = s.TimeX(tk.T)
		if tk.X < g.Chart.X || tk.X > g.Chart.Right() || !canvas.Finite(tk.X) {
			continue
		}
		out = append(out, tk)
	}
	return out
}

// axesLayer draws the price axis with a last-price tag, the time axis and the
// NOW separator.
type axesLayer struct {
	Last model.Candle
}

func (axesLayer) Name() string { return "axes" }

func (l axesLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	lh := g.Layout.LabelHeight
	ax := g.PriceAxis

	ctx.SetFillColor(th.Text)
	for _, v := range s.Y.Ticks(g.Layout.PriceTicks) {
		y := s.Y.Unit(v)
		if !canvas.Finite(y) || y < g.Plot.Y+lh/2 || y > g.Plot.Bottom()-lh/2 {
			continue
		}
		ctx.FillText(s.Y.Label(v), ax.X+6, y, canvas.AlignLeft)
	}

	if y := s.Y.Price(l.Last.C); canvas.Finite(y) && y >= g.Plot.Y && y <= g.Plot.Bottom() {
		label := s.Y.Label(s.Y.ValueAt(y))
		tag(ctx, label, ax.X+2, y, canvas.AlignLeft, th.Direction(l.Last.C-l.Last.O), th.LabelText, lh)
	}

	if s.MaxVolume > 0 && g.Volume.H > 0 {
		ctx.SetFillColor(th.MutedText)
		ctx.FillText(humanize.SIWithDigits(s.MaxVolume, 1, ""), ax.X+6, g.Volume.Y+lh/2, canvas.AlignLeft)
	}

	hasNow := s.TimeMode && s.NowX >= g.Chart.X && s.NowX <= g.Chart.Right()
	ty := g.TimeAxis.Y + g.TimeAxis.H/2
	ctx.SetFillColor(th.Text)
	for _, tk := range timeTicks(g, s) {
		if hasNow && math.Abs(tk.X-s.NowX) < g.Layout.NowLabelGap {
			continue
		}
		ctx.FillText(tk.Label, tk.X, ty, canvas.AlignCenter)
	}

	if hasNow {
		ctx.SetStrokeColor(th.Now)
		ctx.SetLineWidth(1)
		ctx.SetLineDash([]float64{4, 4})
		ctx.BeginPath()
		ctx.MoveTo(s.NowX, g.Chart.Y)
		ctx.LineTo(s.NowX, g.Chart.Bottom())
		ctx.Stroke()
		ctx.SetLineDash(nil)
		tag(ctx, NowLabel, s.NowX, ty, canvas.AlignCenter, th.LabelBackground, th.Now, lh)
	}
}

// crosshairLayer draws the pointer guides, their axis labels and an OHLC
// readout of the bar under the pointer.
type crosshairLayer struct {
	Cross   model.Crosshair
	Candles []model.Candle
}

func (crosshairLayer) Name() string { return "crosshair" }

func (l crosshairLayer) Draw(ctx canvas.Context, g Geometry, s Scales, th Theme) {
	c := g.Chart
	lh := g.Layout.LabelHeight
	i := l.Cross.Index - s.Start
	x := l.Cross.X
	if i >= 0 && i < len(l.Candles) {
		x = s.X(i)
	} else {
		i = s.IndexAt(x)
	}
	y := l.Cross.Y
	if !canvas.Finite(x, y) || x < c.X || x > c.Right() {
		return
	}

	ctx.SetStrokeColor(th.Crosshair)
	ctx.SetLineWidth(1)
	ctx.SetLineDash([]float64{3, 3})
	ctx.BeginPath()
	ctx.MoveTo(x, c.Y)
	ctx.LineTo(x, c.Bottom())
	inPlot := y >= g.Plot.Y && y <= g.Plot.Bottom()
	if inPlot {
		ctx.MoveTo(c.X, y)
		ctx.LineTo(c.Right(), y)
	}
	ctx.Stroke()
	ctx.SetLineDash(nil)

	if inPlot {
		tag(ctx, s.Y.Label(s.Y.ValueAt(y)), g.PriceAxis.X+2, y, canvas.AlignLeft, th.LabelBackground, th.LabelText, lh)
	}
	if i < 0 || i >= len(l.Candles) {
		return
	}
	bar := &l.Candles[i]
	ty := g.TimeAxis.Y + g.TimeAxis.H/2
	tag(ctx, bar.Time().Format("Mon 2 Jan 2006"), x, ty, canvas.AlignCenter, th.LabelBackground, th.LabelText, lh)

	ctx.SetFillColor(th.Text)
	ctx.FillText(ohlc(bar), g.Plot.X+6, g.Plot.Y+lh*1.5+4, canvas.AlignLeft)
}

// ohlc formats the readout line of a bar.
func ohlc(c *model.Candle) string {
	var b strings.Builder
	b.WriteString("O ")
	b.WriteString(scale.FormatPrice(c.O))
	b.WriteString("  H ")
	b.WriteString(scale.FormatPrice(c.H))
	b.WriteString("  L ")
	b.WriteString(scale.FormatPrice(c.L))
	b.WriteString("  C ")
	b.WriteString(scale.FormatPrice(c.C))
	if c.HasVolume() {
		b.WriteString("  V ")
		b.WriteString(humanize.SIWithDigits(c.Volume(), 2, ""))
	}
	return b.String()
}

// dayLabel formats forecast day d relative to now.
func dayLabel(now int64, d int) string {
	return time.UnixMilli(now + int64(d)*scale.DayMs()).UTC().Format("2 Jan")
}
