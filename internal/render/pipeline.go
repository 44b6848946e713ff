// Package render draws a chart frame onto a canvas.Context.
//
// Render is synchronous and stateless: every call clears the surface and
// redraws all layers from the given snapshot. Layers are independent values
// drawn in a fixed z-order, each bracketed by Save/Restore, and see only the
// context, the frame geometry, the scales and the theme.
package render

import (
	"context"
	"strconv"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/indicator"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/scale"
)

// Options select the optional layers and overlays of a frame.
type Options struct {
	MAPeriod   int
	MAKind     indicator.Kind
	ShowVolume bool
	YMode      scale.Mode

	Phases []model.PhaseZone

	Forecast    *model.ForecastOutput
	HorizonDays int
	// Now is the forecast anchor time in epoch ms; zero means the last candle.
	Now         int64
	OverlayMode OverlayMode

	Match        *model.Match
	Distribution *model.DistributionSeries
}

// Input is everything one frame is drawn from.
type Input struct {
	Candles  []model.Candle
	Viewport model.Viewport
	Cross    model.Crosshair
	Width    float64
	Height   float64
	Options  Options
	Layout   Layout
	Theme    Theme
}

// Layer is one independently drawable part of the chart.
type Layer interface {
	Name() string
	Draw(ctx canvas.Context, g Geometry, s Scales, th Theme)
}

// Placeholder texts.
const (
	NoDataText     = "No data"
	NoForecastText = "Forecast unavailable"
	NoMatchText    = "No historical match"
)

// Render clears ctx and draws the frame. It never panics on missing or
// degenerate data: empty candles draw the background, the grid and a
// placeholder.
func Render(ctx canvas.Context, in Input) {
	g, s, layers := Plan(in)
	for _, l := range layers {
		ctx.Save()
		l.Draw(ctx, g, s, in.Theme)
		ctx.Restore()
	}
}

// RenderContext is Render with cancellation between layers. It returns
// ctx.Err() when the frame was abandoned; the surface then holds a partial
// frame that must not be shown.
func RenderContext(ctx context.Context, c canvas.Context, in Input) (Geometry, Scales, error) {
	g, s, layers := Plan(in)
	for _, l := range layers {
		if err := ctx.Err(); err != nil {
			return g, s, err
		}
		c.Save()
		l.Draw(c, g, s, in.Theme)
		c.Restore()
	}
	return g, s, nil
}

// Plan computes the geometry, the scales and the ordered layer list of a
// frame without drawing. The order is background, phase zones, grid, candles,
// moving average, historical match, forecast, volume, axes, crosshair.
func Plan(in Input) (Geometry, Scales, []Layer) {
	f := prepare(in)
	g := NewGeometry(in.Width, in.Height, in.Layout, in.Options.ShowVolume && f.hasVolume)
	s := newScales(g, f)

	if len(f.visible) == 0 {
		return g, s, []Layer{
			backgroundLayer{},
			gridLayer{},
			placeholderLayer{Text: NoDataText},
		}
	}

	layers := []Layer{backgroundLayer{}}
	if len(f.phases) > 0 {
		layers = append(layers, phaseLayer{Zones: f.phases})
	}
	layers = append(layers, gridLayer{}, candleLayer{Candles: f.visible})
	if f.ma != nil {
		layers = append(layers, maLayer{Values: f.ma, Label: f.maLabel})
	}
	if f.matchOn {
		layers = append(layers, matchLayer{Series: f.match})
	}
	if f.forecastOn {
		layers = append(layers, forecastLayer{Forecast: f.forecast, Overlay: f.overlay})
	}
	if g.Volume.H > 0 {
		layers = append(layers, volumeLayer{Candles: f.visible})
	}
	layers = append(layers, axesLayer{Last: f.visible[len(f.visible)-1]})
	if in.Cross.Active {
		layers = append(layers, crosshairLayer{Cross: in.Cross, Candles: f.visible})
	}
	return g, s, layers
}

// frameData is the snapshot-derived data shared by the scales and layers.
type frameData struct {
	visible []model.Candle
	start   int

	lastClose float64
	hasVolume bool

	ma      []float64
	maLabel string

	phases []model.PhaseZone

	forecastOn bool
	forecast   *model.ForecastOutput
	overlay    Overlay

	matchOn bool
	match   matchSeries

	yMode    scale.Mode
	now      int64
	horizon  int
	timeMode bool
}

// clampViewport repairs an out-of-range viewport. A zero viewport selects the
// whole series.
func clampViewport(v model.Viewport, total int) model.Viewport {
	if total <= 0 {
		return model.Viewport{}
	}
	if v.Start == 0 && v.End == 0 {
		return model.Viewport{Start: 0, End: total}
	}
	start := min(max(v.Start, 0), total-1)
	end := min(max(v.End, start+1), total)
	return model.Viewport{Start: start, End: end}
}

func prepare(in Input) *frameData {
	opts := in.Options
	f := &frameData{yMode: opts.YMode}
	total := len(in.Candles)
	vp := clampViewport(in.Viewport, total)
	f.visible = in.Candles[vp.Start:vp.End]
	f.start = vp.Start
	if total == 0 {
		return f
	}
	f.lastClose = in.Candles[total-1].C
	for i := range f.visible {
		if f.visible[i].HasVolume() {
			f.hasVolume = true
			break
		}
	}

	f.now = opts.Now
	if f.now <= 0 {
		f.now = in.Candles[total-1].T
	}

	if opts.MAPeriod > 0 {
		// run over the whole series so the visible start is already warmed up
		all := indicator.MovingAverage(in.Candles, opts.MAKind, opts.MAPeriod)
		f.ma = all[vp.Start:vp.End]
		kind := opts.MAKind
		if kind == "" {
			kind = indicator.KindSMA
		}
		f.maLabel = string(kind) + " " + strconv.Itoa(opts.MAPeriod)
	}

	f.phases = model.NormalizeZones(opts.Phases)

	if opts.Match != nil || opts.Distribution != nil {
		f.matchOn = true
		f.match = buildMatch(in.Candles, opts.Match, opts.Distribution)
	}

	f.horizon = opts.HorizonDays
	if opts.Forecast != nil {
		f.forecastOn = true
		f.forecast = opts.Forecast
		if f.horizon <= 0 {
			f.horizon = opts.Forecast.Horizon()
		}
		f.overlay = overlayFor(f.horizon, opts.OverlayMode, opts.Forecast)
	}
	if f.horizon <= 0 && f.matchOn {
		f.horizon = f.match.days()
	}
	// Forward overlays hang off the last bar. A viewport panned away from it
	// keeps the index layout and leaves them off screen.
	if vp.End < total {
		f.forecastOn, f.matchOn = false, false
	}
	f.timeMode = f.horizon > 0 && (f.forecastOn || f.matchOn)
	return f
}

// priceSeries lists every price the y scale has to fit.
func (f *frameData) priceSeries() [][]float64 {
	if len(f.visible) == 0 {
		return nil
	}
	hl := make([]float64, 0, 2*len(f.visible))
	for i := range f.visible {
		hl = append(hl, f.visible[i].H, f.visible[i].L)
	}
	out := [][]float64{hl}
	if f.ma != nil {
		out = append(out, f.ma)
	}
	if fc := f.forecast; f.forecastOn && fc != nil && len(fc.PricePath) > 0 {
		out = append(out, fc.PricePath, fc.UpperBand, fc.LowerBand)
		if fc.TailFloor > 0 {
			out = append(out, []float64{fc.TailFloor})
		}
	}
	if f.matchOn {
		out = append(out, f.match.series()...)
	}
	return out
}
