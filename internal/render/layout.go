package render

import "math"

// Layout holds paddings, pane ratios and label spacing in CSS pixels.
type Layout struct {
	PadLeft        float64 `yaml:"pad_left"`
	PadTop         float64 `yaml:"pad_top"`
	PriceAxisWidth float64 `yaml:"price_axis_width"`
	TimeAxisHeight float64 `yaml:"time_axis_height"`

	// BarInset keeps the first and last candle bodies inside the plot.
	BarInset float64 `yaml:"bar_inset"`

	VolumeRatio float64 `yaml:"volume_ratio"`
	VolumeGap   float64 `yaml:"volume_gap"`

	// BodyRatio is the candle body width as a share of bar spacing.
	BodyRatio float64 `yaml:"body_ratio"`

	PriceTicks  int     `yaml:"price_ticks"`
	MinLabelPx  float64 `yaml:"min_label_px"`
	NowLabelGap float64 `yaml:"now_label_gap"`
	LabelHeight float64 `yaml:"label_height"`

	SplineTension float64 `yaml:"spline_tension"`

	// DPR is the device pixel ratio raster backends are created with.
	DPR float64 `yaml:"dpr"`
}

// DefaultLayout returns the standard chart layout.
func DefaultLayout() Layout {
	return Layout{
		PadLeft:        8,
		PadTop:         8,
		PriceAxisWidth: 72,
		TimeAxisHeight: 24,
		BarInset:       6,
		VolumeRatio:    0.18,
		VolumeGap:      6,
		BodyRatio:      0.7,
		PriceTicks:     6,
		MinLabelPx:     75,
		NowLabelGap:    40,
		LabelHeight:    16,
		SplineTension:  0.5,
		DPR:            1,
	}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Geometry is the pixel layout of one frame.
type Geometry struct {
	Width, Height float64

	// Chart spans the price and volume panes.
	Chart Rect
	// Plot is the price pane.
	Plot Rect
	// Volume is the volume pane; zero height when volume is hidden.
	Volume Rect
	// Series is the horizontal extent candles are spread over.
	Series Rect

	PriceAxis Rect
	TimeAxis  Rect

	Layout Layout
}

// NewGeometry lays out a width×height frame.
func NewGeometry(width, height float64, l Layout, showVolume bool) Geometry {
	chart := Rect{
		X: l.PadLeft,
		Y: l.PadTop,
		W: math.Max(0, width-l.PadLeft-l.PriceAxisWidth),
		H: math.Max(0, height-l.PadTop-l.TimeAxisHeight),
	}
	plot := chart
	var vol Rect
	if showVolume && l.VolumeRatio > 0 {
		vh := chart.H * math.Min(l.VolumeRatio, 0.5)
		plot.H = math.Max(0, chart.H-vh-l.VolumeGap)
		vol = Rect{X: chart.X, Y: chart.Bottom() - vh, W: chart.W, H: vh}
	}
	inset := math.Min(math.Max(l.BarInset, 0), chart.W/4)
	return Geometry{
		Width:     width,
		Height:    height,
		Chart:     chart,
		Plot:      plot,
		Volume:    vol,
		Series:    Rect{X: chart.X + inset, Y: chart.Y, W: chart.W - 2*inset, H: chart.H},
		PriceAxis: Rect{X: chart.Right(), Y: chart.Y, W: l.PriceAxisWidth, H: chart.H},
		TimeAxis:  Rect{X: chart.X, Y: chart.Bottom(), W: chart.W, H: l.TimeAxisHeight},
		Layout:    l,
	}
}
