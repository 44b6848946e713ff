package interaction

import (
	"math"

	"trading-chartv1/internal/model"
	"trading-chartv1/internal/scale"
)

// ZoomInFactor is applied per wheel notch towards the chart; its inverse
// zooms out.
const ZoomInFactor = 0.85

// Config bounds the viewport.
type Config struct {
	MinWindow     int `yaml:"min_window"`
	MaxWindow     int `yaml:"max_window"`
	DefaultWindow int `yaml:"default_window"`
}

// DefaultConfig returns the standard 60–520 bar bounds.
func DefaultConfig() Config {
	return Config{
		MinWindow:     DefaultMinWindow,
		MaxWindow:     DefaultMaxWindow,
		DefaultWindow: DefaultWindow,
	}
}

// Rect is the plot area in CSS pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) contains(x, y float64) bool {
	return x >= r.Left && x <= r.Left+r.Width && y >= r.Top && y <= r.Top+r.Height
}

// Controller is the single owner of Viewport and Crosshair. Every event
// method returns true when the chart needs a redraw. A Controller is not
// safe for concurrent use; hosts drive it from one goroutine.
type Controller struct {
	cfg   Config
	total int
	plot  Rect

	view  model.Viewport
	cross model.Crosshair

	dragging  bool
	dragX     float64
	dragStart model.Viewport
}

// NewController starts with the trailing default window over total bars.
func NewController(cfg Config, total int, plot Rect) *Controller {
	c := &Controller{cfg: cfg, total: total, plot: plot}
	c.view = Reset(total, cfg.DefaultWindow)
	c.view = Clamp(c.view, total, cfg.MinWindow, cfg.MaxWindow)
	return c
}

// Viewport returns the current viewport by value.
func (c *Controller) Viewport() model.Viewport { return c.view }

// Crosshair returns the current crosshair by value.
func (c *Controller) Crosshair() model.Crosshair { return c.cross }

// SetPlot updates the plot rectangle after a resize.
func (c *Controller) SetPlot(plot Rect) { c.plot = plot }

// SetTotal adopts a new series length. A viewport that was pinned to the
// right edge follows new bars; otherwise it is clamped in place.
func (c *Controller) SetTotal(total int) bool {
	if total == c.total {
		return false
	}
	following := c.view.End == c.total
	c.total = total
	switch {
	case c.view.Len() == 0:
		c.view = Reset(total, c.cfg.DefaultWindow)
	case following && total > 0:
		n := c.view.Len()
		c.view = model.Viewport{Start: total - n, End: total}
	}
	c.view = Clamp(c.view, total, c.cfg.MinWindow, c.cfg.MaxWindow)
	c.dragging = false
	return true
}

func (c *Controller) index() scale.Index {
	return scale.NewIndex(c.plot.Left, c.plot.Width, c.view.Len())
}

// pxPerBar returns the horizontal distance between adjacent bars.
func (c *Controller) pxPerBar() float64 {
	return c.index().Step
}

// Wheel zooms around the bar under x. deltaY < 0 zooms in.
func (c *Controller) Wheel(x, deltaY float64) bool {
	if c.total <= 0 || deltaY == 0 || math.IsNaN(deltaY) {
		return false
	}
	factor := ZoomInFactor
	if deltaY > 0 {
		factor = 1 / ZoomInFactor
	}
	anchor := c.view.Start + c.index().IndexAt(x)
	next := Zoom(c.view, c.total, anchor, factor, c.cfg.MinWindow, c.cfg.MaxWindow)
	if next == c.view {
		return false
	}
	c.view = next
	return true
}

// DragStart begins a pan gesture at x.
func (c *Controller) DragStart(x float64) {
	c.dragging = true
	c.dragX = x
	c.dragStart = c.view
}

// DragMove pans by the pixel distance from the drag origin converted to
// bars. Dragging right reveals earlier bars.
func (c *Controller) DragMove(x float64) bool {
	if !c.dragging {
		return false
	}
	ppb := c.pxPerBar()
	if ppb <= scale.Epsilon {
		return false
	}
	delta := -int(math.Round((x - c.dragX) / ppb))
	next := Pan(c.dragStart, c.total, delta)
	if next == c.view {
		return false
	}
	c.view = next
	return true
}

// DragEnd finishes a pan gesture.
func (c *Controller) DragEnd() { c.dragging = false }

// Move derives the crosshair from the pointer, snapping x to the nearest bar.
func (c *Controller) Move(x, y float64) bool {
	prev := c.cross
	if c.total <= 0 || !c.plot.contains(x, y) {
		c.cross = model.Crosshair{X: x, Y: y, Index: -1}
		return prev.Active
	}
	idx := c.index()
	i := idx.IndexAt(x)
	c.cross = model.Crosshair{
		X:      idx.X(float64(i)),
		Y:      y,
		Index:  c.view.Start + i,
		Active: true,
	}
	return c.cross != prev
}

// Leave hides the crosshair and cancels any drag.
func (c *Controller) Leave() bool {
	c.dragging = false
	if !c.cross.Active {
		return false
	}
	c.cross = model.Crosshair{Index: -1}
	return true
}

// DoubleClick restores the trailing default window.
func (c *Controller) DoubleClick() bool {
	next := Clamp(Reset(c.total, c.cfg.DefaultWindow), c.total, c.cfg.MinWindow, c.cfg.MaxWindow)
	if next == c.view {
		return false
	}
	c.view = next
	return true
}
