// Package canvas defines the immediate-mode 2D drawing surface the chart
// layers paint on, with a raster backend and a command-recording backend.
//
// Coordinates are logical pixels; backends apply the device pixel ratio.
// Paths follow HTML canvas semantics: BeginPath starts a new path which
// persists across Stroke/Fill until the next BeginPath. The rectangle helpers
// reset the current path.
package canvas

import (
	"image/color"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Align is the horizontal anchor of drawn text.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Context is a 2D drawing surface.
type Context interface {
	// Size returns the logical width and height.
	Size() (w, h float64)

	// Save pushes the drawing state (colors, line width, dash, alpha).
	Save()
	// Restore pops the state pushed by the matching Save.
	Restore()

	// Clear paints the whole surface with c, ignoring alpha and state.
	Clear(c color.Color)

	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)
	// SetLineDash sets the dash pattern; nil or empty draws solid lines.
	SetLineDash(dash []float64)
	// SetAlpha multiplies the alpha of subsequent fills, strokes and text.
	SetAlpha(a float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CurveTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()
	Stroke()
	Fill()

	FillRect(x, y, w, h float64)
	StrokeRect(x, y, w, h float64)

	// FillText draws text vertically centred on y with the fill color.
	FillText(text string, x, y float64, align Align)
	// MeasureText returns the logical width of text.
	MeasureText(text string) float64
}

// Finite reports whether every value is a finite number. Layers use it to
// keep NaN and Inf out of drawing calls.
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ParseColor parses "#rrggbb" (leading '#' optional). ok is false for
// malformed input, in which case the zero color is returned.
func ParseColor(s string) (drawing.Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return drawing.Color{}, false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return drawing.Color{}, false
		}
	}
	return drawing.ColorFromHex(s), true
}

// WithAlpha returns c with its alpha multiplied by a ∈ [0,1].
func WithAlpha(c color.Color, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	n.A = uint8(math.Round(float64(n.A) * a))
	return n
}
