package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type rasterState struct {
	fill   color.Color
	stroke color.Color
	alpha  float64
}

// Raster draws into an in-memory RGBA image sized width·dpr × height·dpr.
// Paths go through the go-chart drawing rasterizer; text uses the 7x13 bitmap
// face, scaled by the nearest integer of dpr.
type Raster struct {
	img   *image.RGBA
	gc    *drawing.RasterGraphicContext
	dpr   float64
	w, h  float64
	face  font.Face
	st    rasterState
	stack []rasterState
}

// NewRaster allocates a raster surface of the given logical size.
func NewRaster(width, height int, dpr float64) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid size %dx%d", width, height)
	}
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	pw := int(math.Ceil(float64(width) * dpr))
	ph := int(math.Ceil(float64(height) * dpr))
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, fmt.Errorf("canvas: raster context: %w", err)
	}
	gc.Scale(dpr, dpr)
	gc.SetLineWidth(1)
	r := &Raster{
		img:  img,
		gc:   gc,
		dpr:  dpr,
		w:    float64(width),
		h:    float64(height),
		face: basicfont.Face7x13,
		st: rasterState{
			fill:   color.Black,
			stroke: color.Black,
			alpha:  1,
		},
	}
	return r, nil
}

// Image returns the backing image.
func (r *Raster) Image() *image.RGBA { return r.img }

// EncodePNG writes the surface as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.img)
}

func (r *Raster) Size() (float64, float64) { return r.w, r.h }

func (r *Raster) Save() {
	r.stack = append(r.stack, r.st)
	r.gc.Save()
}

func (r *Raster) Restore() {
	if len(r.stack) == 0 {
		return
	}
	r.st = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.gc.Restore()
}

func (r *Raster) Clear(c color.Color) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (r *Raster) SetFillColor(c color.Color) {
	r.st.fill = c
	r.gc.SetFillColor(WithAlpha(c, r.st.alpha))
}

func (r *Raster) SetStrokeColor(c color.Color) {
	r.st.stroke = c
	r.gc.SetStrokeColor(WithAlpha(c, r.st.alpha))
}

func (r *Raster) SetLineWidth(w float64) { r.gc.SetLineWidth(w) }

func (r *Raster) SetLineDash(dash []float64) {
	if len(dash) == 0 {
		r.gc.SetLineDash(nil, 0)
		return
	}
	r.gc.SetLineDash(append([]float64(nil), dash...), 0)
}

func (r *Raster) SetAlpha(a float64) {
	r.st.alpha = a
	r.gc.SetFillColor(WithAlpha(r.st.fill, a))
	r.gc.SetStrokeColor(WithAlpha(r.st.stroke, a))
}

func (r *Raster) BeginPath()          { r.gc.BeginPath() }
func (r *Raster) MoveTo(x, y float64) { r.gc.MoveTo(x, y) }
func (r *Raster) LineTo(x, y float64) { r.gc.LineTo(x, y) }
func (r *Raster) ClosePath()          { r.gc.Close() }
func (r *Raster) Stroke()             { r.gc.Stroke() }
func (r *Raster) Fill()               { r.gc.Fill() }

func (r *Raster) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.gc.CubicCurveTo(c1x, c1y, c2x, c2y, x, y)
}

func (r *Raster) rectPath(x, y, w, h float64) {
	r.gc.BeginPath()
	r.gc.MoveTo(x, y)
	r.gc.LineTo(x+w, y)
	r.gc.LineTo(x+w, y+h)
	r.gc.LineTo(x, y+h)
	r.gc.Close()
}

func (r *Raster) FillRect(x, y, w, h float64) {
	r.rectPath(x, y, w, h)
	r.gc.Fill()
}

func (r *Raster) StrokeRect(x, y, w, h float64) {
	r.rectPath(x, y, w, h)
	r.gc.Stroke()
}

// textScale is the integer magnification applied to the bitmap face.
func (r *Raster) textScale() int {
	k := int(math.Round(r.dpr))
	if k < 1 {
		k = 1
	}
	return k
}

func (r *Raster) MeasureText(text string) float64 {
	w := font.MeasureString(r.face, text).Ceil()
	return float64(w*r.textScale()) / r.dpr
}

func (r *Raster) FillText(text string, x, y float64, align Align) {
	if text == "" || !Finite(x, y) {
		return
	}
	switch align {
	case AlignCenter:
		x -= r.MeasureText(text) / 2
	case AlignRight:
		x -= r.MeasureText(text)
	}

	m := r.face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	tw := font.MeasureString(r.face, text).Ceil()
	src := image.NewUniform(WithAlpha(r.st.fill, r.st.alpha))

	// render unscaled into a scratch mask, then magnify onto the surface
	tmp := image.NewRGBA(image.Rect(0, 0, tw, ascent+descent))
	d := &font.Drawer{Dst: tmp, Src: src, Face: r.face, Dot: fixed.Point26_6{X: 0, Y: fixed.I(ascent)}}
	d.DrawString(text)

	k := r.textScale()
	dx := int(math.Round(x * r.dpr))
	dy := int(math.Round(y*r.dpr)) - (ascent+descent)*k/2
	dst := image.Rect(dx, dy, dx+tw*k, dy+(ascent+descent)*k)
	xdraw.NearestNeighbor.Scale(r.img, dst, tmp, tmp.Bounds(), xdraw.Over, nil)
}
