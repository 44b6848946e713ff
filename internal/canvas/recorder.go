package canvas

import (
	"image/color"
	"strings"
)

// Command is one recorded drawing call.
type Command struct {
	Op    string
	Args  []float64
	Text  string
	Color color.NRGBA
	Alpha float64
	Dash  bool
}

// Recorder is a Context that records every call as a command list instead of
// rasterising. It is the retained-mode form of a frame and the test double
// for layer renderers. Text width is approximated at 7px per rune.
type Recorder struct {
	w, h     float64
	Commands []Command

	fill   color.NRGBA
	stroke color.NRGBA
	alpha  float64
	dash   bool
	depth  int
	stack  []recState
}

type recState struct {
	fill, stroke color.NRGBA
	alpha        float64
	dash         bool
}

// NewRecorder returns an empty recorder of the given logical size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{w: width, h: height, alpha: 1}
}

func (r *Recorder) add(op string, args ...float64) {
	r.Commands = append(r.Commands, Command{Op: op, Args: args, Alpha: r.alpha, Dash: r.dash})
}

func (r *Recorder) Size() (float64, float64) { return r.w, r.h }

func (r *Recorder) Save() {
	r.stack = append(r.stack, recState{r.fill, r.stroke, r.alpha, r.dash})
	r.depth++
	r.add("save")
}

func (r *Recorder) Restore() {
	if len(r.stack) > 0 {
		s := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		r.fill, r.stroke, r.alpha, r.dash = s.fill, s.stroke, s.alpha, s.dash
	}
	r.depth--
	r.add("restore")
}

func (r *Recorder) Clear(c color.Color) {
	r.Commands = append(r.Commands, Command{Op: "clear", Color: WithAlpha(c, 1), Alpha: 1})
}

func (r *Recorder) SetFillColor(c color.Color)   { r.fill = WithAlpha(c, 1) }
func (r *Recorder) SetStrokeColor(c color.Color) { r.stroke = WithAlpha(c, 1) }
func (r *Recorder) SetLineWidth(w float64)       { r.add("lineWidth", w) }
func (r *Recorder) SetLineDash(dash []float64)   { r.dash = len(dash) > 0 }
func (r *Recorder) SetAlpha(a float64)           { r.alpha = a }
func (r *Recorder) BeginPath()                   { r.add("beginPath") }
func (r *Recorder) MoveTo(x, y float64)          { r.add("moveTo", x, y) }
func (r *Recorder) LineTo(x, y float64)          { r.add("lineTo", x, y) }
func (r *Recorder) ClosePath()                   { r.add("closePath") }

func (r *Recorder) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.add("curveTo", c1x, c1y, c2x, c2y, x, y)
}

func (r *Recorder) Stroke() {
	r.Commands = append(r.Commands, Command{Op: "stroke", Color: r.stroke, Alpha: r.alpha, Dash: r.dash})
}

func (r *Recorder) Fill() {
	r.Commands = append(r.Commands, Command{Op: "fill", Color: r.fill, Alpha: r.alpha, Dash: r.dash})
}

func (r *Recorder) FillRect(x, y, w, h float64) {
	r.Commands = append(r.Commands, Command{Op: "fillRect", Args: []float64{x, y, w, h}, Color: r.fill, Alpha: r.alpha})
}

func (r *Recorder) StrokeRect(x, y, w, h float64) {
	r.Commands = append(r.Commands, Command{Op: "strokeRect", Args: []float64{x, y, w, h}, Color: r.stroke, Alpha: r.alpha, Dash: r.dash})
}

func (r *Recorder) FillText(text string, x, y float64, align Align) {
	r.Commands = append(r.Commands, Command{Op: "fillText", Args: []float64{x, y, float64(align)}, Text: text, Color: r.fill, Alpha: r.alpha})
}

func (r *Recorder) MeasureText(text string) float64 {
	return float64(len([]rune(text)) * 7)
}

// Count returns how many commands have the given op.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Texts returns every drawn text in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, c := range r.Commands {
		if c.Op == "fillText" {
			out = append(out, c.Text)
		}
	}
	return out
}

// HasText reports whether any drawn text contains sub.
func (r *Recorder) HasText(sub string) bool {
	for _, t := range r.Texts() {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

// Balanced reports whether every Save was matched by a Restore.
func (r *Recorder) Balanced() bool { return r.depth == 0 && len(r.stack) == 0 }

// Finite reports whether every recorded coordinate is a finite number.
func (r *Recorder) Finite() bool {
	for _, c := range r.Commands {
		if !Finite(c.Args...) {
			return false
		}
	}
	return true
}

// Reset drops all recorded commands and state.
func (r *Recorder) Reset() {
	*r = Recorder{w: r.w, h: r.h, alpha: 1}
}
