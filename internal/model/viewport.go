package model

// Viewport is the visible contiguous candle index range [Start, End).
type Viewport struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bars in the window.
func (v Viewport) Len() int { return v.End - v.Start }

// Valid reports whether v satisfies 0 ≤ Start < End ≤ total and
// the window length lies in [minWindow, maxWindow]. When total is smaller
// than minWindow the whole series is accepted.
func (v Viewport) Valid(total, minWindow, maxWindow int) bool {
	if v.Start < 0 || v.Start >= v.End || v.End > total {
		return false
	}
	n := v.Len()
	if total < minWindow {
		return n == total
	}
	return n >= minWindow && n <= maxWindow
}

// Crosshair is derived from the last pointer position. It is never persisted.
type Crosshair struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Index  int     `json:"index"`
	Active bool    `json:"active"`
}
