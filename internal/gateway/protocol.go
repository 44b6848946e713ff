package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"trading-chartv1/internal/frame"
	"trading-chartv1/internal/model"
)

// InMsg is a client message. Type is an event name ("wheel", "drag_start",
// "drag_move", "drag_end", "move", "leave", "double_click", "resize",
// "redraw") or "ping".
type InMsg struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Ping   int64   `json:"ping"`
}

// Event converts m to a scheduler event. Scene events cannot come from a
// client, and a resize must fit frame.MaxSurface.
func (m InMsg) Event() (frame.Event, error) {
	k := frame.ParseKind(m.Type)
	if k == 0 || k == frame.KindScene {
		return frame.Event{}, fmt.Errorf("unknown event type %q", m.Type)
	}
	if k == frame.KindResize && !frame.ValidSize(m.Width, m.Height) {
		return frame.Event{}, fmt.Errorf("resize %dx%d out of range (max %d)", m.Width, m.Height, frame.MaxSurface)
	}
	return frame.Event{Kind: k, X: m.X, Y: m.Y, DeltaY: m.DeltaY, Width: m.Width, Height: m.Height}, nil
}

// FrameMeta precedes every binary PNG message.
type FrameMeta struct {
	Type       string          `json:"type"` // "frame"
	Symbol     string          `json:"symbol"`
	Generation uint64          `json:"gen"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Viewport   model.Viewport  `json:"viewport"`
	Crosshair  model.Crosshair `json:"crosshair"`
	Bars       int             `json:"bars"`
	Bytes      int             `json:"bytes"`
	RenderMs   float64         `json:"render_ms"`
}

func newFrameMeta(symbol string, f frame.Frame) FrameMeta {
	return FrameMeta{
		Type:       "frame",
		Symbol:     symbol,
		Generation: f.Generation,
		Width:      f.Width,
		Height:     f.Height,
		Viewport:   f.Viewport,
		Crosshair:  f.Crosshair,
		Bars:       f.Bars,
		Bytes:      len(f.Data),
		RenderMs:   float64(f.Elapsed.Microseconds()) / 1000.0,
	}
}

func pongMsg(ping int64) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"type":      "pong",
		"ping":      ping,
		"server_ts": time.Now().UnixMilli(),
	})
	return b
}

func errorMsg(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"type": "error", "error": msg})
	return b
}
