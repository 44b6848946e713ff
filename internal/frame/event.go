// Package frame runs the chart core in a concurrent host.
//
// Interaction events and data updates travel through a single-producer
// single-consumer ring to one render goroutine that owns the interaction
// controller. Every accepted event bumps a generation counter; the render
// goroutine drains all queued events and draws only the newest generation,
// so bursts of pointer events collapse into one frame.
package frame

import (
	"trading-chartv1/internal/interaction"
)

// Kind identifies an event.
type Kind uint8

const (
	KindRedraw Kind = iota + 1
	KindWheel
	KindDragStart
	KindDragMove
	KindDragEnd
	KindMove
	KindLeave
	KindDoubleClick
	KindResize
	KindScene
)

var kindNames = map[Kind]string{
	KindRedraw:      "redraw",
	KindWheel:       "wheel",
	KindDragStart:   "drag_start",
	KindDragMove:    "drag_move",
	KindDragEnd:     "drag_end",
	KindMove:        "move",
	KindLeave:       "leave",
	KindDoubleClick: "double_click",
	KindResize:      "resize",
	KindScene:       "scene",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a wire name to a Kind. Returns 0 for unknown names.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return 0
}

// Event is one input to the render goroutine. Only the fields of its Kind
// are meaningful.
type Event struct {
	Kind Kind

	// Pointer position in CSS pixels (wheel, drag, move).
	X, Y float64
	// Wheel delta; negative zooms in.
	DeltaY float64

	// Surface size (resize).
	Width, Height int

	// Replacement data (scene).
	Scene *Scene
}

// apply feeds a pointer event to the controller and reports whether the
// frame changed.
func apply(ctl *interaction.Controller, ev Event) bool {
	switch ev.Kind {
	case KindWheel:
		return ctl.Wheel(ev.X, ev.DeltaY)
	case KindDragStart:
		ctl.DragStart(ev.X)
		return false
	case KindDragMove:
		return ctl.DragMove(ev.X)
	case KindDragEnd:
		ctl.DragEnd()
		return false
	case KindMove:
		return ctl.Move(ev.X, ev.Y)
	case KindLeave:
		return ctl.Leave()
	case KindDoubleClick:
		return ctl.DoubleClick()
	}
	return false
}
