package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/interaction"
	"trading-chartv1/internal/logger"
	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/render"
)

const (
	DefaultQueueSize = 256
	DefaultWidth     = 960
	DefaultHeight    = 540

	// MaxSurface bounds either side of a frame in CSS pixels.
	MaxSurface = 4096
)

// Surface allocates the drawing context of one frame and encodes it once
// drawn.
type Surface interface {
	New(width, height int) (canvas.Context, error)
	Encode(c canvas.Context) ([]byte, error)
}

// PNGSurface rasterises frames and encodes them as PNG.
type PNGSurface struct {
	DPR float64
}

func (p PNGSurface) New(width, height int) (canvas.Context, error) {
	return canvas.NewRaster(width, height, p.DPR)
}

func (p PNGSurface) Encode(c canvas.Context) ([]byte, error) {
	r, ok := c.(*canvas.Raster)
	if !ok {
		return nil, fmt.Errorf("frame: png surface cannot encode %T", c)
	}
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("frame: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Config configures a Scheduler.
type Config struct {
	Width, Height int
	Layout        render.Layout
	Theme         render.Theme
	Interaction   interaction.Config
	QueueSize     int
}

// Frame is one drawn and encoded chart.
type Frame struct {
	Generation uint64
	Width      int
	Height     int
	Data       []byte
	Viewport   model.Viewport
	Crosshair  model.Crosshair
	Bars       int
	Elapsed    time.Duration
}

// Scheduler serialises events into redraws on a single goroutine.
type Scheduler struct {
	cfg     Config
	surface Surface
	metrics *metrics.Metrics

	ring      *Ring[Event]
	wake      chan struct{}
	requested atomic.Uint64

	// Owned by the Run goroutine.
	drawn  uint64
	dirty  bool
	ctl    *interaction.Controller
	scene  Scene
	width  int
	height int
}

// NewScheduler returns an idle scheduler; m may be nil.
func NewScheduler(cfg Config, surface Surface, m *metrics.Metrics) *Scheduler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if !ValidSize(cfg.Width, cfg.Height) {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	return &Scheduler{
		cfg:     cfg,
		surface: surface,
		metrics: m,
		ring:    NewRing[Event](cfg.QueueSize),
		wake:    make(chan struct{}, 1),
		dirty:   true,
		ctl:     interaction.NewController(cfg.Interaction, 0, interaction.Rect{}),
		width:   cfg.Width,
		height:  cfg.Height,
	}
}

// Submit queues ev and returns the generation it requested. It returns false
// when the queue is full and ev was dropped. Submit is the single producer:
// call it from one goroutine only.
func (s *Scheduler) Submit(ev Event) (uint64, bool) {
	if !s.ring.Push(ev) {
		if s.metrics != nil {
			s.metrics.EventOverflow.Inc()
		}
		return 0, false
	}
	gen := s.requested.Add(1)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return gen, true
}

// ValidSize reports whether a frame of w x h can be allocated.
func ValidSize(w, h int) bool {
	return w > 0 && h > 0 && w <= MaxSurface && h <= MaxSurface
}

// Generation returns the newest requested generation.
func (s *Scheduler) Generation() uint64 {
	return s.requested.Load()
}

// Run draws frames until ctx is cancelled, handing each one to emit. emit
// runs on the render goroutine and must not block for long. Run returns
// ctx.Err().
func (s *Scheduler) Run(ctx context.Context, emit func(Frame)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}

		if err := s.step(ctx, emit); err != nil {
			return err
		}
	}
}

// step applies the queued events and draws once if anything changed. The
// generation is read before draining: every event it counts has been pushed
// and is applied by this drain, while a later event wakes Run again.
func (s *Scheduler) step(ctx context.Context, emit func(Frame)) error {
	gen := s.requested.Load()
	s.drain()
	if gen == s.drawn && !s.dirty {
		return nil
	}
	if skipped := int64(gen) - int64(s.drawn) - 1; skipped > 0 && s.metrics != nil {
		s.metrics.SupersededFrames.Add(float64(skipped))
	}
	s.drawn = gen
	if !s.dirty {
		return nil
	}

	fctx := logger.WithGeneration(ctx, gen)
	f, err := s.draw(fctx, gen)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if s.metrics != nil {
				s.metrics.CancelledFrames.Inc()
			}
			return ctx.Err()
		}
		slog.Error("[frame] draw failed", append(logger.LogAttrs(fctx), slog.String("error", err.Error()))...)
		return nil
	}
	s.dirty = false
	emit(f)
	return nil
}

// drain applies every queued event.
func (s *Scheduler) drain() {
	for {
		ev, ok := s.ring.Pop()
		if !ok {
			return
		}
		switch ev.Kind {
		case KindRedraw:
			s.dirty = true
		case KindResize:
			if !ValidSize(ev.Width, ev.Height) {
				slog.Warn("[frame] resize out of range", slog.Int("width", ev.Width), slog.Int("height", ev.Height))
				continue
			}
			if ev.Width != s.width || ev.Height != s.height {
				s.width, s.height = ev.Width, ev.Height
				s.dirty = true
			}
		case KindScene:
			if ev.Scene != nil {
				s.scene = *ev.Scene
				s.ctl.SetTotal(len(s.scene.Candles))
				s.dirty = true
			}
		default:
			if apply(s.ctl, ev) {
				s.dirty = true
			}
		}
	}
}

// draw renders the current state. The controller's plot rectangle is then
// aligned with the bars as drawn, so the next pointer events map onto what
// the user sees.
func (s *Scheduler) draw(ctx context.Context, gen uint64) (Frame, error) {
	start := time.Now()
	c, err := s.surface.New(s.width, s.height)
	if err != nil {
		return Frame{}, err
	}
	in := render.Input{
		Candles:  s.scene.Candles,
		Viewport: s.ctl.Viewport(),
		Cross:    s.ctl.Crosshair(),
		Width:    float64(s.width),
		Height:   float64(s.height),
		Options:  s.scene.Options,
		Layout:   s.cfg.Layout,
		Theme:    s.cfg.Theme,
	}
	g, sc, err := render.RenderContext(ctx, c, in)
	if err != nil {
		return Frame{}, err
	}
	rendered := time.Now()

	first, last := sc.BarSpan()
	s.ctl.SetPlot(interaction.Rect{Left: first, Top: g.Plot.Y, Width: last - first, Height: g.Plot.H})

	data, err := s.surface.Encode(c)
	if err != nil {
		return Frame{}, err
	}

	if s.metrics != nil {
		s.metrics.FramesTotal.Inc()
		s.metrics.RenderDur.Observe(rendered.Sub(start).Seconds())
		s.metrics.EncodeDur.Observe(time.Since(rendered).Seconds())
		s.metrics.FrameBytes.Observe(float64(len(data)))
		if len(in.Candles) == 0 {
			s.metrics.EmptyFrames.Inc()
		}
	}
	return Frame{
		Generation: gen,
		Width:      s.width,
		Height:     s.height,
		Data:       data,
		Viewport:   in.Viewport,
		Crosshair:  in.Cross,
		Bars:       len(sc.Times),
		Elapsed:    time.Since(start),
	}, nil
}
