// Package gateway hosts interactive chart sessions over WebSocket. A client
// sends pointer events as JSON; each session renders on its own goroutine
// and answers with a JSON frame header followed by the PNG as a binary
// message.
package gateway

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"trading-chartv1/internal/frame"
	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/render"
	"trading-chartv1/internal/source"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Watcher announces overlay changes for a symbol.
type Watcher interface {
	Watch(ctx context.Context, symbol string) (<-chan struct{}, error)
}

// Config configures the sessions of a Hub.
type Config struct {
	Symbol      string // default symbol when the client names none
	TF          int
	CandleLimit int
	Frame       frame.Config
	Options     render.Options
	Surface     frame.Surface
}

// Hub tracks live sessions and the shared data sources.
type Hub struct {
	cfg     Config
	ctx     context.Context
	loader  *source.Loader
	metrics *metrics.Metrics
	health  *metrics.HealthStatus

	// Watcher is optional; when set, sessions reload on overlay changes.
	Watcher Watcher
	// Latency tracks frame render durations across sessions.
	Latency *LatencyTracker

	mu       sync.RWMutex
	sessions map[*Session]bool
	wg       sync.WaitGroup
}

// NewHub creates a hub whose sessions live until ctx is cancelled. m and
// health may be nil.
func NewHub(ctx context.Context, cfg Config, loader *source.Loader, m *metrics.Metrics, health *metrics.HealthStatus) *Hub {
	if cfg.Surface == nil {
		cfg.Surface = frame.PNGSurface{DPR: 1}
	}
	return &Hub{
		cfg:      cfg,
		ctx:      ctx,
		loader:   loader,
		metrics:  m,
		health:   health,
		Latency:  NewLatencyTracker(4096),
		sessions: make(map[*Session]bool),
	}
}

// ServeWS upgrades the request and starts a session. Query parameters:
// symbol, w, h.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		symbol = h.cfg.Symbol
	}
	if _, _, err := source.SplitSymbol(symbol); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fc := h.cfg.Frame
	if v, err := strconv.Atoi(q.Get("w")); err == nil && v > 0 && v <= frame.MaxSurface {
		fc.Width = v
	}
	if v, err := strconv.Atoi(q.Get("h")); err == nil && v > 0 && v <= frame.MaxSurface {
		fc.Height = v
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	s := newSession(h, conn, symbol, frame.NewScheduler(fc, h.cfg.Surface, h.metrics))
	h.add(s)
	log.Printf("[gateway] session started: symbol=%s size=%dx%d", symbol, fc.Width, fc.Height)

	h.wg.Add(5)
	go func() { defer h.wg.Done(); s.writePump(ctx) }()
	go func() { defer h.wg.Done(); s.inputPump(ctx) }()
	go func() { defer h.wg.Done(); s.sched.Run(ctx, s.emit) }()
	go func() { defer h.wg.Done(); s.feed(ctx) }()
	go func() {
		defer h.wg.Done()
		defer h.remove(s)
		s.readPump(ctx, cancel)
	}()
}

// Sessions returns the number of live sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Wait blocks until every session goroutine has exited. Call it after
// cancelling the hub context.
func (h *Hub) Wait() {
	h.wg.Wait()
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s] = true
	n := len(h.sessions)
	h.mu.Unlock()
	h.sessionsChanged(n)
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	n := len(h.sessions)
	h.mu.Unlock()
	h.sessionsChanged(n)
	log.Printf("[gateway] session closed: symbol=%s", s.symbol)
}

func (h *Hub) sessionsChanged(n int) {
	if h.metrics != nil {
		h.metrics.SessionsActive.Set(float64(n))
	}
	if h.health != nil {
		h.health.SetSessions(n)
	}
}
