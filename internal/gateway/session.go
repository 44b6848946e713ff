package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"trading-chartv1/internal/frame"
	"trading-chartv1/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
	inBuffer   = 64
)

type outMsg struct {
	text []byte
	png  []byte // sent as a binary message after text when set
}

// Session is one client connection driving one chart.
//
// Goroutines: readPump decodes client messages, feed loads data, and both
// hand events to inputPump, the only caller of Scheduler.Submit. The
// scheduler renders on its own goroutine and writePump is the only writer
// on the connection.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	symbol string
	sched  *frame.Scheduler

	send chan outMsg
	in   chan frame.Event
}

func newSession(h *Hub, conn *websocket.Conn, symbol string, sched *frame.Scheduler) *Session {
	return &Session{
		hub:    h,
		conn:   conn,
		symbol: symbol,
		sched:  sched,
		send:   make(chan outMsg, sendBuffer),
		in:     make(chan frame.Event, inBuffer),
	}
}

// queue sends a text message, dropping it when the client is too slow.
func (s *Session) queue(m outMsg) bool {
	select {
	case s.send <- m:
		return true
	default:
		if s.hub.metrics != nil {
			s.hub.metrics.SendDrops.Inc()
		}
		return false
	}
}

// input hands ev to the producer goroutine.
func (s *Session) input(ctx context.Context, ev frame.Event) {
	select {
	case s.in <- ev:
	case <-ctx.Done():
	}
}

func (s *Session) inputPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.in:
			if _, ok := s.sched.Submit(ev); !ok {
				log.Printf("[gateway] event queue full, dropped %s", ev.Kind)
			}
		}
	}
}

// feed submits the initial scene, then reloads whenever the watcher fires.
func (s *Session) feed(ctx context.Context) {
	s.refresh(ctx, true)

	if s.hub.Watcher == nil {
		return
	}
	updates, err := s.hub.Watcher.Watch(ctx, s.symbol)
	if err != nil {
		log.Printf("[gateway] watch %s: %v", s.symbol, err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			s.refresh(ctx, false)
		}
	}
}

// refresh loads a snapshot and submits it as a scene. A failed initial load
// still submits an empty scene so the client gets a placeholder frame; a
// failed reload keeps the current scene.
func (s *Session) refresh(ctx context.Context, initial bool) {
	cfg := s.hub.cfg
	snap, err := s.hub.loader.Load(ctx, s.symbol, cfg.TF, cfg.CandleLimit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[gateway] load %s: %v", s.symbol, err)
		s.queue(outMsg{text: errorMsg("load failed: " + err.Error())})
		if !initial {
			return
		}
		snap = &model.Snapshot{Symbol: s.symbol}
	}
	sc := frame.SceneFromSnapshot(snap, cfg.Options, s.hub.metrics)
	s.input(ctx, frame.Event{Kind: frame.KindScene, Scene: &sc})
}

// emit runs on the render goroutine.
func (s *Session) emit(f frame.Frame) {
	h := s.hub
	h.Latency.Observe(f.Elapsed)
	if h.health != nil {
		h.health.SetLastFrameAt(time.Now())
		h.health.SetRenderLatency(h.Latency.Percentiles())
	}
	meta, err := json.Marshal(newFrameMeta(s.symbol, f))
	if err != nil {
		log.Printf("[gateway] marshal frame meta: %v", err)
		return
	}
	s.queue(outMsg{text: meta, png: f.Data})
}

func (s *Session) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[gateway] read error: %v", err)
			}
			return
		}

		var m InMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.queue(outMsg{text: errorMsg("invalid message: " + err.Error())})
			continue
		}
		if m.Type == "ping" {
			s.queue(outMsg{text: pongMsg(m.Ping)})
			continue
		}
		ev, err := m.Event()
		if err != nil {
			s.queue(outMsg{text: errorMsg(err.Error())})
			continue
		}
		s.input(ctx, ev)
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(time.Second))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case m := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, m.text); err != nil {
				return
			}
			if m.png != nil {
				if err := s.conn.WriteMessage(websocket.BinaryMessage, m.png); err != nil {
					return
				}
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
