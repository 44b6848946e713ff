package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"trading-chartv1/internal/frame"
	"trading-chartv1/internal/interaction"
	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/render"
	"trading-chartv1/internal/source"
)

type fakeCandles struct {
	mu sync.Mutex
	n  int
}

func (f *fakeCandles) setBars(n int) {
	f.mu.Lock()
	f.n = n
	f.mu.Unlock()
}

func (f *fakeCandles) ReadCandles(ctx context.Context, symbol string, tf int, afterMs int64, limit int) ([]model.Candle, error) {
	f.mu.Lock()
	n := f.n
	f.mu.Unlock()
	if n == 0 {
		return nil, source.ErrNotFound
	}
	out := make([]model.Candle, n)
	for i := range out {
		p := 100 + float64(i%40)
		out[i] = model.Candle{T: int64(i+1) * 86_400_000, O: p, H: p + 2, L: p - 2, C: p + 1}
	}
	return out, nil
}

func (f *fakeCandles) Close() error { return nil }

type fakeWatcher struct {
	ch chan struct{}
}

func (w *fakeWatcher) Watch(ctx context.Context, symbol string) (<-chan struct{}, error) {
	return w.ch, nil
}

type testEnv struct {
	hub     *Hub
	srv     *httptest.Server
	candles *fakeCandles
	cancel  context.CancelFunc
}

func newTestEnv(t *testing.T, bars int, w Watcher) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	candles := &fakeCandles{n: bars}
	m := metrics.New(prometheus.NewRegistry())
	health := metrics.NewHealthStatus()
	cfg := Config{
		Symbol:      "NSE:1",
		TF:          86400,
		CandleLimit: 1000,
		Frame: frame.Config{
			Width:       320,
			Height:      200,
			Layout:      render.DefaultLayout(),
			Theme:       render.DefaultTheme(),
			Interaction: interaction.DefaultConfig(),
		},
		Options: render.Options{MAPeriod: 20, ShowVolume: true},
	}
	hub := NewHub(ctx, cfg, &source.Loader{Candles: candles, Metrics: m}, m, health)
	hub.Watcher = w
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	env := &testEnv{hub: hub, srv: srv, candles: candles, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		srv.Close()
		hub.Wait()
	})
	return env
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readText returns the next text message of the given type, skipping
// binary messages and other types.
func readText(t *testing.T, conn *websocket.Conn, typ string) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad json %q: %v", data, err)
		}
		var got string
		json.Unmarshal(m["type"], &got)
		if got == typ {
			return m
		}
	}
}

// readFrame returns the next frame header and its PNG.
func readFrame(t *testing.T, conn *websocket.Conn) (FrameMeta, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		var meta FrameMeta
		if json.Unmarshal(data, &meta) != nil || meta.Type != "frame" {
			continue
		}
		mt, png, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read png: %v", err)
		}
		if mt != websocket.BinaryMessage {
			t.Fatalf("expected binary message after frame header, got type %d", mt)
		}
		return meta, png
	}
}

func send(t *testing.T, conn *websocket.Conn, m InMsg) {
	t.Helper()
	if err := conn.WriteJSON(m); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSession_InitialFrame(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	conn := env.dial(t, "")

	meta, png := readFrame(t, conn)
	if meta.Symbol != "NSE:1" || meta.Width != 320 || meta.Height != 200 {
		t.Errorf("unexpected header: %+v", meta)
	}
	if meta.Viewport != (model.Viewport{Start: 80, End: 300}) {
		t.Errorf("viewport: got %+v, want {80 300}", meta.Viewport)
	}
	if meta.Bytes != len(png) || !strings.HasPrefix(string(png), "\x89PNG") {
		t.Errorf("expected PNG of %d bytes, got %d bytes", meta.Bytes, len(png))
	}
	if env.hub.Latency.Count() == 0 {
		t.Error("render latency not recorded")
	}
}

func TestSession_WheelZoomsIn(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	conn := env.dial(t, "?w=400&h=240")

	first, _ := readFrame(t, conn)
	if first.Width != 400 || first.Height != 240 {
		t.Fatalf("size from query not applied: %dx%d", first.Width, first.Height)
	}

	send(t, conn, InMsg{Type: "wheel", X: 200, Y: 120, DeltaY: -100})
	next, _ := readFrame(t, conn)
	if next.Generation <= first.Generation {
		t.Errorf("generation did not advance: %d -> %d", first.Generation, next.Generation)
	}
	if next.Viewport.Len() >= first.Viewport.Len() {
		t.Errorf("wheel should zoom in: %d -> %d bars", first.Viewport.Len(), next.Viewport.Len())
	}

	send(t, conn, InMsg{Type: "double_click"})
	reset, _ := readFrame(t, conn)
	if reset.Viewport != first.Viewport {
		t.Errorf("double click: got %+v, want %+v", reset.Viewport, first.Viewport)
	}
}

func TestSession_PingAndErrors(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	conn := env.dial(t, "")
	readFrame(t, conn)

	send(t, conn, InMsg{Type: "ping", Ping: 7})
	pong := readText(t, conn, "pong")
	if string(pong["ping"]) != "7" {
		t.Errorf("pong echoed %s", pong["ping"])
	}

	send(t, conn, InMsg{Type: "scene"})
	if e := readText(t, conn, "error"); !strings.Contains(string(e["error"]), "scene") {
		t.Errorf("unexpected error message: %s", e["error"])
	}

	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	readText(t, conn, "error")
}

func TestSession_RejectsOversizedResize(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	conn := env.dial(t, "")
	readFrame(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resize","width":200000,"height":200000}`))
	if e := readText(t, conn, "error"); !strings.Contains(string(e["error"]), "out of range") {
		t.Errorf("unexpected error message: %s", e["error"])
	}

	send(t, conn, InMsg{Type: "resize", Width: 300, Height: 180})
	meta, _ := readFrame(t, conn)
	if meta.Width != 300 || meta.Height != 180 {
		t.Errorf("expected 300x180 after valid resize, got %dx%d", meta.Width, meta.Height)
	}
}

func TestSession_EmptySourceDrawsPlaceholder(t *testing.T) {
	env := newTestEnv(t, 0, nil)
	conn := env.dial(t, "")

	readText(t, conn, "error")
	meta, png := readFrame(t, conn)
	if meta.Bars != 0 || meta.Viewport.Len() != 0 {
		t.Errorf("expected empty frame, got %+v", meta)
	}
	if len(png) == 0 {
		t.Error("placeholder frame should still carry a PNG")
	}
}

func TestSession_WatchReloads(t *testing.T) {
	w := &fakeWatcher{ch: make(chan struct{}, 1)}
	env := newTestEnv(t, 300, w)
	conn := env.dial(t, "")

	first, _ := readFrame(t, conn)
	env.candles.setBars(310)
	w.ch <- struct{}{}

	next, _ := readFrame(t, conn)
	if next.Viewport != (model.Viewport{Start: 90, End: 310}) {
		t.Errorf("viewport should follow new bars: %+v -> %+v", first.Viewport, next.Viewport)
	}
}

func TestHub_SessionsCount(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	conn := env.dial(t, "")
	readFrame(t, conn)

	if n := env.hub.Sessions(); n != 1 {
		t.Fatalf("expected 1 session, got %d", n)
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for env.hub.Sessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not removed, %d live", env.hub.Sessions())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_WaitCoversSessionRemoval(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	conn := env.dial(t, "")
	readFrame(t, conn)

	env.cancel()
	env.hub.Wait()
	if n := env.hub.Sessions(); n != 0 {
		t.Errorf("expected no sessions after Wait, got %d", n)
	}
}

func TestHub_RejectsBadSymbol(t *testing.T) {
	env := newTestEnv(t, 300, nil)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws?symbol=nocolon"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("expected 400, got %+v", resp)
	}
}

func TestInMsg_Event(t *testing.T) {
	ev, err := InMsg{Type: "drag_move", X: 12}.Event()
	if err != nil || ev.Kind != frame.KindDragMove || ev.X != 12 {
		t.Errorf("got %+v %v", ev, err)
	}
	for _, bad := range []string{"", "scene", "zoom"} {
		if _, err := (InMsg{Type: bad}).Event(); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
	for _, m := range []InMsg{
		{Type: "resize", Width: frame.MaxSurface + 1, Height: 100},
		{Type: "resize", Width: 100, Height: 0},
	} {
		if _, err := m.Event(); err == nil {
			t.Errorf("%dx%d: expected error", m.Width, m.Height)
		}
	}
	if ev, err := (InMsg{Type: "resize", Width: 640, Height: 360}).Event(); err != nil || ev.Width != 640 {
		t.Errorf("valid resize: got %+v %v", ev, err)
	}
}
