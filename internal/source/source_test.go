package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/model"
)

const day = int64(86_400_000)

func bars(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		p := 100 + float64(i)
		out[i] = model.Candle{T: int64(i+1) * day, O: p, H: p + 2, L: p - 1, C: p + 1, V: model.Vol(1000 + float64(i))}
	}
	return out
}

func TestSplitSymbol(t *testing.T) {
	ex, tok, err := SplitSymbol("NSE:99926000")
	if err != nil || ex != "NSE" || tok != "99926000" {
		t.Fatalf("got %q %q %v", ex, tok, err)
	}
	for _, bad := range []string{"", "NSE", ":1", "NSE:"} {
		if _, _, err := SplitSymbol(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

const snapshotJSON = `{
  "symbol": "NSE:1",
  "candles": [
    {"t": 3000, "o": 12, "h": 13, "l": 11, "c": 12.5},
    {"t": 1000, "o": 10, "h": 11, "l": 9, "c": 10.5, "v": 500},
    {"t": 2000, "o": 11, "h": 12, "l": 10, "c": 11.5}
  ],
  "phases": [{"from": 1000, "to": 2000, "phase": "markup"}],
  "forecast_input": {"r7": 0.02, "aftermath": [0.01, 0.02], "confidence": 0.6},
  "match": {"windowNormalized": [100, 101], "aftermathNormalized": [102], "similarity": 0.9}
}`

func TestDecodeSnapshot_SortsCandles(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(snapshotJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(snap.Candles))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if snap.Candles[i].T != want {
			t.Errorf("candle %d: T=%d, want %d", i, snap.Candles[i].T, want)
		}
	}
	if !snap.Candles[0].HasVolume() || snap.Candles[1].HasVolume() {
		t.Error("volume presence not preserved")
	}
	if snap.ForecastInput == nil || len(snap.ForecastInput.Aftermath) != 2 {
		t.Errorf("forecast input not decoded: %+v", snap.ForecastInput)
	}
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	if _, err := DecodeSnapshot(strings.NewReader(`{"candles": [`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	dup := `{"candles": [{"t": 1000, "o": 1, "h": 1, "l": 1, "c": 1}, {"t": 1000, "o": 1, "h": 1, "l": 1, "c": 1}]}`
	if _, err := DecodeSnapshot(strings.NewReader(dup)); err == nil {
		t.Error("expected error for duplicate timestamps")
	}
}

func TestFile_Readers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(path, []byte(snapshotJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	ctx := context.Background()

	all, err := f.ReadCandles(ctx, "NSE:1", 86400, 0, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all: %d %v", len(all), err)
	}
	tail, _ := f.ReadCandles(ctx, "NSE:1", 86400, 0, 2)
	if len(tail) != 2 || tail[0].T != 2000 {
		t.Errorf("limit should keep the most recent bars, got %+v", tail)
	}
	after, _ := f.ReadCandles(ctx, "NSE:1", 86400, 2000, 0)
	if len(after) != 1 || after[0].T != 3000 {
		t.Errorf("afterMs: got %+v", after)
	}
	if _, err := f.ReadCandles(ctx, "NSE:2", 86400, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	m, err := f.ReadMatch(ctx, "NSE:1")
	if err != nil || m.Empty() {
		t.Errorf("match: %+v %v", m, err)
	}
	if m, _ := f.ReadMatch(ctx, "NSE:2"); m != nil {
		t.Error("expected nil match for other symbol")
	}
	zones, _ := f.ReadPhases(ctx, "NSE:1")
	if len(zones) != 1 || zones[0].Phase != model.PhaseMarkup {
		t.Errorf("phases: %+v", zones)
	}
	if d, _ := f.ReadDistribution(ctx, "NSE:1"); d != nil {
		t.Errorf("expected no distribution, got %+v", d)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error")
	}
}

// ── Loader ──

type fakeCandles struct {
	candles []model.Candle
	err     error
}

func (f *fakeCandles) ReadCandles(ctx context.Context, symbol string, tf int, afterMs int64, limit int) ([]model.Candle, error) {
	return f.candles, f.err
}
func (f *fakeCandles) Close() error { return nil }

type fakeOverlays struct {
	match *model.Match
	err   error
}

func (f *fakeOverlays) ReadForecastInput(ctx context.Context, symbol string) (*model.ForecastRequest, error) {
	return nil, f.err
}
func (f *fakeOverlays) ReadForecastPayload(ctx context.Context, symbol string) (*model.ForecastPayload, error) {
	return nil, nil
}
func (f *fakeOverlays) ReadMatch(ctx context.Context, symbol string) (*model.Match, error) {
	return f.match, nil
}
func (f *fakeOverlays) ReadDistribution(ctx context.Context, symbol string) (*model.DistributionSeries, error) {
	return nil, f.err
}
func (f *fakeOverlays) ReadPhases(ctx context.Context, symbol string) ([]model.PhaseZone, error) {
	return nil, nil
}
func (f *fakeOverlays) Close() error { return nil }

func TestLoader_Load(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	l := &Loader{
		Candles:  &fakeCandles{candles: bars(5)},
		Overlays: &fakeOverlays{match: &model.Match{WindowNormalized: []float64{100}}},
		Metrics:  m,
	}
	snap, err := l.Load(context.Background(), "NSE:1", 86400, 100)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Symbol != "NSE:1" || len(snap.Candles) != 5 || snap.Match == nil {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestLoader_OverlayErrorsAreBestEffort(t *testing.T) {
	l := &Loader{
		Candles:  &fakeCandles{candles: bars(3)},
		Overlays: &fakeOverlays{match: &model.Match{WindowNormalized: []float64{100}}, err: ErrUnavailable},
	}
	snap, err := l.Load(context.Background(), "NSE:1", 86400, 0)
	if err != nil {
		t.Fatalf("overlay failure should not fail the load: %v", err)
	}
	if snap.Match == nil {
		t.Error("healthy overlays should still be read")
	}
}

func TestLoader_CandleErrors(t *testing.T) {
	l := &Loader{Candles: &fakeCandles{err: ErrNotFound}}
	if _, err := l.Load(context.Background(), "NSE:1", 86400, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	unordered := bars(3)
	unordered[0], unordered[2] = unordered[2], unordered[0]
	l = &Loader{Candles: &fakeCandles{candles: unordered}}
	if _, err := l.Load(context.Background(), "NSE:1", 86400, 0); err == nil {
		t.Error("expected error for unordered candles")
	}
}

func TestReadOverlays_JoinsErrors(t *testing.T) {
	var snap model.Snapshot
	err := ReadOverlays(context.Background(), &fakeOverlays{err: ErrUnavailable}, "NSE:1", &snap)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if n := strings.Count(err.Error(), ErrUnavailable.Error()); n != 2 {
		t.Errorf("expected 2 joined errors, got %d: %v", n, err)
	}
}

// ── SQL ──

func openTestSQL(t *testing.T) *SQLCandles {
	t.Helper()
	s, err := OpenSQL(DriverSQLite, filepath.Join(t.TempDir(), "candles.db"), 100)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func TestSQLCandles_RoundTrip(t *testing.T) {
	s := openTestSQL(t)
	ctx := context.Background()

	in := bars(10)
	in[3].V = nil
	in[4].C = 123.456
	if err := s.WriteCandles(ctx, "NSE:1", 86400, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := s.ReadCandles(ctx, "NSE:1", 86400, 0, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 10 {
		t.Fatalf("expected 10 bars, got %d", len(out))
	}
	if err := model.ValidateCandles(out); err != nil {
		t.Errorf("bars out of order: %v", err)
	}
	if out[0].T != in[0].T || out[9].T != in[9].T {
		t.Errorf("timestamps: first %d last %d", out[0].T, out[9].T)
	}
	if out[3].HasVolume() {
		t.Error("missing volume should stay missing")
	}
	if out[5].Volume() != in[5].Volume() {
		t.Errorf("volume: got %v, want %v", out[5].Volume(), in[5].Volume())
	}
	// Prices are stored at two decimals.
	if out[4].C != 123.46 {
		t.Errorf("close: got %v, want 123.46", out[4].C)
	}
}

func TestSQLCandles_LimitKeepsRecent(t *testing.T) {
	s := openTestSQL(t)
	ctx := context.Background()
	if err := s.WriteCandles(ctx, "NSE:1", 86400, bars(10)); err != nil {
		t.Fatal(err)
	}

	out, err := s.ReadCandles(ctx, "NSE:1", 86400, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0].T != 8*day || out[2].T != 10*day {
		t.Errorf("expected last 3 bars ascending, got %+v", out)
	}

	out, _ = s.ReadCandles(ctx, "NSE:1", 86400, 8*day, 0)
	if len(out) != 2 {
		t.Errorf("afterMs: expected 2 bars, got %d", len(out))
	}
}

func TestSQLCandles_Upsert(t *testing.T) {
	s := openTestSQL(t)
	ctx := context.Background()
	in := bars(2)
	s.WriteCandles(ctx, "NSE:1", 86400, in)

	in[1].C = 500
	if err := s.WriteCandles(ctx, "NSE:1", 86400, in[1:]); err != nil {
		t.Fatal(err)
	}
	out, _ := s.ReadCandles(ctx, "NSE:1", 86400, 0, 0)
	if len(out) != 2 || out[1].C != 500 {
		t.Errorf("upsert: got %+v", out)
	}
}

func TestSQLCandles_NotFound(t *testing.T) {
	s := openTestSQL(t)
	ctx := context.Background()
	s.WriteCandles(ctx, "NSE:1", 86400, bars(2))

	if _, err := s.ReadCandles(ctx, "NSE:2", 86400, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("other token: expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadCandles(ctx, "NSE:1", 60, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("other timeframe: expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadCandles(ctx, "bad", 60, 0, 0); err == nil {
		t.Error("expected error for malformed symbol")
	}
}

func TestSQLCandles_Rebind(t *testing.T) {
	pg := NewSQLCandles(nil, DriverPostgres, 0)
	got := pg.rebind("a = ? AND b = ? LIMIT ?")
	if got != "a = $1 AND b = $2 LIMIT $3" {
		t.Errorf("postgres rebind: %q", got)
	}
	lite := NewSQLCandles(nil, DriverSQLite, 0)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind: %q", got)
	}
	if pg.priceScale != 1 {
		t.Errorf("priceScale default: %v", pg.priceScale)
	}
}

func TestOpenSQL_UnsupportedDriver(t *testing.T) {
	if _, err := OpenSQL("mysql", "x", 1); err == nil {
		t.Error("expected error")
	}
}

// ── Redis ──

func TestRedisOverlays_Keys(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	r := NewRedisOverlaysClient(client, "")
	if got := r.Key(KindMatch, "NSE:1"); got != "chart:match:NSE:1" {
		t.Errorf("key: %q", got)
	}
	if got := r.UpdatesChannel("NSE:1"); got != "chart:updates:NSE:1" {
		t.Errorf("channel: %q", got)
	}
	r = NewRedisOverlaysClient(client, "algo")
	if got := r.Key(KindForecastInput, "NSE:1"); got != "algo:forecast_input:NSE:1" {
		t.Errorf("prefixed key: %q", got)
	}
}

// TestRedisOverlays_Live needs a Redis server: REDIS_TEST_ADDR=localhost:6379.
func TestRedisOverlays_Live(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	r, err := NewRedisOverlays(RedisConfig{Addr: addr, Prefix: "charttest"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	symbol := "TEST:" + time.Now().Format("150405.000000")
	defer r.Client().Del(context.Background(), r.Key(KindMatch, symbol))

	if m, err := r.ReadMatch(ctx, symbol); m != nil || err != nil {
		t.Fatalf("missing key: %+v %v", m, err)
	}

	updates, err := r.Watch(ctx, symbol)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	want := &model.Match{WindowNormalized: []float64{100, 104}, Similarity: 0.8}
	if err := r.Put(ctx, KindMatch, symbol, want, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	select {
	case <-updates:
	case <-ctx.Done():
		t.Fatal("no update signal")
	}

	got, err := r.ReadMatch(ctx, symbol)
	if err != nil || got == nil || got.Similarity != 0.8 || len(got.WindowNormalized) != 2 {
		t.Errorf("read back: %+v %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("expected error without a candle source")
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	os.WriteFile(path, []byte(snapshotJSON), 0o644)
	s, err := Open(Options{SnapshotPath: path, SQLDSN: "ignored"})
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if s.File == nil || s.SQL != nil || s.Overlays == nil {
		t.Errorf("snapshot file should serve candles and overlays: %+v", s)
	}
	snap, err := s.Loader().Load(context.Background(), "NSE:1", 86400, 0)
	if err != nil || len(snap.Candles) != 3 || snap.Match == nil {
		t.Errorf("load: %+v %v", snap, err)
	}
	s.Close()

	s, err = Open(Options{SQLDriver: DriverSQLite, SQLDSN: filepath.Join(t.TempDir(), "c.db"), PriceScale: 100})
	if err != nil {
		t.Fatalf("open sql: %v", err)
	}
	defer s.Close()
	if s.SQL == nil || s.Overlays != nil {
		t.Errorf("sql source: %+v", s)
	}
}

func TestResample(t *testing.T) {
	week := 7 * 86400
	// Seven daily bars starting on a bucket boundary, then two more.
	start := int64(week) * 1000 * 2900
	var in []model.Candle
	for i := 0; i < 9; i++ {
		p := 100 + float64(i)
		c := model.Candle{T: start + int64(i)*day, O: p, H: p + 5, L: p - 5, C: p + 1}
		if i != 2 {
			c.V = model.Vol(10)
		}
		in = append(in, c)
	}
	in[3].H = 200
	in[4].L = 1

	out, err := Resample(in, week)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 weekly bars, got %d", len(out))
	}
	w := out[0]
	if w.T != start || w.O != 100 || w.C != 107 || w.H != 200 || w.L != 1 {
		t.Errorf("first week: %+v", w)
	}
	if w.Volume() != 60 {
		t.Errorf("volume: got %v, want 60", w.Volume())
	}
	if out[1].T != start+7*day || out[1].O != 107 || out[1].C != 109 {
		t.Errorf("partial week: %+v", out[1])
	}

	if _, err := Resample(in, 0); err == nil {
		t.Error("expected error for tf 0")
	}
	if out, _ := Resample(nil, week); out != nil {
		t.Errorf("expected nil, got %+v", out)
	}
}

func TestResample_NoVolume(t *testing.T) {
	in := []model.Candle{{T: 0, O: 1, H: 2, L: 0, C: 1}, {T: day, O: 1, H: 3, L: 1, C: 2}}
	out, _ := Resample(in, 7*86400)
	if len(out) != 1 || out[0].HasVolume() {
		t.Errorf("expected one bar without volume, got %+v", out)
	}
}

func TestLoader_Resample(t *testing.T) {
	l := &Loader{Candles: &fakeCandles{candles: bars(14)}, ResampleTF: 2 * 86400}
	snap, err := l.Load(context.Background(), "NSE:1", 86400, 0)
	if err != nil {
		t.Fatal(err)
	}
	// bars start at day 1: buckets {1}, {2,3}, ..., {12,13}, {14}
	if len(snap.Candles) != 8 {
		t.Errorf("expected 8 two-day bars, got %d", len(snap.Candles))
	}
}
