// cmd/chartrender renders one chart snapshot to a PNG file.
//
// Usage:
//
//	go run ./cmd/chartrender --snapshot=data/nifty.json --o=chart.png
//	go run ./cmd/chartrender --sql-dsn=data/candles.db --redis=localhost:6379 --window=120
//	go run ./cmd/chartrender --snapshot=data/nifty.json --save-sql=data/candles.db
//
// Flags default to the environment used by chartserver (SNAPSHOT_PATH,
// SQL_DSN, REDIS_ADDR, SYMBOL, TF, CHART_CONFIG ...).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"trading-chartv1/config"
	"trading-chartv1/internal/frame"
	"trading-chartv1/internal/interaction"
	"trading-chartv1/internal/logger"
	"trading-chartv1/internal/model"
	"trading-chartv1/internal/render"
	"trading-chartv1/internal/source"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[chartrender] config: %v", err)
	}

	snapshot := flag.String("snapshot", cfg.SnapshotPath, "JSON snapshot file (candles and overlays)")
	sqlDriver := flag.String("sql-driver", cfg.SQLDriver, "SQL driver: sqlite3 or postgres")
	sqlDSN := flag.String("sql-dsn", cfg.SQLDSN, "SQL candle store DSN (used when no snapshot is given)")
	redisAddr := flag.String("redis", cfg.RedisAddr, "Redis address for overlays (empty = none)")
	redisPrefix := flag.String("redis-prefix", cfg.RedisPrefix, "Redis overlay key prefix")
	symbol := flag.String("symbol", cfg.Symbol, "Instrument as exchange:token")
	tf := flag.Int("tf", cfg.TF, "Timeframe in seconds")
	resample := flag.Int("resample", cfg.ResampleTF, "Aggregate bars into this many seconds (0 = off)")
	limit := flag.Int("limit", cfg.CandleLimit, "Max candles to load (0 = all)")
	chartFile := flag.String("chart", cfg.ChartFile, "YAML chart file")
	width := flag.Int("w", 0, "Width in CSS pixels (0 = chart file)")
	height := flag.Int("h", 0, "Height in CSS pixels (0 = chart file)")
	dpr := flag.Float64("dpr", 1, "Device pixel ratio")
	window := flag.Int("window", 0, "Visible bars (0 = default window)")
	out := flag.String("o", "chart.png", "Output PNG path")
	saveSQL := flag.String("save-sql", "", "Also upsert the loaded candles into this SQLite file")
	flag.Parse()

	logger.Init("chartrender", logger.ParseLevel(cfg.LogLevel))

	chart := cfg.Chart
	if *chartFile != cfg.ChartFile {
		if chart, err = config.LoadChart(*chartFile); err != nil {
			log.Fatalf("[chartrender] chart file: %v", err)
		}
	}
	if *width > 0 {
		chart.Width = *width
	}
	if *height > 0 {
		chart.Height = *height
	}

	srcs, err := source.Open(source.Options{
		SnapshotPath: *snapshot,
		SQLDriver:    *sqlDriver,
		SQLDSN:       *sqlDSN,
		PriceScale:   cfg.PriceScale,
		Redis: source.RedisConfig{
			Addr:     *redisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   *redisPrefix,
		},
	})
	if err != nil {
		log.Fatalf("[chartrender] sources: %v", err)
	}
	defer srcs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sym := *symbol
	if srcs.File != nil && srcs.File.Snapshot().Symbol != "" {
		sym = srcs.File.Snapshot().Symbol
	}
	loader := srcs.Loader()
	loader.ResampleTF = *resample
	snap, err := loader.Load(ctx, sym, *tf, *limit)
	if err != nil {
		log.Fatalf("[chartrender] load: %v", err)
	}
	log.Printf("[chartrender] loaded %s: %d candles", sym, len(snap.Candles))

	if *saveSQL != "" {
		if err := saveCandles(ctx, *saveSQL, cfg.PriceScale, sym, *tf, snap); err != nil {
			log.Fatalf("[chartrender] save-sql: %v", err)
		}
		log.Printf("[chartrender] saved %d candles to %s", len(snap.Candles), *saveSQL)
	}

	scene := frame.SceneFromSnapshot(snap, chart.Options.RenderOptions(), nil)
	total := len(scene.Candles)
	vc := chart.Viewport
	n := vc.DefaultWindow
	if *window > 0 {
		n = *window
	}
	view := interaction.Clamp(interaction.Reset(total, n), total, vc.MinWindow, vc.MaxWindow)

	start := time.Now()
	surface := frame.PNGSurface{DPR: *dpr}
	c, err := surface.New(chart.Width, chart.Height)
	if err != nil {
		log.Fatalf("[chartrender] surface: %v", err)
	}
	render.Render(c, render.Input{
		Candles:  scene.Candles,
		Viewport: view,
		Width:    float64(chart.Width),
		Height:   float64(chart.Height),
		Options:  scene.Options,
		Layout:   chart.Layout,
		Theme:    chart.Theme,
	})
	data, err := surface.Encode(c)
	if err != nil {
		log.Fatalf("[chartrender] encode: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("[chartrender] write: %v", err)
	}

	log.Printf("[chartrender] wrote %s (%s, %dx%d, bars %d..%d of %d) in %s",
		*out, humanize.Bytes(uint64(len(data))), chart.Width, chart.Height,
		view.Start, view.End, total, time.Since(start).Round(time.Millisecond))
}

// saveCandles seeds a SQLite candle store from the loaded snapshot.
func saveCandles(ctx context.Context, path string, priceScale float64, symbol string, tf int, snap *model.Snapshot) error {
	store, err := source.OpenSQL(source.DriverSQLite, path, priceScale)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.CreateSchema(ctx); err != nil {
		return err
	}
	return store.WriteCandles(ctx, symbol, tf, snap.Candles)
}
