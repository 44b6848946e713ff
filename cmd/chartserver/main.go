// cmd/chartserver hosts interactive chart sessions over WebSocket.
//
// Clients connect to /ws?symbol=NSE:99926000&w=960&h=540, send pointer
// events as JSON and receive a JSON frame header followed by a PNG per
// frame. /metrics and /healthz are served on METRICS_ADDR.
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-chartv1/config"
	"trading-chartv1/internal/frame"
	"trading-chartv1/internal/gateway"
	"trading-chartv1/internal/logger"
	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/source"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[chartserver] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[chartserver] config: %v", err)
	}
	logger.Init("chartserver", logger.ParseLevel(cfg.LogLevel))

	srcs, err := source.Open(source.Options{
		SnapshotPath: cfg.SnapshotPath,
		SQLDriver:    cfg.SQLDriver,
		SQLDSN:       cfg.SQLDSN,
		PriceScale:   cfg.PriceScale,
		Redis: source.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		},
	})
	if err != nil {
		log.Fatalf("[chartserver] sources: %v", err)
	}
	defer srcs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	var rdb *goredis.Client
	if srcs.Redis != nil {
		rdb = srcs.Redis.Client()
	}
	var db *sql.DB
	if srcs.SQL != nil {
		db = srcs.SQL.DB()
	}
	health.StartLivenessChecker(ctx, rdb, db, 10*time.Second)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)

	loader := srcs.Loader()
	loader.Metrics = m
	loader.ResampleTF = cfg.ResampleTF
	hub := gateway.NewHub(ctx, gateway.Config{
		Symbol:      cfg.Symbol,
		TF:          cfg.TF,
		CandleLimit: cfg.CandleLimit,
		Frame: frame.Config{
			Width:       cfg.Chart.Width,
			Height:      cfg.Chart.Height,
			Layout:      cfg.Chart.Layout,
			Theme:       cfg.Chart.Theme,
			Interaction: cfg.Chart.Viewport,
		},
		Options: cfg.Chart.Options.RenderOptions(),
		Surface: frame.PNGSurface{DPR: 1},
	}, loader, m, health)
	if srcs.Redis != nil {
		hub.Watcher = srcs.Redis
	}

	// One listener when both addresses match
	var srv *http.Server
	if cfg.ListenAddr == cfg.MetricsAddr {
		metricsSrv.Mux().HandleFunc("/ws", hub.ServeWS)
	} else {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.ServeWS)
		mux.Handle("/healthz", health)
		srv = &http.Server{Addr: cfg.ListenAddr, Handler: mux}
		go func() {
			log.Printf("[chartserver] listening on %s", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("[chartserver] server error: %v", err)
			}
		}()
	}
	metricsSrv.Start()

	slog.Info("chartserver ready",
		slog.String("symbol", cfg.Symbol),
		slog.Int("tf", cfg.TF),
		slog.Bool("redis", srcs.Redis != nil),
		slog.Bool("sql", srcs.SQL != nil),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[chartserver] shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if srv != nil {
		srv.Shutdown(shutdownCtx)
	}
	metricsSrv.Stop(shutdownCtx)
	hub.Wait()
	log.Println("[chartserver] stopped")
}
