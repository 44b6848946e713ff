package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the chart hosts.
type Metrics struct {
	FramesTotal      prometheus.Counter
	EmptyFrames      prometheus.Counter
	RenderDur        prometheus.Histogram
	EncodeDur        prometheus.Histogram
	FrameBytes       prometheus.Histogram
	SupersededFrames prometheus.Counter
	CancelledFrames  prometheus.Counter

	// Event ring overflow
	EventOverflow prometheus.Counter

	// Forecast engine
	ForecastBuilds *prometheus.CounterVec // labels: type=calibrated|fallback|payload|empty
	ForecastDur    prometheus.Histogram

	// Sources
	SourceReadDur *prometheus.HistogramVec // labels: source
	SourceErrors  *prometheus.CounterVec   // labels: source

	// Gateway
	SessionsActive prometheus.Gauge
	SendDrops      prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics on the default
// registry.
func NewMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// New registers and returns all Prometheus metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_frames_total",
			Help: "Total chart frames rendered",
		}),
		EmptyFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_empty_frames_total",
			Help: "Frames rendered with the no-data placeholder",
		}),
		RenderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_render_duration_seconds",
			Help:    "Layer pipeline latency per frame",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		EncodeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_encode_duration_seconds",
			Help:    "Frame encoding latency",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		FrameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_frame_bytes",
			Help:    "Encoded frame size",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 10),
		}),
		SupersededFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_superseded_frames_total",
			Help: "Redraw requests skipped because a newer generation was queued",
		}),
		CancelledFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_cancelled_frames_total",
			Help: "Frames abandoned mid-render by cancellation",
		}),

		EventOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_event_overflow_total",
			Help: "Interaction events dropped because the event ring was full",
		}),

		ForecastBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_forecast_builds_total",
			Help: "Forecast outputs produced (by type)",
		}, []string{"type"}),
		ForecastDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chart_forecast_duration_seconds",
			Help:    "Forecast calibration latency",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),

		SourceReadDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chart_source_read_duration_seconds",
			Help:    "Snapshot source read latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_source_errors_total",
			Help: "Snapshot source read failures",
		}, []string{"source"}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chart_sessions_active",
			Help: "Connected interactive chart sessions",
		}),
		SendDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_send_drops_total",
			Help: "Frames dropped because a session send queue was full",
		}),
	}

	reg.MustRegister(
		m.FramesTotal,
		m.EmptyFrames,
		m.RenderDur,
		m.EncodeDur,
		m.FrameBytes,
		m.SupersededFrames,
		m.CancelledFrames,
		m.EventOverflow,
		m.ForecastBuilds,
		m.ForecastDur,
		m.SourceReadDur,
		m.SourceErrors,
		m.SessionsActive,
		m.SendDrops,
	)

	return m
}

// ObserveSource records the outcome of one source read. Safe on a nil
// receiver.
func (m *Metrics) ObserveSource(source string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.SourceReadDur.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		m.SourceErrors.WithLabelValues(source).Inc()
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConfigured bool      `json:"redis_configured"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLConfigured   bool      `json:"sql_configured"`
	SQLOK           bool      `json:"sql_ok"`
	Sessions        int       `json:"sessions"`
	LastFrameAt     time.Time `json:"last_frame_at"`

	// Render latency percentiles (ms), fed by the gateway
	RenderP50Ms float64 `json:"render_p50_ms"`
	RenderP95Ms float64 `json:"render_p95_ms"`
	RenderP99Ms float64 `json:"render_p99_ms"`

	// Liveness probe results
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	SQLLatencyMs   float64   `json:"sql_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetSessions(n int) {
	h.mu.Lock()
	h.Sessions = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastFrameAt(t time.Time) {
	h.mu.Lock()
	h.LastFrameAt = t
	h.mu.Unlock()
}

// SetRenderLatency records the current render latency percentiles.
func (h *HealthStatus) SetRenderLatency(p50, p95, p99 float64) {
	h.mu.Lock()
	h.RenderP50Ms, h.RenderP95Ms, h.RenderP99Ms = p50, p95, p99
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConfigured = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQL runs a ping and records latency + health.
func (h *HealthStatus) CheckSQL(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLConfigured = true
	h.SQLOK = err == nil
	h.SQLLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil clients are
// skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQL(probeCtx, sqlDB)
		}
	}
	go func() {
		check()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Only configured dependencies count towards the status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisConfigured && !h.RedisConnected
	sqlDown := h.SQLConfigured && !h.SQLOK
	if redisDown || sqlDown {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if redisDown && sqlDown {
		overallStatus = "unhealthy"
	}

	frameAge := ""
	lastFrame := ""
	if !h.LastFrameAt.IsZero() {
		frameAge = time.Since(h.LastFrameAt).Round(time.Millisecond).String()
		lastFrame = h.LastFrameAt.Format(time.RFC3339)
	}

	status := struct {
		Status         string  `json:"status"`
		Uptime         string  `json:"uptime"`
		Sessions       int     `json:"sessions"`
		LastFrameAt    string  `json:"last_frame_at"`
		FrameAge       string  `json:"frame_age"`
		RenderP50Ms    float64 `json:"render_p50_ms"`
		RenderP95Ms    float64 `json:"render_p95_ms"`
		RenderP99Ms    float64 `json:"render_p99_ms"`
		RedisConnected bool    `json:"redis_connected"`
		RedisLatencyMs float64 `json:"redis_latency_ms"`
		SQLOK          bool    `json:"sql_ok"`
		SQLLatencyMs   float64 `json:"sql_latency_ms"`
		LastCheckAt    string  `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		Sessions:       h.Sessions,
		LastFrameAt:    lastFrame,
		FrameAge:       frameAge,
		RenderP50Ms:    h.RenderP50Ms,
		RenderP95Ms:    h.RenderP95Ms,
		RenderP99Ms:    h.RenderP99Ms,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		SQLOK:          h.SQLOK,
		SQLLatencyMs:   h.SQLLatencyMs,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	mux    *http.ServeMux
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		mux:    mux,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Mux returns the server's mux so hosts can add routes before Start.
func (s *Server) Mux() *http.ServeMux { return s.mux }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
