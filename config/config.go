package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trading-chartv1/internal/indicator"
	"trading-chartv1/internal/interaction"
	"trading-chartv1/internal/render"
	"trading-chartv1/internal/scale"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration loaded from environment variables
// and the optional chart file.
type Config struct {
	// Snapshot sources
	SnapshotPath  string // JSON snapshot file
	SQLDriver     string // "sqlite3" or "postgres"
	SQLDSN        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Instrument
	Symbol      string // "exchange:token"
	TF          int    // timeframe in seconds
	CandleLimit int
	PriceScale  float64 // stored integer prices are divided by this
	ResampleTF  int     // 0 = draw bars at TF

	// Hosts
	ListenAddr  string
	MetricsAddr string
	LogLevel    string
	ChartFile   string

	Chart Chart
}

// Chart is the YAML chart file: sizes, theme, layout, viewport bounds and
// layer options.
type Chart struct {
	Width    int                `yaml:"width"`
	Height   int                `yaml:"height"`
	Theme    render.Theme       `yaml:"theme"`
	Layout   render.Layout      `yaml:"layout"`
	Viewport interaction.Config `yaml:"viewport"`
	Options  ChartOptions       `yaml:"options"`
}

// ChartOptions are the YAML form of render.Options.
type ChartOptions struct {
	MAPeriod    int    `yaml:"ma_period"`
	MAKind      string `yaml:"ma_kind"`
	ShowVolume  bool   `yaml:"show_volume"`
	YMode       string `yaml:"y_mode"`
	Overlay     string `yaml:"overlay"`
	HorizonDays int    `yaml:"horizon_days"`
}

// DefaultChart returns the built-in chart settings.
func DefaultChart() Chart {
	return Chart{
		Width:    960,
		Height:   540,
		Theme:    render.DefaultTheme(),
		Layout:   render.DefaultLayout(),
		Viewport: interaction.DefaultConfig(),
		Options: ChartOptions{
			MAPeriod:   20,
			MAKind:     "ema",
			ShowVolume: true,
			YMode:      "price",
			Overlay:    "auto",
		},
	}
}

// Load reads .env (if present), then environment variables with sensible
// defaults, then the chart file named by CHART_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	cfg := &Config{
		SnapshotPath:  getEnv("SNAPSHOT_PATH", ""),
		SQLDriver:     getEnv("SQL_DRIVER", "sqlite3"),
		SQLDSN:        getEnv("SQL_DSN", getEnv("SQLITE_PATH", "")),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "chart"),

		// Default: NIFTY 50 on NSE, daily bars
		Symbol:      getEnv("SYMBOL", "NSE:99926000"),
		TF:          getEnvInt("TF", 86400),
		CandleLimit: getEnvInt("CANDLE_LIMIT", 2000),
		PriceScale:  getEnvFloat("PRICE_SCALE", 100),
		ResampleTF:  getEnvInt("RESAMPLE_TF", 0),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ChartFile:   getEnv("CHART_CONFIG", ""),
	}

	chart, err := LoadChart(cfg.ChartFile)
	if err != nil {
		return nil, err
	}
	cfg.Chart = chart

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadChart reads a YAML chart file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadChart(path string) (Chart, error) {
	chart := DefaultChart()
	if path == "" {
		return chart, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config] chart file %s not found, using defaults", path)
			return chart, nil
		}
		return chart, fmt.Errorf("read chart config: %w", err)
	}
	if err := ParseChart(data, &chart); err != nil {
		return chart, err
	}
	return chart, nil
}

// ParseChart decodes YAML into chart, keeping the values already set for
// keys the document omits.
func ParseChart(data []byte, chart *Chart) error {
	if err := yaml.Unmarshal(data, chart); err != nil {
		return fmt.Errorf("parse chart config: %w", err)
	}
	return chart.Validate()
}

// Validate checks the source and host settings and the chart file.
func (c *Config) Validate() error {
	switch c.SQLDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: sql_driver must be sqlite3 or postgres, got %q", ErrInvalid, c.SQLDriver)
	}
	if c.TF <= 0 {
		return fmt.Errorf("%w: tf must be positive", ErrInvalid)
	}
	if c.ResampleTF < 0 || (c.ResampleTF > 0 && c.ResampleTF%c.TF != 0) {
		return fmt.Errorf("%w: resample_tf must be a multiple of tf", ErrInvalid)
	}
	if c.PriceScale <= 0 {
		return fmt.Errorf("%w: price_scale must be positive", ErrInvalid)
	}
	if c.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	return c.Chart.Validate()
}

// Validate checks sizes, viewport bounds, layout values and theme colors.
func (ch *Chart) Validate() error {
	if ch.Width <= 0 || ch.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive", ErrInvalid)
	}
	v := ch.Viewport
	if v.MinWindow <= 0 || v.MaxWindow < v.MinWindow {
		return fmt.Errorf("%w: viewport needs 0 < min_window <= max_window", ErrInvalid)
	}
	if v.DefaultWindow < v.MinWindow || v.DefaultWindow > v.MaxWindow {
		return fmt.Errorf("%w: viewport.default_window must lie in [%d, %d]", ErrInvalid, v.MinWindow, v.MaxWindow)
	}
	l := ch.Layout
	if l.VolumeRatio < 0 || l.VolumeRatio >= 1 {
		return fmt.Errorf("%w: layout.volume_ratio must lie in [0, 1)", ErrInvalid)
	}
	if l.BodyRatio <= 0 || l.BodyRatio > 1 {
		return fmt.Errorf("%w: layout.body_ratio must lie in (0, 1]", ErrInvalid)
	}
	if l.DPR <= 0 {
		return fmt.Errorf("%w: layout.dpr must be positive", ErrInvalid)
	}
	if l.PriceTicks <= 0 {
		return fmt.Errorf("%w: layout.price_ticks must be positive", ErrInvalid)
	}
	for name, c := range ch.Theme.Colors() {
		if !c.Valid() {
			return fmt.Errorf("%w: theme.%s: bad color %q", ErrInvalid, name, c)
		}
	}
	if ch.Options.MAPeriod < 0 || ch.Options.HorizonDays < 0 {
		return fmt.Errorf("%w: options.ma_period and options.horizon_days must not be negative", ErrInvalid)
	}
	return nil
}

// RenderOptions converts the YAML options into render.Options. Unknown
// names fall back to the defaults of their parsers.
func (o ChartOptions) RenderOptions() render.Options {
	return render.Options{
		MAPeriod:    o.MAPeriod,
		MAKind:      indicator.ParseKind(o.MAKind),
		ShowVolume:  o.ShowVolume,
		YMode:       scale.ParseMode(o.YMode),
		OverlayMode: render.ParseOverlayMode(o.Overlay),
		HorizonDays: o.HorizonDays,
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] skipping invalid %s value: %q", key, v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] skipping invalid %s value: %q", key, v)
		return fallback
	}
	return f
}
