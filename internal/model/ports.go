package model

import "context"

// ── Source Port Interfaces ──
// These interfaces decouple the chart hosts from concrete data sources
// (JSON files, SQL databases, Redis). The render core never sees them: it
// receives an immutable Snapshot per frame.

// CandleReader loads candles for one instrument and timeframe.
type CandleReader interface {
	// ReadCandles returns up to limit most recent candles with T > afterMs,
	// ordered by time. limit ≤ 0 means no limit.
	ReadCandles(ctx context.Context, symbol string, tf int, afterMs int64, limit int) ([]Candle, error)

	// Close releases underlying resources.
	Close() error
}

// OverlayReader loads the optional overlay inputs for a symbol.
// Missing items are returned as nil without error.
type OverlayReader interface {
	ReadForecastInput(ctx context.Context, symbol string) (*ForecastRequest, error)
	ReadForecastPayload(ctx context.Context, symbol string) (*ForecastPayload, error)
	ReadMatch(ctx context.Context, symbol string) (*Match, error)
	ReadDistribution(ctx context.Context, symbol string) (*DistributionSeries, error)
	ReadPhases(ctx context.Context, symbol string) ([]PhaseZone, error)

	// Close releases underlying resources.
	Close() error
}

// ForecastRequest carries the anchor inputs of the calibration engine as they
// arrive from the analytics layer. The current price is taken from candles.
type ForecastRequest struct {
	R7              float64   `json:"r7"`
	R14             float64   `json:"r14"`
	R30             float64   `json:"r30"`
	Aftermath       []float64 `json:"aftermath"`
	WorkingDrawdown float64   `json:"working_drawdown"`
	TailDrawdownP95 float64   `json:"tail_drawdown_p95"`
	Confidence      float64   `json:"confidence"`
	HorizonDays     int       `json:"horizon_days"`
}

// Snapshot is everything one chart frame is drawn from.
type Snapshot struct {
	Symbol          string              `json:"symbol"`
	Candles         []Candle            `json:"candles"`
	Phases          []PhaseZone         `json:"phases,omitempty"`
	ForecastInput   *ForecastRequest    `json:"forecast_input,omitempty"`
	ForecastPayload *ForecastPayload    `json:"forecast_payload,omitempty"`
	Match           *Match              `json:"match,omitempty"`
	Distribution    *DistributionSeries `json:"distribution,omitempty"`
}
