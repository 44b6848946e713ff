// Package source loads chart snapshots: candles from a JSON snapshot file or
// a SQL candle store, overlays (forecast inputs, payloads, historical match,
// distribution fan, phase zones) from the same file or from Redis keys.
package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"trading-chartv1/internal/metrics"
	"trading-chartv1/internal/model"
)

// ErrNotFound is returned when a symbol has no candles.
var ErrNotFound = errors.New("not found")

// SplitSymbol splits "exchange:token".
func SplitSymbol(symbol string) (exchange, token string, err error) {
	exchange, token, ok := strings.Cut(symbol, ":")
	if !ok || exchange == "" || token == "" {
		return "", "", fmt.Errorf("symbol %q: want exchange:token", symbol)
	}
	return exchange, token, nil
}

// Loader assembles a snapshot from a candle reader and an optional overlay
// reader. Overlays are best effort: a failing overlay source leaves the
// affected overlays empty and the chart shows placeholders.
type Loader struct {
	Candles  model.CandleReader
	Overlays model.OverlayReader
	Metrics  *metrics.Metrics

	// ResampleTF, when set, aggregates the loaded bars into buckets of
	// this many seconds, e.g. daily bars into weeks.
	ResampleTF int
}

// Load reads up to limit candles of symbol at timeframe tf and every overlay.
func (l *Loader) Load(ctx context.Context, symbol string, tf, limit int) (*model.Snapshot, error) {
	start := time.Now()
	candles, err := l.Candles.ReadCandles(ctx, symbol, tf, 0, limit)
	l.Metrics.ObserveSource("candles", start, err)
	if err != nil {
		return nil, fmt.Errorf("load candles %s: %w", symbol, err)
	}
	if err := model.ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("load candles %s: %w", symbol, err)
	}
	if l.ResampleTF > 0 && l.ResampleTF != tf {
		if candles, err = Resample(candles, l.ResampleTF); err != nil {
			return nil, err
		}
	}

	snap := &model.Snapshot{Symbol: symbol, Candles: candles}
	if l.Overlays == nil {
		return snap, nil
	}
	start = time.Now()
	err = ReadOverlays(ctx, l.Overlays, symbol, snap)
	l.Metrics.ObserveSource("overlays", start, err)
	if err != nil {
		log.Printf("[source] overlays for %s incomplete: %v", symbol, err)
	}
	return snap, nil
}

// ReadOverlays fills the overlay fields of snap. Every overlay is attempted;
// the returned error joins the individual failures.
func ReadOverlays(ctx context.Context, r model.OverlayReader, symbol string, snap *model.Snapshot) error {
	var errs []error
	var err error

	if snap.ForecastInput, err = r.ReadForecastInput(ctx, symbol); err != nil {
		errs = append(errs, err)
	}
	if snap.ForecastPayload, err = r.ReadForecastPayload(ctx, symbol); err != nil {
		errs = append(errs, err)
	}
	if snap.Match, err = r.ReadMatch(ctx, symbol); err != nil {
		errs = append(errs, err)
	}
	if snap.Distribution, err = r.ReadDistribution(ctx, symbol); err != nil {
		errs = append(errs, err)
	}
	if snap.Phases, err = r.ReadPhases(ctx, symbol); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
