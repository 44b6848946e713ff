package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"trading-chartv1/internal/model"
)

// File serves candles and overlays from a JSON snapshot file. It implements
// both model.CandleReader and model.OverlayReader.
type File struct {
	path string
	snap *model.Snapshot
}

// OpenFile reads and validates a snapshot file.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := DecodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return &File{path: path, snap: snap}, nil
}

// DecodeSnapshot decodes a JSON snapshot. Candles are sorted by time; a
// duplicate timestamp is an error.
func DecodeSnapshot(r io.Reader) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	sort.SliceStable(snap.Candles, func(i, j int) bool { return snap.Candles[i].T < snap.Candles[j].T })
	if err := model.ValidateCandles(snap.Candles); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Snapshot returns the decoded snapshot.
func (f *File) Snapshot() *model.Snapshot { return f.snap }

func (f *File) match(symbol string) bool {
	return symbol == "" || f.snap.Symbol == "" || symbol == f.snap.Symbol
}

// ReadCandles implements model.CandleReader. The timeframe is not checked: a
// snapshot file holds one series.
func (f *File) ReadCandles(ctx context.Context, symbol string, tf int, afterMs int64, limit int) ([]model.Candle, error) {
	if !f.match(symbol) {
		return nil, fmt.Errorf("candles %s in %s: %w", symbol, f.path, ErrNotFound)
	}
	all := f.snap.Candles
	i := sort.Search(len(all), func(k int) bool { return all[k].T > afterMs })
	out := all[i:]
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]model.Candle(nil), out...), nil
}

func (f *File) ReadForecastInput(ctx context.Context, symbol string) (*model.ForecastRequest, error) {
	if !f.match(symbol) {
		return nil, nil
	}
	return f.snap.ForecastInput, nil
}

func (f *File) ReadForecastPayload(ctx context.Context, symbol string) (*model.ForecastPayload, error) {
	if !f.match(symbol) {
		return nil, nil
	}
	return f.snap.ForecastPayload, nil
}

func (f *File) ReadMatch(ctx context.Context, symbol string) (*model.Match, error) {
	if !f.match(symbol) {
		return nil, nil
	}
	return f.snap.Match, nil
}

func (f *File) ReadDistribution(ctx context.Context, symbol string) (*model.DistributionSeries, error) {
	if !f.match(symbol) {
		return nil, nil
	}
	return f.snap.Distribution, nil
}

func (f *File) ReadPhases(ctx context.Context, symbol string) ([]model.PhaseZone, error) {
	if !f.match(symbol) {
		return nil, nil
	}
	return f.snap.Phases, nil
}

// Close implements both reader interfaces.
func (f *File) Close() error { return nil }
