package source

import (
	"errors"
	"fmt"
	"log"

	"trading-chartv1/internal/model"
)

// Options selects the data sources of a host. A snapshot file serves both
// candles and overlays; otherwise candles come from SQL. Redis, when
// configured, takes over the overlays.
type Options struct {
	SnapshotPath string
	SQLDriver    string
	SQLDSN       string
	PriceScale   float64
	Redis        RedisConfig
}

// Sources holds the opened readers. Unused backends are nil.
type Sources struct {
	File  *File
	SQL   *SQLCandles
	Redis *RedisOverlays

	Candles  model.CandleReader
	Overlays model.OverlayReader
}

// Open opens the sources named by opts. An unreachable Redis is logged and
// skipped: overlays are optional.
func Open(opts Options) (*Sources, error) {
	s := &Sources{}
	switch {
	case opts.SnapshotPath != "":
		f, err := OpenFile(opts.SnapshotPath)
		if err != nil {
			return nil, err
		}
		s.File, s.Candles, s.Overlays = f, f, f
	case opts.SQLDSN != "":
		db, err := OpenSQL(opts.SQLDriver, opts.SQLDSN, opts.PriceScale)
		if err != nil {
			return nil, err
		}
		s.SQL, s.Candles = db, db
	default:
		return nil, errors.New("no candle source: set a snapshot file or a SQL DSN")
	}

	if opts.Redis.Addr != "" {
		r, err := NewRedisOverlays(opts.Redis)
		if err != nil {
			log.Printf("[source] WARNING: redis overlays disabled: %v", err)
		} else {
			s.Redis, s.Overlays = r, r
		}
	}
	return s, nil
}

// Loader returns a loader over the opened readers.
func (s *Sources) Loader() *Loader {
	return &Loader{Candles: s.Candles, Overlays: s.Overlays}
}

// Close closes every opened backend.
func (s *Sources) Close() error {
	var errs []error
	if s.File != nil {
		errs = append(errs, s.File.Close())
	}
	if s.SQL != nil {
		errs = append(errs, s.SQL.Close())
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close sources: %w", err)
	}
	return nil
}
