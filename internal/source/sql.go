package source

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"trading-chartv1/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLCandles reads bars from the candles_tf table: one row per
// (exchange, token, tf, ts) with ts in unix seconds and integer prices
// multiplied by the price scale.
type SQLCandles struct {
	db         *sql.DB
	driver     string
	priceScale float64
}

// OpenSQL opens a candle store. SQLite files are opened in WAL mode with a
// busy timeout so the chart can read while a writer appends.
func OpenSQL(driver, dsn string, priceScale float64) (*SQLCandles, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("sql open: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sql-candles] opened %s store", driver)
	return NewSQLCandles(db, driver, priceScale), nil
}

// NewSQLCandles wraps an open database. priceScale ≤ 0 means 1.
func NewSQLCandles(db *sql.DB, driver string, priceScale float64) *SQLCandles {
	if priceScale <= 0 || math.IsNaN(priceScale) {
		priceScale = 1
	}
	return &SQLCandles{db: db, driver: driver, priceScale: priceScale}
}

// DB returns the underlying sql.DB for health checks.
func (s *SQLCandles) DB() *sql.DB { return s.db }

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLCandles) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CreateSchema creates the candles_tf table if it does not exist.
func (s *SQLCandles) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS candles_tf (
			token      TEXT    NOT NULL,
			exchange   TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         BIGINT  NOT NULL,
			open       BIGINT  NOT NULL,
			high       BIGINT  NOT NULL,
			low        BIGINT  NOT NULL,
			close      BIGINT  NOT NULL,
			volume     BIGINT,
			count      INTEGER,
			PRIMARY KEY (exchange, token, tf, ts)
		)
	`)
	if err != nil {
		return fmt.Errorf("sql schema candles_tf: %w", err)
	}
	return nil
}

// ReadCandles implements model.CandleReader. Rows are read newest first so
// the limit keeps the most recent bars, then returned in time order.
func (s *SQLCandles) ReadCandles(ctx context.Context, symbol string, tf int, afterMs int64, limit int) ([]model.Candle, error) {
	exchange, token, err := SplitSymbol(symbol)
	if err != nil {
		return nil, err
	}
	q := `
		SELECT ts, open, high, low, close, volume
		FROM candles_tf
		WHERE exchange = ? AND token = ? AND tf = ? AND ts > ?
		ORDER BY ts DESC`
	args := []any{exchange, token, tf, afterMs / 1000}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("sql query candles_tf: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var (
			ts         int64
			o, h, l, c float64
			vol        sql.NullFloat64
		)
		if err := rows.Scan(&ts, &o, &h, &l, &c, &vol); err != nil {
			return nil, fmt.Errorf("sql scan candles_tf: %w", err)
		}
		k := s.priceScale
		bar := model.Candle{T: ts * 1000, O: o / k, H: h / k, L: l / k, C: c / k}
		if vol.Valid {
			bar.V = model.Vol(vol.Float64)
		}
		candles = append(candles, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows candles_tf: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("candles %s tf=%d: %w", symbol, tf, ErrNotFound)
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// WriteCandles upserts bars in a single transaction.
func (s *SQLCandles) WriteCandles(ctx context.Context, symbol string, tf int, candles []model.Candle) error {
	exchange, token, err := SplitSymbol(symbol)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sql begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO candles_tf (token, exchange, tf, ts, open, high, low, close, volume, count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (exchange, token, tf, ts) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume
	`))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sql prepare insert: %w", err)
	}
	defer stmt.Close()

	k := s.priceScale
	for _, c := range candles {
		var vol any
		if c.HasVolume() {
			vol = int64(math.Round(c.Volume()))
		}
		_, err := stmt.ExecContext(ctx, token, exchange, tf, c.T/1000,
			int64(math.Round(c.O*k)), int64(math.Round(c.H*k)), int64(math.Round(c.L*k)), int64(math.Round(c.C*k)),
			vol, 1)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sql insert candle %d: %w", c.T, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sql commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLCandles) Close() error {
	return s.db.Close()
}
