package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-chartv1/internal/model"
)

// Overlay key kinds. A key is "{prefix}:{kind}:{symbol}" holding JSON.
const (
	KindForecastInput = "forecast_input"
	KindForecast      = "forecast"
	KindMatch         = "match"
	KindDistribution  = "distribution"
	KindPhases        = "phases"
)

// RedisConfig configures the Redis overlay reader.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, e.g. "chart"
}

// RedisOverlays reads overlay JSON documents written by the analytics layer
// and announces changes on "{prefix}:updates:{symbol}". It implements
// model.OverlayReader.
type RedisOverlays struct {
	client  *goredis.Client
	prefix  string
	breaker *Breaker
}

// NewRedisOverlays connects to Redis and pings the server.
func NewRedisOverlays(cfg RedisConfig) (*RedisOverlays, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis-overlays] connected to %s (prefix=%s)", cfg.Addr, cfg.Prefix)
	return NewRedisOverlaysClient(client, cfg.Prefix), nil
}

// NewRedisOverlaysClient wraps an existing client.
func NewRedisOverlaysClient(client *goredis.Client, prefix string) *RedisOverlays {
	if prefix == "" {
		prefix = "chart"
	}
	r := &RedisOverlays{
		client:  client,
		prefix:  prefix,
		breaker: NewBreaker(3, 10*time.Second),
	}
	r.breaker.OnStateChange = func(from, to BreakerState) {
		log.Printf("[redis-overlays] breaker %s -> %s", from, to)
	}
	return r
}

// Client returns the underlying client for health checks.
func (r *RedisOverlays) Client() *goredis.Client { return r.client }

// Key returns the key of an overlay kind for symbol.
func (r *RedisOverlays) Key(kind, symbol string) string {
	return r.prefix + ":" + kind + ":" + symbol
}

// UpdatesChannel returns the pub/sub channel announcing overlay changes.
func (r *RedisOverlays) UpdatesChannel(symbol string) string {
	return r.prefix + ":updates:" + symbol
}

// getJSON decodes the key into v. found is false for a missing key.
func (r *RedisOverlays) getJSON(ctx context.Context, key string, v any) (found bool, err error) {
	var data []byte
	err = r.breaker.Do(func() error {
		b, err := r.client.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisOverlays) ReadForecastInput(ctx context.Context, symbol string) (*model.ForecastRequest, error) {
	var v model.ForecastRequest
	if ok, err := r.getJSON(ctx, r.Key(KindForecastInput, symbol), &v); !ok {
		return nil, err
	}
	return &v, nil
}

func (r *RedisOverlays) ReadForecastPayload(ctx context.Context, symbol string) (*model.ForecastPayload, error) {
	var v model.ForecastPayload
	if ok, err := r.getJSON(ctx, r.Key(KindForecast, symbol), &v); !ok {
		return nil, err
	}
	return &v, nil
}

func (r *RedisOverlays) ReadMatch(ctx context.Context, symbol string) (*model.Match, error) {
	var v model.Match
	if ok, err := r.getJSON(ctx, r.Key(KindMatch, symbol), &v); !ok {
		return nil, err
	}
	return &v, nil
}

func (r *RedisOverlays) ReadDistribution(ctx context.Context, symbol string) (*model.DistributionSeries, error) {
	var v model.DistributionSeries
	if ok, err := r.getJSON(ctx, r.Key(KindDistribution, symbol), &v); !ok {
		return nil, err
	}
	return &v, nil
}

func (r *RedisOverlays) ReadPhases(ctx context.Context, symbol string) ([]model.PhaseZone, error) {
	var v []model.PhaseZone
	if ok, err := r.getJSON(ctx, r.Key(KindPhases, symbol), &v); !ok {
		return nil, err
	}
	return v, nil
}

// Put stores an overlay document and announces the change. ttl 0 keeps the
// key forever.
func (r *RedisOverlays) Put(ctx context.Context, kind, symbol string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.Key(kind, symbol), data, ttl)
	pipe.Publish(ctx, r.UpdatesChannel(symbol), kind)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put %s: %w", r.Key(kind, symbol), err)
	}
	return nil
}

// Watch signals on the returned channel whenever an overlay of symbol
// changes. Signals coalesce: a slow reader sees one pending signal. The
// channel is closed when ctx is done or the subscription breaks.
func (r *RedisOverlays) Watch(ctx context.Context, symbol string) (<-chan struct{}, error) {
	pubsub := r.client.Subscribe(ctx, r.UpdatesChannel(symbol))
	// Wait for confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.UpdatesChannel(symbol), err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close closes the Redis client.
func (r *RedisOverlays) Close() error {
	return r.client.Close()
}
