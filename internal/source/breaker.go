package source

import (
	"context"
	"errors"
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = 0 // reads pass through
	BreakerOpen     BreakerState = 1 // reads fail fast with ErrUnavailable
	BreakerHalfOpen BreakerState = 2 // one probe read allowed
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("source unavailable")

// Breaker stops hammering an overlay source that keeps failing. After
// maxFailures consecutive failures it opens for resetTimeout, then lets one
// probe through: success closes it, failure reopens it. Cancellation by the
// caller does not count as a failure.
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time

	OnStateChange func(from, to BreakerState)
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Breaker{maxFailures: maxFailures, resetTimeout: resetTimeout}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.state == BreakerOpen {
		if time.Since(b.openedAt) <= b.resetTimeout {
			b.mu.Unlock()
			return ErrUnavailable
		}
		b.transition(BreakerHalfOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
			b.openedAt = time.Now()
			b.transition(BreakerOpen)
		}
		return err
	}
	if b.state == BreakerHalfOpen && err == nil {
		b.transition(BreakerClosed)
	}
	if err == nil {
		b.failures = 0
	}
	return err
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == BreakerClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
