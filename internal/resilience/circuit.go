package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown passes.
	BreakerOpen
	// BreakerHalfOpen lets one trial call through.
	BreakerHalfOpen
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

// ErrBreakerOpen is wrapped in a TransientError when a call is rejected.
var ErrBreakerOpen = eris.New("places service circuit is open")

// BreakerConfig controls when the breaker opens and how long it stays open.
type BreakerConfig struct {
	// Threshold is the number of consecutive transient failures that opens
	// the breaker.
	Threshold int
	Cooldown  time.Duration
	// OnStateChange is called with the lock held; keep it cheap.
	OnStateChange func(from, to BreakerState)
}

// NewBreakerConfig fills zero values with defaults (5 failures, 30s).
func NewBreakerConfig(threshold int, cooldownSecs int) BreakerConfig {
	cfg := BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}

// Breaker fails fast after repeated transient failures from one upstream.
// Only transient errors count; credential and not-found errors pass through
// without affecting state.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	now         func() time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// ExecuteVal runs fn unless the breaker is open, in which case it returns a
// TransientError wrapping ErrBreakerOpen without calling fn.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, NewTransientError(ErrBreakerOpen, 0)
	}

	val, err := fn(ctx)
	b.record(ctx, err)
	return val, err
}

// State reports the current state. An open breaker whose cooldown has passed
// reports half-open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return true
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.Cooldown {
		b.transition(BreakerHalfOpen)
		return true
	}
	return false
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Caller cancellation says nothing about upstream health.
	if err != nil && ctx.Err() != nil {
		return
	}

	if !IsTransient(err) {
		b.failures = 0
		if b.state == BreakerHalfOpen {
			b.transition(BreakerClosed)
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	case BreakerClosed:
		if b.failures >= b.cfg.Threshold {
			b.transition(BreakerOpen)
		}
	}
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
