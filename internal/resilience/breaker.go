// Package resilience guards calls to reference datasets and the road
// network provider with circuit breakers and bounded retries.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the position of a Breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the cool-down elapses.
	Open
	// HalfOpen lets probe calls through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the upstream when its breaker is open.
var ErrOpen = eris.New("resilience: upstream circuit open")

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker. Default 5.
	FailureThreshold int

	// Cooldown is how long an open breaker rejects calls. Default 30s.
	Cooldown time.Duration

	// Probes successful half-open calls close the breaker. Default 1.
	Probes int

	// Counts reports whether err is an upstream failure. Nil counts every
	// error except caller cancellation.
	Counts func(err error) bool

	// OnChange observes state transitions.
	OnChange func(name string, from, to State)
}

// DefaultBreakerConfig returns the defaults used when config leaves values unset.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		Probes:           1,
	}
}

// Breaker trips after repeated upstream failures so a failing dataset is
// not hammered by every request.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	successes int

	now func() time.Time
}

// NewBreaker creates a closed breaker for the named upstream.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = def.Probes
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the upstream name.
func (b *Breaker) Name() string { return b.name }

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// Call runs fn through b and returns its value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// State returns the current state, reporting HalfOpen once the cool-down
// of an open breaker has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.successes = 0
	if b.state != Closed {
		b.moveTo(Closed)
	}
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.moveTo(HalfOpen)
		return nil
	}
	return eris.Wrapf(ErrOpen, "%s", b.name)
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := b.cfg.Counts
	if counts == nil {
		counts = countsAsFailure
	}

	if err == nil || !counts(err) {
		switch b.state {
		case HalfOpen:
			b.successes++
			if b.successes >= b.cfg.Probes {
				b.failures = 0
				b.successes = 0
				b.moveTo(Closed)
			}
		case Closed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch b.state {
	case Closed:
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.moveTo(Open)
		}
	case HalfOpen:
		b.successes = 0
		b.openedAt = b.now()
		b.moveTo(Open)
	}
}

func (b *Breaker) moveTo(to State) {
	from := b.state
	b.state = to
	zap.L().Warn("upstream circuit state changed",
		zap.String("upstream", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(b.name, from, to)
	}
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Breakers holds one Breaker per upstream name.
type Breakers struct {
	cfg BreakerConfig

	mu  sync.Mutex
	set map[string]*Breaker
}

// NewBreakers creates an empty registry; breakers share cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, set: make(map[string]*Breaker)}
}

// For returns the breaker for name, creating it on first use.
func (r *Breakers) For(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.set[name]
	if !ok {
		b = NewBreaker(name, r.cfg)
		r.set[name] = b
	}
	return b
}

// States snapshots every breaker's state, for the health endpoint.
func (r *Breakers) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.set))
	for name, b := range r.set {
		out[name] = b.State().String()
	}
	return out
}
