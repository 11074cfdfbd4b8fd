// Package circuitbreaker implements the three-state breaker the LLM Gateway
// uses to stop calling a model that is currently failing. The state machine
// is process-local and mutex-protected, the same shape goa-ai uses for its
// other in-memory stores: a small struct guarded by a sync.Mutex.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is one of the three breaker states.
type State string

const (
	// StateClosed means calls pass through normally.
	StateClosed State = "closed"
	// StateOpen means calls are rejected without reaching the provider.
	StateOpen State = "open"
	// StateHalfOpen means a single probe call is allowed through to decide
	// whether to close or re-open.
	StateHalfOpen State = "half_open"
)

// Config controls when the breaker opens and how long it stays open before
// probing.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int
	// OpenDuration is how long the breaker stays open before allowing a
	// half-open probe.
	OpenDuration time.Duration
}

// DefaultConfig opens after 5 consecutive failures and probes again after
// 30 seconds.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, OpenDuration: 30 * time.Second}
}

// Breaker is a single named circuit. The LLM Gateway keeps one Breaker per
// requested effort level; each effort level selects a model class, so an
// outage on one model class does not throttle calls routed to another.
type Breaker struct {
	cfg Config

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	halfOpenInUse   bool
}

// New constructs a Breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a call should be attempted right now. When it
// returns true for a half-open breaker, the caller has claimed the single
// probe slot and must call Success or Failure to release it.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.OpenDuration {
			return false
		}
		b.state = StateHalfOpen
		b.halfOpenInUse = true
		return true
	case StateHalfOpen:
		if b.halfOpenInUse {
			return false
		}
		b.halfOpenInUse = true
		return true
	default:
		return true
	}
}

// Success records a successful call, closing the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFail = 0
	b.state = StateClosed
	b.halfOpenInUse = false
}

// Failure records a failed call, opening the breaker once the consecutive
// failure threshold is reached, or immediately re-opening from half-open.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halfOpenInUse = false
	if b.state == StateHalfOpen {
		b.open()
		return
	}
	b.consecutiveFail++
	if b.consecutiveFail >= b.cfg.FailureThreshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.consecutiveFail = 0
}

// State reports the current breaker state, for telemetry and tests.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Registry keeps one Breaker per key (the Gateway uses the effort level),
// creating it lazily on first use.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry constructs a Registry whose breakers all share cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns the Breaker for key, creating it on first use.
func (r *Registry) For(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = New(r.cfg)
		r.breakers[key] = b
	}
	return b
}
