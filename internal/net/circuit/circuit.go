// Package circuit wraps sony/gobreaker so every outbound market-data-
// provider call goes through a circuit breaker instead of hammering a
// failing upstream (spec §4.3 "Failure model").
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrRequestTimeout is returned when a call exceeds Config.RequestTimeout.
var ErrRequestTimeout = errors.New("circuit: request timeout")

// State mirrors gobreaker's three states under a name this codebase
// controls (kept stable even if the underlying library's enum changes).
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Config configures one breaker instance.
type Config struct {
	Name             string
	FailureThreshold uint32        // consecutive failures to trip open
	SuccessThreshold uint32        // consecutive successes to close from half-open
	Timeout          time.Duration // how long to stay open before probing
	RequestTimeout   time.Duration // per-call deadline enforced on fn
}

// Breaker wraps a gobreaker.CircuitBreaker with a context-deadline-aware
// Call, matching the shape the ingestion engine drives its MDP calls
// through.
type Breaker struct {
	cb             *gobreaker.CircuitBreaker
	requestTimeout time.Duration

	mu    sync.Mutex
	trips int64
}

// NewBreaker builds a breaker from Config.
func NewBreaker(cfg Config) *Breaker {
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.SuccessThreshold,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Breaker{
		cb:             gobreaker.NewCircuitBreaker(st),
		requestTimeout: cfg.RequestTimeout,
	}
}

// Call runs fn if the breaker allows it, enforcing RequestTimeout via ctx.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	timeoutCtx := ctx
	var cancel context.CancelFunc
	if b.requestTimeout > 0 {
		timeoutCtx, cancel = context.WithTimeout(ctx, b.requestTimeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (any, error) {
		done := make(chan error, 1)
		go func() { done <- fn(timeoutCtx) }()
		select {
		case err := <-done:
			return nil, err
		case <-timeoutCtx.Done():
			return nil, ErrRequestTimeout
		}
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.mu.Lock()
		b.trips++
		b.mu.Unlock()
	}
	return err
}

// State reports the breaker's current state.
func (b *Breaker) State() State { return fromGobreaker(b.cb.State()) }

// Manager owns one breaker per named upstream (e.g. per MDP provider or
// per host), so a slow/failing provider never affects another.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      func(name string) Config
}

// NewManager builds a Manager that lazily constructs a breaker per name
// using cfgFor.
func NewManager(cfgFor func(name string) Config) *Manager {
	return &Manager{breakers: make(map[string]*Breaker), cfg: cfgFor}
}

func (m *Manager) get(name string) *Breaker {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if ok {
		return b
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	b = NewBreaker(m.cfg(name))
	m.breakers[name] = b
	return b
}

// Call runs fn through the named breaker, creating it on first use.
func (m *Manager) Call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return m.get(name).Call(ctx, fn)
}

// State reports the state of a provider's breaker, "closed" if never used.
func (m *Manager) State(name string) State {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if !ok {
		return StateClosed
	}
	return b.State()
}

// UnhealthyProviders lists every provider whose breaker is not closed.
func (m *Manager) UnhealthyProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var unhealthy []string
	for name, b := range m.breakers {
		if s := b.State(); s != StateClosed {
			unhealthy = append(unhealthy, fmt.Sprintf("%s (state: %s)", name, s))
		}
	}
	return unhealthy
}
