// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/panelhouse/internal/logging"
	"github.com/tomtom215/panelhouse/internal/metrics"
)

// BreakerConfig configures the circuit breaker in front of a remote store.
type BreakerConfig struct {
	// Name labels metrics and logs. Default: "session-store"
	Name string

	// ConsecutiveFailures opens the circuit. Default: 5
	ConsecutiveFailures uint32

	// Timeout is how long the circuit stays open before a trial call. Default: 10s
	Timeout time.Duration

	// MaxRequests is the number of trial calls allowed while half-open. Default: 1
	MaxRequests uint32
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "session-store",
		ConsecutiveFailures: 5,
		Timeout:             10 * time.Second,
		MaxRequests:         1,
	}
}

// BreakerSessionStore fails fast while its backend is down. Open-circuit
// errors reach the guard like any other store error and become 503s, so
// requests do not each wait out the Redis dial and read timeouts.
type BreakerSessionStore struct {
	next SessionStore
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerSessionStore wraps next. Zero config fields take the
// DefaultBreakerConfig values.
func NewBreakerSessionStore(next SessionStore, config BreakerConfig) *BreakerSessionStore {
	defaults := DefaultBreakerConfig()
	if config.Name == "" {
		config.Name = defaults.Name
	}
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = defaults.ConsecutiveFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	metrics.SessionStoreBreakerState.WithLabelValues(config.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		IsSuccessful: isBackendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Session store circuit breaker state change")
			metrics.SessionStoreBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.SessionStoreBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerSessionStore{next: next, cb: cb, name: config.Name}
}

// isBackendHealthy reports whether err leaves the backend's health
// unchanged. Missing sessions and callers that went away are not outages.
func isBackendHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, context.Canceled)
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the current breaker state.
func (s *BreakerSessionStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerSessionStore) execute(fn func() (any, error)) (any, error) {
	result, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.SessionStoreBreakerRejections.WithLabelValues(s.name).Inc()
	}
	return result, err
}

func (s *BreakerSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	session, _ := result.(*Session)
	return session, nil
}

func (s *BreakerSessionStore) Set(ctx context.Context, session *Session) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Set(ctx, session)
	})
	return err
}

func (s *BreakerSessionStore) Destroy(ctx context.Context, id string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Destroy(ctx, id)
	})
	return err
}

func (s *BreakerSessionStore) RegenerateID(ctx context.Context, oldID string) (*Session, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.RegenerateID(ctx, oldID)
	})
	if err != nil {
		return nil, err
	}
	session, _ := result.(*Session)
	return session, nil
}

func (s *BreakerSessionStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.CleanupExpired(ctx, cutoff)
	})
	if err != nil {
		return 0, err
	}
	removed, _ := result.(int)
	return removed, nil
}
