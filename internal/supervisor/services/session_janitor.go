// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package services

import (
	"context"
	"time"

	"github.com/tomtom215/panelhouse/internal/logging"
	"github.com/tomtom215/panelhouse/internal/metrics"
)

// SessionCleaner removes sessions idle since before cutoff.
//
// Satisfied by every auth.SessionStore.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// LockoutCleaner drops stale login lockout entries. Satisfied by *auth.Lockout.
type LockoutCleaner interface {
	Cleanup() int
}

// SessionJanitorConfig configures the janitor.
type SessionJanitorConfig struct {
	// Timeout is the session inactivity timeout. Sessions idle this long are removed.
	Timeout time.Duration

	// Interval is the time between sweeps. Default: 1m
	Interval time.Duration

	// Lockout is swept alongside sessions when set.
	Lockout LockoutCleaner

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// SessionJanitorService periodically deletes expired sessions and, when
// configured, stale lockout entries.
type SessionJanitorService struct {
	store  SessionCleaner
	config SessionJanitorConfig
	name   string
}

// NewSessionJanitorService creates a janitor for store.
func NewSessionJanitorService(store SessionCleaner, config SessionJanitorConfig) *SessionJanitorService {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &SessionJanitorService{
		store:  store,
		config: config,
		name:   "session-janitor",
	}
}

// Serve implements suture.Service. Sweep failures are logged and retried on
// the next tick.
func (s *SessionJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns the number of sessions removed.
func (s *SessionJanitorService) Sweep(ctx context.Context) int {
	cutoff := s.config.Clock().Add(-s.config.Timeout)

	removed, err := s.store.CleanupExpired(ctx, cutoff)
	if err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Session cleanup failed")
		return removed
	}
	if removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
		logging.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("Expired sessions removed")
	}

	if s.config.Lockout != nil {
		if dropped := s.config.Lockout.Cleanup(); dropped > 0 {
			logging.Debug().Int("dropped", dropped).Msg("Stale lockout entries dropped")
		}
	}
	return removed
}

// String names the service in supervisor events.
func (s *SessionJanitorService) String() string {
	return s.name
}
