// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/panelhouse/internal/logging"
)

// ErrAccountLocked is returned while a username or client IP is locked out.
var ErrAccountLocked = errors.New("too many failed login attempts")

// LockoutConfig holds configuration for login lockout.
type LockoutConfig struct {
	// MaxAttempts is the number of failures before lockout. Zero disables lockout.
	MaxAttempts int

	// Duration is how long a subject stays locked.
	Duration time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultLockoutConfig returns the standard lockout settings.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts: 5,
		Duration:    15 * time.Minute,
		Clock:       time.Now,
	}
}

// lockoutEntry tracks failures for one subject.
type lockoutEntry struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// Lockout throttles repeated failed logins per username and per client IP.
type Lockout struct {
	mu      sync.Mutex
	config  LockoutConfig
	entries map[string]*lockoutEntry
}

// NewLockout creates an in-memory lockout tracker.
func NewLockout(config LockoutConfig) *Lockout {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Duration <= 0 {
		config.Duration = DefaultLockoutConfig().Duration
	}
	return &Lockout{
		config:  config,
		entries: make(map[string]*lockoutEntry),
	}
}

func ipSubject(ip string) string {
	return "ip:" + ip
}

// Check returns ErrAccountLocked and the time remaining when either the
// username or the IP is locked.
func (l *Lockout) Check(username, ip string) (time.Duration, error) {
	if l.config.MaxAttempts <= 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Clock()
	var remaining time.Duration
	for _, subject := range []string{username, ipSubject(ip)} {
		entry, ok := l.entries[subject]
		if !ok {
			continue
		}
		if left := entry.lockedUntil.Sub(now); left > remaining {
			remaining = left
		}
	}
	if remaining > 0 {
		return remaining, ErrAccountLocked
	}
	return 0, nil
}

// RecordFailure counts a failed attempt and reports whether it triggered a lockout.
func (l *Lockout) RecordFailure(username, ip string) bool {
	if l.config.MaxAttempts <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Clock()
	locked := false
	for _, subject := range []string{username, ipSubject(ip)} {
		entry, ok := l.entries[subject]
		if !ok {
			entry = &lockoutEntry{}
			l.entries[subject] = entry
		}

		// Failures older than one lockout window no longer count.
		if now.Sub(entry.lastFailure) > l.config.Duration {
			entry.failures = 0
		}
		entry.failures++
		entry.lastFailure = now

		if entry.failures >= l.config.MaxAttempts {
			entry.lockedUntil = now.Add(l.config.Duration)
			entry.failures = 0
			locked = true

			logging.Warn().
				Str("subject", logging.SanitizeUsername(subject)).
				Dur("duration", l.config.Duration).
				Msg("Login locked")
		}
	}
	return locked
}

// RecordSuccess clears the failure history for username and ip.
func (l *Lockout) RecordSuccess(username, ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, username)
	delete(l.entries, ipSubject(ip))
}

// Cleanup drops entries that are neither locked nor holding recent failures.
func (l *Lockout) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Clock()
	removed := 0
	for subject, entry := range l.entries {
		if now.After(entry.lockedUntil) && now.Sub(entry.lastFailure) > l.config.Duration {
			delete(l.entries, subject)
			removed++
		}
	}
	return removed
}
