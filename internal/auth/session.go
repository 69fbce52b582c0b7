// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

// Package auth implements admin sessions for the Panelhouse back-office:
// session records and their stores, client fingerprinting, the request guard,
// CSRF verification, and credential checks.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Session errors
var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the server-side admin session record.
type Session struct {
	ID            string    `json:"id"`
	AdminLoggedIn bool      `json:"admin_logged_in"`
	Username      string    `json:"username"`
	CSRFToken     string    `json:"csrf_token"`
	CSRFIssuedAt  time.Time `json:"csrf_issued_at"`
	LastActivity  time.Time `json:"last_activity"`
	Fingerprint   string    `json:"fingerprint"`
	CreatedAt     time.Time `json:"created_at"`
	RotatedAt     time.Time `json:"rotated_at"`
}

// IdleFor returns how long the session has been inactive at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

// ExpiresAt returns when the session dies if no further activity occurs.
func (s *Session) ExpiresAt(timeout time.Duration) time.Time {
	return s.LastActivity.Add(timeout)
}

// clone returns a copy that shares no memory with s.
func (s *Session) clone() *Session {
	c := *s
	return &c
}

// SessionStore persists admin sessions. Implementations must be safe for
// concurrent use; callers never mutate the returned records in place.
type SessionStore interface {
	// Get retrieves a session by ID. Returns ErrSessionNotFound when absent.
	Get(ctx context.Context, id string) (*Session, error)

	// Set inserts or replaces the session stored under session.ID.
	Set(ctx context.Context, session *Session) error

	// Destroy removes a session. Destroying a missing session is not an error.
	Destroy(ctx context.Context, id string) error

	// RegenerateID moves the session at oldID to a freshly generated ID and
	// returns the moved record. The old ID no longer resolves afterwards.
	RegenerateID(ctx context.Context, oldID string) (*Session, error)

	// CleanupExpired removes sessions whose last activity is before cutoff.
	CleanupExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// MemorySessionStore is an in-process SessionStore.
// Sessions are lost on restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
	}
}

// Get retrieves a session by ID.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.clone(), nil
}

// Set stores a copy of the session.
func (s *MemorySessionStore) Set(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("set session: empty session id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session.clone()
	return nil
}

// Destroy removes a session.
func (s *MemorySessionStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// RegenerateID moves a session to a new ID under a single lock.
func (s *MemorySessionStore) RegenerateID(_ context.Context, oldID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[oldID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	newID, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	for _, exists := s.sessions[newID]; exists; _, exists = s.sessions[newID] {
		if newID, err = generateSessionID(); err != nil {
			return nil, err
		}
	}

	moved := session.clone()
	moved.ID = newID
	delete(s.sessions, oldID)
	s.sessions[newID] = moved

	return moved.clone(), nil
}

// CleanupExpired removes sessions idle since before cutoff.
func (s *MemorySessionStore) CleanupExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Count returns the number of stored sessions.
func (s *MemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// generateSessionID returns 32 random bytes, hex encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// generateCSRFToken returns 32 random bytes, base64url encoded.
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
