// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/panelhouse/internal/logging"
)

const sessionKeyPrefix = "session:"

// BadgerSessionStore implements SessionStore on BadgerDB so admin sessions
// survive restarts. Entries carry a TTL equal to the inactivity timeout, so
// Badger drops dead sessions even if the janitor never runs.
type BadgerSessionStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerSessionStore creates a BadgerDB-backed session store.
// A ttl of zero stores entries without expiry.
func NewBadgerSessionStore(db *badger.DB, ttl time.Duration) *BadgerSessionStore {
	return &BadgerSessionStore{db: db, ttl: ttl}
}

// OpenBadgerDB opens a Badger database at path with logs routed to zerolog.
func OpenBadgerDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(newBadgerLogger())
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session database %s: %w", path, err)
	}
	return db, nil
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

func (s *BadgerSessionStore) entry(session *Session) (*badger.Entry, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	e := badger.NewEntry(sessionKey(session.ID), data)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e, nil
}

func readSession(txn *badger.Txn, id string) (*Session, error) {
	item, err := txn.Get(sessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &session)
	}); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Get retrieves a session by ID.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	var session *Session
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		session, err = readSession(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Set inserts or replaces a session.
func (s *BadgerSessionStore) Set(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("set session: empty session id")
	}
	e, err := s.entry(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

// Destroy removes a session by ID.
func (s *BadgerSessionStore) Destroy(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(sessionKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// RegenerateID moves a session to a new key inside one transaction.
func (s *BadgerSessionStore) RegenerateID(_ context.Context, oldID string) (*Session, error) {
	var moved *Session
	err := s.db.Update(func(txn *badger.Txn) error {
		session, err := readSession(txn, oldID)
		if err != nil {
			return err
		}

		newID, err := generateSessionID()
		if err != nil {
			return err
		}
		session.ID = newID

		e, err := s.entry(session)
		if err != nil {
			return err
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set rotated session: %w", err)
		}
		if err := txn.Delete(sessionKey(oldID)); err != nil {
			return fmt.Errorf("delete old session: %w", err)
		}
		moved = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// CleanupExpired removes sessions idle since before cutoff.
func (s *BadgerSessionStore) CleanupExpired(_ context.Context, cutoff time.Time) (int, error) {
	var expired [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var session Session
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			}); err != nil {
				// Undecodable records can never authenticate; collect them too.
				expired = append(expired, item.KeyCopy(nil))
				continue
			}
			if session.LastActivity.Before(cutoff) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	if len(expired) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete expired session: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush expired sessions: %w", err)
	}

	return len(expired), nil
}

// Count returns the number of stored sessions.
func (s *BadgerSessionStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// badgerLogger adapts Badger's logger interface to zerolog.
type badgerLogger struct {
	component string
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{component: "badger"}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", l.component).Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", l.component).Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", l.component).Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", l.component).Msgf(format, args...)
}
