// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"context"
	"fmt"
	"io"
	"time"
)

// SessionStoreType selects the session storage backend.
type SessionStoreType string

const (
	// SessionStoreMemory uses in-process storage (default, not persistent).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger persists sessions in an embedded BadgerDB.
	SessionStoreBadger SessionStoreType = "badger"

	// SessionStoreRedis shares sessions between instances through Redis.
	SessionStoreRedis SessionStoreType = "redis"
)

// StoreConfig holds backend selection for NewSessionStore.
type StoreConfig struct {
	Type        SessionStoreType
	Path        string
	Redis       RedisConfig
	RedisPrefix string
	// TTL bounds how long a record survives without being written.
	TTL time.Duration
	// Breaker guards the redis store. Zero values take DefaultBreakerConfig.
	Breaker BreakerConfig
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSessionStore opens the configured backend. The returned closer releases
// the underlying database or connection and must be called on shutdown.
func NewSessionStore(ctx context.Context, cfg StoreConfig) (SessionStore, io.Closer, error) {
	switch cfg.Type {
	case SessionStoreMemory, "":
		return NewMemorySessionStore(), nopCloser{}, nil

	case SessionStoreBadger:
		db, err := OpenBadgerDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return NewBadgerSessionStore(db, cfg.TTL), db, nil

	case SessionStoreRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store := NewRedisSessionStore(client, cfg.RedisPrefix, cfg.TTL)
		return NewBreakerSessionStore(store, cfg.Breaker), client, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Type)
	}
}
