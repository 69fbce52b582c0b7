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

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// maxRegenerateRetries bounds optimistic-lock retries in RegenerateID.
const maxRegenerateRetries = 3

// RedisSessionStore implements SessionStore on Redis, for deployments that
// run more than one admin instance. Keys expire after the inactivity timeout.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisConfig holds connection settings for NewRedisClient.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSessionStore) key(id string) string {
	return s.prefix + id
}

// Get retrieves a session by ID.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Set inserts or replaces a session and resets its key TTL.
func (s *RedisSessionStore) Set(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("set session: empty session id")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Destroy removes a session by ID.
func (s *RedisSessionStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RegenerateID moves a session to a new key in a WATCH/MULTI transaction.
func (s *RedisSessionStore) RegenerateID(ctx context.Context, oldID string) (*Session, error) {
	oldKey := s.key(oldID)

	for attempt := 0; attempt < maxRegenerateRetries; attempt++ {
		var moved *Session

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, oldKey).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}

			var session Session
			if err := json.Unmarshal(data, &session); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}

			newID, err := generateSessionID()
			if err != nil {
				return err
			}
			session.ID = newID

			encoded, err := json.Marshal(&session)
			if err != nil {
				return fmt.Errorf("marshal session: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.key(newID), encoded, s.ttl)
				pipe.Del(ctx, oldKey)
				return nil
			})
			if err != nil {
				return err
			}
			moved = &session
			return nil
		}, oldKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return moved, nil
	}

	return nil, fmt.Errorf("regenerate session id: too much contention on %s", oldKey)
}

// CleanupExpired removes sessions idle since before cutoff. Key TTLs already
// cover the common case; this catches records written with a longer TTL.
func (s *RedisSessionStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return count, fmt.Errorf("get session %s: %w", key, err)
		}

		var session Session
		if err := json.Unmarshal(data, &session); err == nil && !session.LastActivity.Before(cutoff) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return count, fmt.Errorf("delete session %s: %w", key, err)
		}
		count++
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("scan sessions: %w", err)
	}
	return count, nil
}
