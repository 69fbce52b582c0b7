// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any unknown username or wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// bcryptCost matches the cost used when hashing configured passwords.
const bcryptCost = 12

// Credentials verifies admin usernames and passwords against bcrypt hashes.
type Credentials struct {
	users map[string][]byte
	// dummyHash is compared for unknown users so every attempt pays for one bcrypt check.
	dummyHash []byte
}

// NewCredentials builds a verifier from a username to bcrypt hash map.
func NewCredentials(hashes map[string]string) (*Credentials, error) {
	if len(hashes) == 0 {
		return nil, fmt.Errorf("at least one admin user is required")
	}

	users := make(map[string][]byte, len(hashes))
	for username, hash := range hashes {
		if username == "" {
			return nil, fmt.Errorf("admin username must not be empty")
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin %q: invalid bcrypt hash: %w", username, err)
		}
		users[username] = []byte(hash)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("panelhouse-dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash dummy password: %w", err)
	}

	return &Credentials{users: users, dummyHash: dummy}, nil
}

// HashPassword hashes a plaintext password for configuration.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks a login attempt. It returns the canonical username on success.
func (c *Credentials) Verify(username, password string) (string, error) {
	var (
		matchedName string
		matchedHash []byte
	)
	for name, hash := range c.users {
		if subtle.ConstantTimeCompare([]byte(name), []byte(username)) == 1 {
			matchedName, matchedHash = name, hash
		}
	}

	if matchedHash == nil {
		_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(matchedHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return matchedName, nil
}
