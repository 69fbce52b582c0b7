// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

// Package config loads the Panelhouse configuration from defaults, an optional
// YAML file and environment variables (Koanf v2).
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Session  SessionConfig  `koanf:"session"`
	Admin    AdminConfig    `koanf:"admin"`
	Security SecurityConfig `koanf:"security"`
	Images   ImagesConfig   `koanf:"images"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// LoginPath is where unauthenticated admin requests are sent.
	LoginPath string `koanf:"login_path"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SessionConfig holds admin session and cookie settings.
type SessionConfig struct {
	// Timeout is the inactivity window after which a session is dead.
	Timeout time.Duration `koanf:"timeout"`
	// WarningLead is how long before expiry the client shows a warning.
	WarningLead time.Duration `koanf:"warning_lead"`
	// RotationInterval is how often the session id is regenerated.
	RotationInterval time.Duration `koanf:"rotation_interval"`
	// CSRFTokenTTL is the age after which the CSRF token is regenerated on page loads.
	CSRFTokenTTL time.Duration `koanf:"csrf_token_ttl"`
	// CleanupInterval is how often expired sessions are garbage collected.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	CookieName     string `koanf:"cookie_name"`
	CookiePath     string `koanf:"cookie_path"`
	CookieDomain   string `koanf:"cookie_domain"`
	CookieSecure   bool   `koanf:"cookie_secure"`
	CookieSameSite string `koanf:"cookie_samesite"`

	// FingerprintIPv4Prefix and FingerprintIPv6Prefix select the subnet bound into the fingerprint.
	FingerprintIPv4Prefix int `koanf:"fingerprint_ipv4_prefix"`
	FingerprintIPv6Prefix int `koanf:"fingerprint_ipv6_prefix"`

	// Store is one of memory, badger, redis.
	Store         string `koanf:"store"`
	StorePath     string `koanf:"store_path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// AdminConfig holds admin credentials and login lockout settings.
type AdminConfig struct {
	Username string `koanf:"username"`
	// Password is hashed with bcrypt at startup; prefer PasswordHash.
	Password     string `koanf:"password"`
	PasswordHash string `koanf:"password_hash"`
	// Users maps additional usernames to bcrypt hashes (YAML only).
	Users map[string]string `koanf:"users"`

	LockoutMaxAttempts int           `koanf:"lockout_max_attempts"`
	LockoutDuration    time.Duration `koanf:"lockout_duration"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	RateLimitReqs      int           `koanf:"rate_limit_reqs"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled  bool          `koanf:"rate_limit_disabled"`
	LoginRateLimitReqs int           `koanf:"login_rate_limit_reqs"`
	LoginRateWindow    time.Duration `koanf:"login_rate_window"`
	CORSOrigins        []string      `koanf:"cors_origins"`
}

// ImagesConfig holds image derivative settings.
type ImagesConfig struct {
	SourceDir    string `koanf:"source_dir"`
	CacheDir     string `koanf:"cache_dir"`
	PublicPrefix string `koanf:"public_prefix"`
	// Background is the contain-mode padding color as #RRGGBB.
	Background   string `koanf:"background"`
	BatchWorkers int    `koanf:"batch_workers"`
	// MaxSourcePixels rejects sources larger than width*height before decoding.
	MaxSourcePixels int64        `koanf:"max_source_pixels"`
	Thumbnail       PresetConfig `koanf:"thumbnail"`
	Social          PresetConfig `koanf:"social"`
}

// PresetConfig describes one derivative size.
type PresetConfig struct {
	Width   int    `koanf:"width"`
	Height  int    `koanf:"height"`
	Format  string `koanf:"format"`
	Quality int    `koanf:"quality"`
	Mode    string `koanf:"mode"`
	Anchor  string `koanf:"anchor"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration using the layered Koanf loader.
func Load() (*Config, error) {
	cfg, err := LoadWithKoanf()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
