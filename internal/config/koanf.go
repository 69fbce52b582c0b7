// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/panelhouse/config.yaml",
	"/etc/panelhouse/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied.
// These are loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second, // batch generation can be slow
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			LoginPath:       "/admin/login",
		},
		Session: SessionConfig{
			Timeout:               600 * time.Second,
			WarningLead:           60 * time.Second,
			RotationInterval:      5 * time.Minute,
			CSRFTokenTTL:          2 * time.Hour,
			CleanupInterval:       time.Minute,
			CookieName:            "panelhouse_admin",
			CookiePath:            "/",
			CookieDomain:          "",
			CookieSecure:          true,
			CookieSameSite:        "lax",
			FingerprintIPv4Prefix: 24,
			FingerprintIPv6Prefix: 64,
			Store:                 "memory",
			StorePath:             "/data/sessions",
			RedisAddr:             "127.0.0.1:6379",
			RedisPrefix:           "panelhouse:session:",
		},
		Admin: AdminConfig{
			Username:           "",
			LockoutMaxAttempts: 5,
			LockoutDuration:    15 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimitReqs:      300,
			RateLimitWindow:    time.Minute,
			RateLimitDisabled:  false,
			LoginRateLimitReqs: 10,
			LoginRateWindow:    5 * time.Minute,
			CORSOrigins:        []string{},
		},
		Images: ImagesConfig{
			SourceDir:       "comics",
			CacheDir:        "images/cache",
			PublicPrefix:    "/images/cache",
			Background:      "#FFFFFF",
			BatchWorkers:    4,
			MaxSourcePixels: 50_000_000,
			Thumbnail: PresetConfig{
				Width:   187,
				Height:  250,
				Format:  "webp",
				Quality: 85,
				Mode:    "cover",
				Anchor:  "top",
			},
			Social: PresetConfig{
				Width:   1200,
				Height:  630,
				Format:  "jpeg",
				Quality: 90,
				Mode:    "cover",
				Anchor:  "center",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML file
//  3. Environment Variables: explicit mapping table, highest priority
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot pollute config.
var envMappings = map[string]string{
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"login_path":            "server.login_path",

	"session_timeout":           "session.timeout",
	"session_warning_lead":      "session.warning_lead",
	"session_rotation_interval": "session.rotation_interval",
	"csrf_token_ttl":            "session.csrf_token_ttl",
	"session_cleanup_interval":  "session.cleanup_interval",
	"session_cookie_name":       "session.cookie_name",
	"session_cookie_path":       "session.cookie_path",
	"session_cookie_domain":     "session.cookie_domain",
	"session_cookie_secure":     "session.cookie_secure",
	"session_cookie_samesite":   "session.cookie_samesite",
	"fingerprint_ipv4_prefix":   "session.fingerprint_ipv4_prefix",
	"fingerprint_ipv6_prefix":   "session.fingerprint_ipv6_prefix",
	"session_store":             "session.store",
	"session_store_path":        "session.store_path",
	"redis_addr":                "session.redis_addr",
	"redis_password":            "session.redis_password",
	"redis_db":                  "session.redis_db",
	"redis_prefix":              "session.redis_prefix",

	"admin_username":             "admin.username",
	"admin_password":             "admin.password",
	"admin_password_hash":        "admin.password_hash",
	"admin_lockout_max_attempts": "admin.lockout_max_attempts",
	"admin_lockout_duration":     "admin.lockout_duration",

	"rate_limit_requests":       "security.rate_limit_reqs",
	"rate_limit_window":         "security.rate_limit_window",
	"disable_rate_limit":        "security.rate_limit_disabled",
	"login_rate_limit_requests": "security.login_rate_limit_reqs",
	"login_rate_limit_window":   "security.login_rate_window",
	"cors_origins":              "security.cors_origins",

	"images_source_dir":        "images.source_dir",
	"images_cache_dir":         "images.cache_dir",
	"images_public_prefix":     "images.public_prefix",
	"images_background":        "images.background",
	"images_batch_workers":     "images.batch_workers",
	"images_max_source_pixels": "images.max_source_pixels",
	"thumbnail_width":          "images.thumbnail.width",
	"thumbnail_height":         "images.thumbnail.height",
	"thumbnail_format":         "images.thumbnail.format",
	"thumbnail_quality":        "images.thumbnail.quality",
	"social_width":             "images.social.width",
	"social_height":            "images.social.height",
	"social_format":            "images.social.format",
	"social_quality":           "images.social.quality",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - SESSION_TIMEOUT -> session.timeout
//   - THUMBNAIL_FORMAT -> images.thumbnail.format
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
