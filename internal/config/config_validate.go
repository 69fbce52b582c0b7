// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package config

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	validLogFormats = map[string]bool{"json": true, "console": true}
	validStores     = map[string]bool{"memory": true, "badger": true, "redis": true}
	validSameSite   = map[string]bool{"lax": true, "strict": true, "none": true}
	validFormats    = map[string]bool{"jpeg": true, "jpg": true, "png": true, "webp": true}
	validModes      = map[string]bool{"cover": true, "contain": true}
	validAnchors    = map[string]bool{
		"top": true, "top_center": true, "center": true, "bottom_center": true, "bottom": true,
	}

	hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateAdmin(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !strings.HasPrefix(c.Server.LoginPath, "/") {
		return fmt.Errorf("LOGIN_PATH must be an absolute path, got %q", c.Server.LoginPath)
	}
	return nil
}

func (c *Config) validateSession() error {
	s := c.Session
	if s.Timeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if s.WarningLead <= 0 || s.WarningLead >= s.Timeout {
		return fmt.Errorf("SESSION_WARNING_LEAD must be positive and shorter than SESSION_TIMEOUT (%v)", s.Timeout)
	}
	if s.RotationInterval < 0 || s.CSRFTokenTTL < 0 {
		return fmt.Errorf("SESSION_ROTATION_INTERVAL and CSRF_TOKEN_TTL must not be negative")
	}
	if s.CleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if s.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}
	if !validSameSite[strings.ToLower(s.CookieSameSite)] {
		return fmt.Errorf("SESSION_COOKIE_SAMESITE must be one of: lax, strict, none")
	}
	if strings.EqualFold(s.CookieSameSite, "none") && !s.CookieSecure {
		return fmt.Errorf("SESSION_COOKIE_SAMESITE=none requires SESSION_COOKIE_SECURE=true")
	}
	if s.FingerprintIPv4Prefix < 0 || s.FingerprintIPv4Prefix > 32 {
		return fmt.Errorf("FINGERPRINT_IPV4_PREFIX must be between 0 and 32")
	}
	if s.FingerprintIPv6Prefix < 0 || s.FingerprintIPv6Prefix > 128 {
		return fmt.Errorf("FINGERPRINT_IPV6_PREFIX must be between 0 and 128")
	}
	if !validStores[s.Store] {
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger, redis")
	}
	if s.Store == "badger" && s.StorePath == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
	}
	if s.Store == "redis" && s.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when SESSION_STORE=redis")
	}
	return nil
}

func (c *Config) validateAdmin() error {
	a := c.Admin
	if a.Username == "" && len(a.Users) == 0 {
		return fmt.Errorf("ADMIN_USERNAME (or admin.users) is required")
	}
	if a.Username != "" && a.Password == "" && a.PasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required for %q", a.Username)
	}
	if a.Password != "" && len(a.Password) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	if a.LockoutMaxAttempts < 0 {
		return fmt.Errorf("ADMIN_LOCKOUT_MAX_ATTEMPTS must not be negative")
	}
	return nil
}

func (c *Config) validateImages() error {
	img := c.Images
	if img.SourceDir == "" || img.CacheDir == "" {
		return fmt.Errorf("IMAGES_SOURCE_DIR and IMAGES_CACHE_DIR are required")
	}
	if !hexColorPattern.MatchString(img.Background) {
		return fmt.Errorf("IMAGES_BACKGROUND must be a #RRGGBB color, got %q", img.Background)
	}
	if img.BatchWorkers < 1 {
		return fmt.Errorf("IMAGES_BATCH_WORKERS must be at least 1")
	}
	if img.MaxSourcePixels < 0 {
		return fmt.Errorf("IMAGES_MAX_SOURCE_PIXELS must not be negative")
	}
	if err := validatePreset("thumbnail", img.Thumbnail); err != nil {
		return err
	}
	return validatePreset("social", img.Social)
}

func validatePreset(name string, p PresetConfig) error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%s size must be positive, got %dx%d", name, p.Width, p.Height)
	}
	if !validFormats[strings.ToLower(p.Format)] {
		return fmt.Errorf("%s format must be one of: jpeg, png, webp", name)
	}
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("%s quality must be between 1 and 100", name)
	}
	if !validModes[p.Mode] {
		return fmt.Errorf("%s mode must be cover or contain", name)
	}
	if !validAnchors[p.Anchor] {
		return fmt.Errorf("%s anchor %q is not a known crop position", name, p.Anchor)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
