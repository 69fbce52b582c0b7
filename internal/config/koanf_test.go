// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setMinimalAdminEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ADMIN_USERNAME", "editor")
	t.Setenv("ADMIN_PASSWORD", "correct-horse-battery")
}

// TestDefaultConfig verifies that defaultConfig() returns the documented defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Session.Timeout != 600*time.Second {
		t.Errorf("Session.Timeout = %v, want 600s", cfg.Session.Timeout)
	}
	if cfg.Session.WarningLead != 60*time.Second {
		t.Errorf("Session.WarningLead = %v, want 60s", cfg.Session.WarningLead)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("Session.Store = %q, want memory", cfg.Session.Store)
	}
	if !cfg.Session.CookieSecure {
		t.Error("Session.CookieSecure should default to true")
	}
	if cfg.Images.Thumbnail.Width != 187 || cfg.Images.Thumbnail.Height != 250 {
		t.Errorf("thumbnail = %dx%d, want 187x250", cfg.Images.Thumbnail.Width, cfg.Images.Thumbnail.Height)
	}
	if cfg.Images.Social.Width != 1200 || cfg.Images.Social.Height != 630 {
		t.Errorf("social = %dx%d, want 1200x630", cfg.Images.Social.Width, cfg.Images.Social.Height)
	}
	if cfg.Server.LoginPath != "/admin/login" {
		t.Errorf("Server.LoginPath = %q, want /admin/login", cfg.Server.LoginPath)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	setMinimalAdminEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_TIMEOUT", "15m")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CORS_ORIGINS", "https://comic.example, https://admin.example")
	t.Setenv("THUMBNAIL_FORMAT", "png")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Session.Timeout != 15*time.Minute {
		t.Errorf("Session.Timeout = %v, want 15m", cfg.Session.Timeout)
	}
	if cfg.Session.Store != "redis" || cfg.Session.RedisAddr != "redis:6379" {
		t.Errorf("redis store not applied: %+v", cfg.Session)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://admin.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Images.Thumbnail.Format != "png" {
		t.Errorf("Thumbnail.Format = %q, want png", cfg.Images.Thumbnail.Format)
	}
	// Untouched defaults survive
	if cfg.Images.Thumbnail.Width != 187 {
		t.Errorf("Thumbnail.Width = %d, want 187", cfg.Images.Thumbnail.Width)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8181
session:
  timeout: 20m
  cookie_name: scans_admin
admin:
  users:
    translator: "$2a$12$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0"
images:
  source_dir: /srv/comics
  social:
    anchor: top_center
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Session.CookieName != "scans_admin" {
		t.Errorf("Session.CookieName = %q", cfg.Session.CookieName)
	}
	if _, ok := cfg.Admin.Users["translator"]; !ok {
		t.Errorf("Admin.Users = %v, want translator entry", cfg.Admin.Users)
	}
	if cfg.Images.SourceDir != "/srv/comics" {
		t.Errorf("Images.SourceDir = %q", cfg.Images.SourceDir)
	}
	if cfg.Images.Social.Anchor != "top_center" || cfg.Images.Social.Width != 1200 {
		t.Errorf("Images.Social = %+v", cfg.Images.Social)
	}
}

func TestLoadWithKoanf_ValidationFailure(t *testing.T) {
	setMinimalAdminEnv(t)
	t.Setenv("SESSION_WARNING_LEAD", "20m")

	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("expected validation error when warning lead exceeds timeout")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"SESSION_TIMEOUT", "session.timeout"},
		{"SOCIAL_QUALITY", "images.social.quality"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
