// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Admin.Username = "editor"
	cfg.Admin.Password = "correct-horse-battery"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with admin", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"relative login path", func(c *Config) { c.Server.LoginPath = "login" }, "LOGIN_PATH"},
		{"zero timeout", func(c *Config) { c.Session.Timeout = 0 }, "SESSION_TIMEOUT"},
		{"warning longer than timeout", func(c *Config) { c.Session.WarningLead = time.Hour }, "SESSION_WARNING_LEAD"},
		{"unknown store", func(c *Config) { c.Session.Store = "memcached" }, "SESSION_STORE"},
		{"badger without path", func(c *Config) { c.Session.Store = "badger"; c.Session.StorePath = "" }, "SESSION_STORE_PATH"},
		{"samesite none insecure", func(c *Config) {
			c.Session.CookieSameSite = "none"
			c.Session.CookieSecure = false
		}, "SESSION_COOKIE_SECURE"},
		{"no admin", func(c *Config) { c.Admin.Username = ""; c.Admin.Password = "" }, "ADMIN_USERNAME"},
		{"short password", func(c *Config) { c.Admin.Password = "short" }, "ADMIN_PASSWORD"},
		{"hash only", func(c *Config) { c.Admin.Password = ""; c.Admin.PasswordHash = "$2a$12$x" }, ""},
		{"bad background", func(c *Config) { c.Images.Background = "white" }, "IMAGES_BACKGROUND"},
		{"bad preset size", func(c *Config) { c.Images.Thumbnail.Width = 0 }, "thumbnail size"},
		{"bad preset format", func(c *Config) { c.Images.Social.Format = "gif" }, "social format"},
		{"bad preset anchor", func(c *Config) { c.Images.Social.Anchor = "middle" }, "social anchor"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
