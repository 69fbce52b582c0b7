// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tomtom215/panelhouse/internal/api"
	"github.com/tomtom215/panelhouse/internal/assets"
	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/config"
	"github.com/tomtom215/panelhouse/internal/imaging"
	"github.com/tomtom215/panelhouse/internal/logging"
)

// openSessionStore opens the configured backend. Records expire from stores
// with native TTLs once they have been idle for the session timeout.
func openSessionStore(ctx context.Context, cfg *config.Config) (auth.SessionStore, io.Closer, error) {
	s := cfg.Session
	return auth.NewSessionStore(ctx, auth.StoreConfig{
		Type: auth.SessionStoreType(s.Store),
		Path: s.StorePath,
		Redis: auth.RedisConfig{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		},
		RedisPrefix: s.RedisPrefix,
		TTL:         s.Timeout,
	})
}

// buildCredentials collects admin accounts. A plaintext password is hashed
// here and never kept.
func buildCredentials(cfg *config.Config) (*auth.Credentials, error) {
	a := cfg.Admin
	hashes := make(map[string]string, len(a.Users)+1)
	for username, hash := range a.Users {
		hashes[username] = hash
	}

	if a.Username != "" {
		switch {
		case a.PasswordHash != "":
			hashes[a.Username] = a.PasswordHash
		case a.Password != "":
			hash, err := auth.HashPassword(a.Password)
			if err != nil {
				return nil, fmt.Errorf("admin %q: %w", a.Username, err)
			}
			hashes[a.Username] = hash
		}
	}

	return auth.NewCredentials(hashes)
}

// buildPresets parses the configured derivative presets.
func buildPresets(cfg *config.Config) (map[string]imaging.Preset, error) {
	specs := map[string]config.PresetConfig{
		imaging.PresetThumbnail: cfg.Images.Thumbnail,
		imaging.PresetSocial:    cfg.Images.Social,
	}

	presets := make(map[string]imaging.Preset, len(specs))
	for name, p := range specs {
		preset, err := imaging.NewPreset(name, imaging.PresetSpec{
			Width:   p.Width,
			Height:  p.Height,
			Format:  p.Format,
			Quality: p.Quality,
			Mode:    p.Mode,
			Anchor:  p.Anchor,
		})
		if err != nil {
			return nil, err
		}
		presets[name] = preset
	}
	return presets, nil
}

func guardConfig(cfg *config.Config) auth.GuardConfig {
	s := cfg.Session
	gc := auth.DefaultGuardConfig()
	gc.Timeout = s.Timeout
	gc.WarningLead = s.WarningLead
	gc.RotationInterval = s.RotationInterval
	gc.CSRFTokenTTL = s.CSRFTokenTTL
	if cfg.Server.LoginPath != "" {
		gc.LoginPath = cfg.Server.LoginPath
	}
	gc.Cookie = auth.CookieConfig{
		Name:     s.CookieName,
		Path:     s.CookiePath,
		Domain:   s.CookieDomain,
		Secure:   s.CookieSecure,
		SameSite: auth.ParseSameSite(s.CookieSameSite),
	}
	gc.Fingerprint = auth.Fingerprinter{
		IPv4Prefix: s.FingerprintIPv4Prefix,
		IPv6Prefix: s.FingerprintIPv6Prefix,
	}
	return gc
}

func lockoutConfig(cfg *config.Config) auth.LockoutConfig {
	lc := auth.DefaultLockoutConfig()
	lc.MaxAttempts = cfg.Admin.LockoutMaxAttempts
	if cfg.Admin.LockoutDuration > 0 {
		lc.Duration = cfg.Admin.LockoutDuration
	}
	return lc
}

func middlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mc := api.DefaultChiMiddlewareConfig()
	sec := cfg.Security
	mc.CORSAllowedOrigins = sec.CORSOrigins
	mc.RateLimitDisabled = sec.RateLimitDisabled
	if sec.RateLimitReqs > 0 {
		mc.RateLimitRequests = sec.RateLimitReqs
	}
	if sec.RateLimitWindow > 0 {
		mc.RateLimitWindow = sec.RateLimitWindow
	}
	if sec.LoginRateLimitReqs > 0 {
		mc.LoginRateLimitRequests = sec.LoginRateLimitReqs
	}
	if sec.LoginRateWindow > 0 {
		mc.LoginRateLimitWindow = sec.LoginRateWindow
	}
	return mc
}

// components is everything main needs beyond the config.
type components struct {
	store   auth.SessionStore
	closer  io.Closer
	lockout *auth.Lockout
	handler *api.Handler
	routes  api.RouterConfig
}

// buildComponents wires the application. The caller closes c.closer.
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	creds, err := buildCredentials(cfg)
	if err != nil {
		return nil, fmt.Errorf("admin credentials: %w", err)
	}

	presets, err := buildPresets(cfg)
	if err != nil {
		return nil, fmt.Errorf("image presets: %w", err)
	}

	background, err := imaging.ParseHexColor(cfg.Images.Background)
	if err != nil {
		return nil, fmt.Errorf("images.background: %w", err)
	}

	catalog := assets.NewCatalog(assets.Config{
		SourceDir:    cfg.Images.SourceDir,
		CacheDir:     cfg.Images.CacheDir,
		PublicPrefix: cfg.Images.PublicPrefix,
	})

	// Image endpoints report a broken layout per request; startup only warns.
	if err := catalog.CheckLayout(imaging.PresetThumbnail, imaging.PresetSocial); err != nil {
		logging.Warn().Err(err).
			Str("source_dir", cfg.Images.SourceDir).
			Str("cache_dir", cfg.Images.CacheDir).
			Msg("Image directories are not usable")
	}

	store, closer, err := openSessionStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	lockout := auth.NewLockout(lockoutConfig(cfg))
	handler, err := api.NewHandler(api.Dependencies{
		Guard:        auth.NewGuard(store, guardConfig(cfg)),
		Credentials:  creds,
		Lockout:      lockout,
		Catalog:      catalog,
		Generator:    imaging.NewGenerator(background, imaging.WithMaxPixels(cfg.Images.MaxSourcePixels)),
		Presets:      presets,
		BatchWorkers: cfg.Images.BatchWorkers,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	return &components{
		store:   store,
		closer:  closer,
		lockout: lockout,
		handler: handler,
		routes: api.RouterConfig{
			Middleware:  middlewareConfig(cfg),
			MediaPrefix: cfg.Images.PublicPrefix,
			MediaDir:    cfg.Images.CacheDir,
		},
	}, nil
}
