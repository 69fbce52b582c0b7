// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

// Package main is the entry point for the Panelhouse admin server.
//
// Panelhouse publishes fan-translated webcomics. This binary serves the
// back-office: admin login with inactivity-limited sessions, the keep-alive
// endpoint used by the admin pages, and on-demand generation of thumbnail and
// social preview derivatives.
//
// # Startup
//
//  1. Configuration: defaults, then config.yaml, then environment (Koanf v2)
//  2. Logging: zerolog, JSON or console
//  3. Session store: memory, BadgerDB or Redis
//  4. Credentials, lockout, image catalog, generator and presets
//  5. Supervisor tree: HTTP server and session janitor
//
// # Configuration
//
// Common environment variables:
//
//	ADMIN_USERNAME=admin
//	ADMIN_PASSWORD_HASH='$2a$12$...'
//	SESSION_STORE=badger SESSION_STORE_PATH=/var/lib/panelhouse/sessions
//	IMAGES_SOURCE_DIR=/srv/comics IMAGES_CACHE_DIR=/srv/cache
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the supervisor tree. The HTTP server drains
// in-flight requests for server.shutdown_timeout before the session store is
// closed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/panelhouse/internal/api"
	"github.com/tomtom215/panelhouse/internal/config"
	"github.com/tomtom215/panelhouse/internal/logging"
	"github.com/tomtom215/panelhouse/internal/supervisor"
	"github.com/tomtom215/panelhouse/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("session_store", cfg.Session.Store).
		Dur("session_timeout", cfg.Session.Timeout).
		Msg("Starting Panelhouse")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Panelhouse stopped with error")
		cancel()
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.closer.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(c.handler, c.routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewSessionJanitorService(c.store, services.SessionJanitorConfig{
		Timeout:  cfg.Session.Timeout,
		Interval: cfg.Session.CleanupInterval,
		Lockout:  c.lockout,
	}))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	errCh := tree.ServeBackground(ctx)

	var serveErr error
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return serveErr
}
