// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

/*
Package supervisor runs the long-lived Panelhouse services under a suture v4
supervisor tree.

	RootSupervisor ("panelhouse")
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService
	└── MaintenanceSupervisor ("maintenance-layer")
	    └── SessionJanitorService

A janitor failure restarts only the maintenance layer; the HTTP server keeps
serving. Supervisor events are logged through sutureslog, which takes the
slog bridge from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMaintenanceService(services.NewSessionJanitorService(store, cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}
*/
package supervisor
