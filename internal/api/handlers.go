// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

/*
Package api provides the HTTP surface of the admin area.

Routes:
  - /admin/login, /admin/logout and /admin/ serve the login form, logout and
    the dashboard page. Page failures redirect to the login form.
  - /admin/api/* are JSON endpoints. Authentication failures return 401 with a
    redirect hint and CSRF failures return 403.
  - /media/* serves generated derivatives from the cache directory.
  - /healthz and /metrics are unauthenticated.
*/
package api

import (
	"fmt"
	"sort"

	"github.com/tomtom215/panelhouse/internal/assets"
	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/imaging"
	"github.com/tomtom215/panelhouse/internal/logging"
)

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Guard       *auth.Guard
	Credentials *auth.Credentials
	Lockout     *auth.Lockout
	Catalog     *assets.Catalog
	Generator   *imaging.Generator
	Presets     map[string]imaging.Preset

	// BatchWorkers bounds concurrent generations in generate-all.
	BatchWorkers int
}

// Handler serves the admin routes.
type Handler struct {
	guard     *auth.Guard
	creds     *auth.Credentials
	lockout   *auth.Lockout
	catalog   *assets.Catalog
	generator *imaging.Generator
	presets   map[string]imaging.Preset
	workers   int
	security  *logging.SecurityLogger
}

// NewHandler validates deps and creates a handler.
func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Guard == nil:
		return nil, fmt.Errorf("api: guard is required")
	case deps.Credentials == nil:
		return nil, fmt.Errorf("api: credentials are required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("api: catalog is required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("api: generator is required")
	}

	presets := deps.Presets
	if len(presets) == 0 {
		presets = imaging.DefaultPresets()
	}
	lockout := deps.Lockout
	if lockout == nil {
		lockout = auth.NewLockout(auth.DefaultLockoutConfig())
	}
	workers := deps.BatchWorkers
	if workers <= 0 {
		workers = 4
	}

	return &Handler{
		guard:     deps.Guard,
		creds:     deps.Credentials,
		lockout:   lockout,
		catalog:   deps.Catalog,
		generator: deps.Generator,
		presets:   presets,
		workers:   workers,
		security:  logging.NewSecurityLogger(),
	}, nil
}

// presetNames returns the configured preset names, sorted.
func (h *Handler) presetNames() []string {
	names := make([]string, 0, len(h.presets))
	for name := range h.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
