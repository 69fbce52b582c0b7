// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/logging"
)

const healthProbeID = "healthz-probe"

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	SessionStore string `json:"session_store"`
}

// Healthz reports whether the session store answers. A lookup of an id that
// never exists must come back as not found.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	_, err := h.guard.Store().Get(ctx, healthProbeID)
	if err == nil || errors.Is(err, auth.ErrSessionNotFound) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", SessionStore: "ok"})
		return
	}

	logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check: session store unavailable")
	writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", SessionStore: "unavailable"})
}
