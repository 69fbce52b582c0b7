// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"net/http"

	"github.com/tomtom215/panelhouse/internal/auth"
)

// KeepAlive extends the session. The guard has already refreshed
// LastActivity by the time this runs.
func (h *Handler) KeepAlive(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, StatusResponse{Status: "error", Redirect: h.guard.LoginURL()})
		return
	}

	cfg := h.guard.Config()
	warningIn := cfg.Timeout - cfg.WarningLead
	if warningIn < 0 {
		warningIn = 0
	}
	writeJSON(w, http.StatusOK, KeepAliveResponse{
		Status:    "success",
		ExpiresIn: int(cfg.Timeout.Seconds()),
		WarningIn: int(warningIn.Seconds()),
	})
}

// SessionInfo returns the caller's session details for client timers.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, StatusResponse{Status: "error", Redirect: h.guard.LoginURL()})
		return
	}

	cfg := h.guard.Config()
	writeJSON(w, http.StatusOK, SessionInfoResponse{
		Status:         "success",
		Username:       session.Username,
		CSRFToken:      session.CSRFToken,
		TimeoutSeconds: int(cfg.Timeout.Seconds()),
		WarningSeconds: int(cfg.WarningLead.Seconds()),
		ExpiresAt:      session.ExpiresAt(cfg.Timeout).UTC(),
	})
}
