// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/panelhouse/internal/logging"
)

// StatusResponse is the JSON body used by admin AJAX endpoints.
type StatusResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// writeStatus writes a StatusResponse with the given HTTP status code.
func writeStatus(w http.ResponseWriter, code int, body StatusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth response")
	}
}
