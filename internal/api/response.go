// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/logging"
)

// StatusResponse is the envelope shared by every admin JSON endpoint.
type StatusResponse = auth.StatusResponse

// KeepAliveResponse acknowledges a keep-alive ping.
type KeepAliveResponse struct {
	Status string `json:"status"`
	// ExpiresIn is the seconds left before the session dies without activity.
	ExpiresIn int `json:"expires_in"`
	// WarningIn is the seconds until the client should warn the user.
	WarningIn int `json:"warning_in"`
}

// SessionInfoResponse describes the caller's session for client-side timers.
type SessionInfoResponse struct {
	Status         string    `json:"status"`
	Username       string    `json:"username"`
	CSRFToken      string    `json:"csrf_token"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	WarningSeconds int       `json:"warning_seconds"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ImageResponse reports a single derivative generation.
type ImageResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl,omitempty"`
	Code     string `json:"code,omitempty"`
	Stage    string `json:"stage,omitempty"`
}

// BatchFailure is one failed id in a batch generation.
type BatchFailure struct {
	Image   string `json:"image"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// BatchResponse reports a generate-all run.
type BatchResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Preset    string         `json:"preset"`
	Generated int            `json:"generated"`
	Existing  int            `json:"existing"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// Error codes for image responses
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnprocessable = "UNPROCESSABLE_IMAGE"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
