// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/tomtom215/panelhouse/internal/metrics"
)

// CSRF errors
var (
	// ErrCSRFTokenMissing is returned when a state-changing request carries no token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")

	// ErrCSRFTokenInvalid is returned when the submitted token does not match the session.
	ErrCSRFTokenInvalid = errors.New("csrf token invalid")
)

// CSRFFormField is the form and query parameter carrying the CSRF token.
const CSRFFormField = "csrf_token"

// VerifyCSRF checks submitted against the session's token.
//
// Logout is lenient in one direction only: a missing token is accepted, as is
// a session that is already gone or never had a token, so a user with an
// expired page can always log out. A token that is present and wrong is
// rejected for logout like everywhere else.
func VerifyCSRF(session *Session, submitted string, isLogout bool) error {
	if isLogout {
		if session == nil || session.CSRFToken == "" || submitted == "" {
			return nil
		}
		return compareCSRF(session.CSRFToken, submitted)
	}

	if submitted == "" {
		return ErrCSRFTokenMissing
	}
	if session == nil || session.CSRFToken == "" {
		return ErrCSRFTokenInvalid
	}
	return compareCSRF(session.CSRFToken, submitted)
}

func compareCSRF(expected, submitted string) error {
	if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) != 1 {
		return ErrCSRFTokenInvalid
	}
	return nil
}

// ExtractCSRFToken returns the token from the X-CSRF-Token header, falling
// back to the csrf_token form or query parameter.
func ExtractCSRFToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeaderName); token != "" {
		return token
	}
	return r.FormValue(CSRFFormField)
}

// CSRFProtect rejects requests whose token does not match the session placed
// in the context by RequireAuthenticated. It must be mounted after it.
func (g *Guard) CSRFProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if err := VerifyCSRF(session, ExtractCSRFToken(r), false); err != nil {
			g.rejectCSRF(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rejectCSRF writes a 403 for a failed token check.
func (g *Guard) rejectCSRF(w http.ResponseWriter, r *http.Request, err error) {
	reason := "invalid"
	if errors.Is(err, ErrCSRFTokenMissing) {
		reason = "missing"
	}
	metrics.CSRFRejections.WithLabelValues(reason).Inc()
	g.security.LogCSRFFailure(ClientIP(r), r.UserAgent(), r.URL.Path, reason)

	if IsAPIRequest(r) {
		writeStatus(w, http.StatusForbidden, StatusResponse{
			Status:  "error",
			Message: "Invalid or missing CSRF token",
		})
		return
	}
	http.Error(w, "Invalid or missing CSRF token", http.StatusForbidden)
}

// RejectCSRF is the exported form of the 403 response for handlers that
// verify tokens themselves, such as logout.
func (g *Guard) RejectCSRF(w http.ResponseWriter, r *http.Request, err error) {
	g.rejectCSRF(w, r, err)
}
