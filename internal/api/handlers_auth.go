// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/logging"
	"github.com/tomtom215/panelhouse/internal/metrics"
)

// Admin page paths
const (
	DashboardPath = "/admin/"
	LogoutPath    = "/admin/logout"
)

// Login error codes carried in the login page query string.
const (
	loginErrorInvalid = "1"
	loginErrorLocked  = "locked"
)

// LoginPage renders the login form. Visitors with a live session go straight
// to the dashboard.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := h.guard.Authenticate(r); err == nil {
		http.Redirect(w, r, DashboardPath, http.StatusFound)
		return
	}

	view := loginView{Action: h.guard.LoginURL()}
	switch r.URL.Query().Get("error") {
	case loginErrorInvalid:
		view.Error = "Invalid username or password"
	case loginErrorLocked:
		view.Error = "Too many failed attempts, try again later"
	}
	renderHTML(w, http.StatusOK, loginPage, view)
}

// Login checks the submitted credentials and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	ip := auth.ClientIP(r)

	if _, err := h.lockout.Check(username, ip); err != nil {
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		h.security.LogLoginFailure(username, ip, r.UserAgent(), "locked")
		h.loginFailed(w, r, loginErrorLocked)
		return
	}

	account, err := h.creds.Verify(username, password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		h.security.LogLoginFailure(username, ip, r.UserAgent(), "invalid_credentials")
		if h.lockout.RecordFailure(username, ip) {
			h.loginFailed(w, r, loginErrorLocked)
			return
		}
		h.loginFailed(w, r, loginErrorInvalid)
		return
	}

	h.lockout.RecordSuccess(account, ip)

	if _, err := h.guard.Login(w, r, account); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to create admin session")
		http.Error(w, "Unable to start a session, try again shortly", http.StatusServiceUnavailable)
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.guard.LoginURL()+"?error="+code, http.StatusSeeOther)
}

// Logout ends the session. A live session must present its CSRF token if one
// is submitted at all; an expired session can always log out.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := h.guard.Authenticate(r)
	if errors.Is(err, auth.ErrStoreUnavailable) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Session lookup failed during logout")
	}

	if err := auth.VerifyCSRF(session, auth.ExtractCSRFToken(r), true); err != nil {
		h.guard.RejectCSRF(w, r, err)
		return
	}
	h.guard.Logout(w, r)
}

// Dashboard renders the admin landing page. It is mounted behind
// RequireAuthenticated.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		http.Redirect(w, r, h.guard.LoginURL(), http.StatusFound)
		return
	}

	cfg := h.guard.Config()
	renderHTML(w, http.StatusOK, dashboardPage, dashboardView{
		Username:       session.Username,
		CSRFToken:      session.CSRFToken,
		TimeoutSeconds: int(cfg.Timeout.Seconds()),
		WarningSeconds: int(cfg.WarningLead.Seconds()),
		Presets:        h.presetNames(),
		LogoutPath:     LogoutPath,
	})
}
