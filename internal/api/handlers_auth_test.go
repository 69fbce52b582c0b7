// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/panelhouse/internal/auth"
)

func TestLoginPage(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/admin/login", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="password"`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = s.do(http.MethodGet, "/admin/login?error=1", nil, nil)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")

	s.login()
	rec = s.do(http.MethodGet, "/admin/login", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/admin/login", url.Values{"username": {testUsername}, "password": {"wrong password"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login?error=1", rec.Header().Get("Location"))
	assert.Nil(t, s.cookie)
	assert.Equal(t, 0, s.store.Count())
}

func TestLogin_Lockout(t *testing.T) {
	s := newTestServer(t, withLockout(auth.LockoutConfig{MaxAttempts: 2, Duration: time.Minute}))
	bad := url.Values{"username": {testUsername}, "password": {"wrong password"}}
	good := url.Values{"username": {testUsername}, "password": {testPassword}}

	rec := s.do(http.MethodPost, "/admin/login", bad, nil)
	assert.Equal(t, "/admin/login?error=1", rec.Header().Get("Location"))
	rec = s.do(http.MethodPost, "/admin/login", bad, nil)
	assert.Equal(t, "/admin/login?error=locked", rec.Header().Get("Location"))

	// Correct credentials are refused while locked.
	rec = s.do(http.MethodPost, "/admin/login", good, nil)
	assert.Equal(t, "/admin/login?error=locked", rec.Header().Get("Location"))
	assert.Nil(t, s.cookie)

	s.clock.Advance(time.Minute + time.Second)
	rec = s.do(http.MethodPost, "/admin/login", good, nil)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
	assert.NotNil(t, s.cookie)
}

func TestLogin_RateLimited(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.LoginRateLimitRequests = 2
	s := newTestServer(t, withMiddleware(cfg))

	bad := url.Values{"username": {"nobody"}, "password": {"wrong password"}}
	for i := 0; i < 2; i++ {
		rec := s.do(http.MethodPost, "/admin/login", bad, nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	rec := s.do(http.MethodPost, "/admin/login", bad, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestLogin_ReplacesExistingSession(t *testing.T) {
	s := newTestServer(t)
	s.login()
	first := s.cookie.Value

	s.login()
	assert.NotEqual(t, first, s.cookie.Value)
	assert.Equal(t, 1, s.store.Count())
}

func TestDashboard_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, DashboardPath, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	s.login()
	rec = s.do(http.MethodGet, DashboardPath, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as admin")
	assert.Contains(t, rec.Body.String(), s.csrf)
	assert.Contains(t, rec.Body.String(), `content="600"`)
}

func TestDashboard_ExpiredSessionRedirects(t *testing.T) {
	s := newTestServer(t)
	s.login()

	s.clock.Advance(600 * time.Second)
	rec := s.do(http.MethodGet, DashboardPath, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	assert.Nil(t, s.cookie)
	assert.Equal(t, 0, s.store.Count())
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		token      func(s *testServer) string
		wantCode   int
		wantLogout bool
	}{
		{"post with token", http.MethodPost, func(s *testServer) string { return s.csrf }, http.StatusFound, true},
		{"post without token", http.MethodPost, func(*testServer) string { return "" }, http.StatusFound, true},
		{"get without token", http.MethodGet, func(*testServer) string { return "" }, http.StatusFound, true},
		{"post with wrong token", http.MethodPost, func(*testServer) string { return "forged" }, http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.login()

			var form url.Values
			if token := tt.token(s); token != "" {
				form = url.Values{auth.CSRFFormField: {token}}
			}
			rec := s.do(tt.method, LogoutPath, form, nil)
			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantLogout {
				assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
				assert.Nil(t, s.cookie)
				assert.Equal(t, 0, s.store.Count())
			} else {
				assert.NotNil(t, s.cookie)
				assert.Equal(t, 1, s.store.Count())
			}
		})
	}
}

func TestLogout_ExpiredSessionWithStaleToken(t *testing.T) {
	s := newTestServer(t)
	s.login()
	stale := s.csrf

	s.clock.Advance(time.Hour)
	rec := s.do(http.MethodPost, LogoutPath, url.Values{auth.CSRFFormField: {stale}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Nil(t, s.cookie)

	rec = s.api(http.MethodPost, "/admin/api/keepalive", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminResponsesHaveSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/admin/login", "/admin/api/session"} {
		rec := s.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
		assert.True(t, strings.Contains(rec.Header().Get("Cache-Control"), "no-store"), path)
	}
}
