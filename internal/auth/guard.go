// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/panelhouse/internal/logging"
	"github.com/tomtom215/panelhouse/internal/metrics"
)

// Guard errors
var (
	// ErrNotAuthenticated is returned when the request carries no live admin session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the inactivity timeout has elapsed.
	ErrSessionExpired = errors.New("session expired")

	// ErrFingerprintMismatch is returned when the client no longer matches the session.
	ErrFingerprintMismatch = errors.New("session fingerprint mismatch")

	// ErrStoreUnavailable wraps session store failures other than a missing session.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// CSRFHeaderName is the response and request header carrying the CSRF token.
const CSRFHeaderName = "X-CSRF-Token"

// GuardConfig holds configuration for the session guard.
type GuardConfig struct {
	// Timeout is the inactivity window. A session is live while now-LastActivity < Timeout.
	Timeout time.Duration

	// WarningLead is how long before expiry clients should warn the user.
	WarningLead time.Duration

	// RotationInterval is how often the session id is regenerated.
	// Zero disables rotation.
	RotationInterval time.Duration

	// CSRFTokenTTL is the token age after which page loads regenerate it.
	// Zero keeps the login-time token for the session lifetime.
	CSRFTokenTTL time.Duration

	// LoginPath is the redirect target for unauthenticated requests.
	LoginPath string

	Cookie      CookieConfig
	Fingerprint Fingerprinter

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultGuardConfig returns the standard admin session settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Timeout:          600 * time.Second,
		WarningLead:      60 * time.Second,
		RotationInterval: 5 * time.Minute,
		CSRFTokenTTL:     2 * time.Hour,
		LoginPath:        "/admin/login",
		Cookie:           DefaultCookieConfig(),
		Fingerprint:      DefaultFingerprinter(),
		Clock:            time.Now,
	}
}

// Guard gates admin requests behind an authenticated, fingerprint-matching,
// unexpired session. It holds no per-request state.
type Guard struct {
	store    SessionStore
	config   GuardConfig
	security *logging.SecurityLogger
}

// NewGuard creates a guard over the given store.
func NewGuard(store SessionStore, config GuardConfig) *Guard {
	defaults := DefaultGuardConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.WarningLead <= 0 {
		config.WarningLead = defaults.WarningLead
	}
	if config.LoginPath == "" {
		config.LoginPath = defaults.LoginPath
	}
	if config.Cookie.Name == "" {
		config.Cookie = defaults.Cookie
	}
	if config.Fingerprint == (Fingerprinter{}) {
		config.Fingerprint = defaults.Fingerprint
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Guard{
		store:    store,
		config:   config,
		security: logging.NewSecurityLogger(),
	}
}

// Config returns the guard configuration.
func (g *Guard) Config() GuardConfig {
	return g.config
}

// Store returns the underlying session store.
func (g *Guard) Store() SessionStore {
	return g.store
}

// LoginURL returns the login page path.
func (g *Guard) LoginURL() string {
	return g.config.LoginPath
}

// ========================
// Request Marker
// ========================

type apiRequestKey struct{}

// APIRequest marks every request under it as an API call so guard failures
// produce 401 JSON instead of a redirect.
func APIRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), apiRequestKey{}, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsAPIRequest reports whether r was marked by APIRequest or looks like an
// AJAX call.
func IsAPIRequest(r *http.Request) bool {
	if marked, ok := r.Context().Value(apiRequestKey{}).(bool); ok && marked {
		return true
	}
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		r.Header.Get("Accept") == "application/json"
}

// ========================
// Session Resolution
// ========================

type sessionContextKey struct{}

// SessionFromContext returns the session placed by RequireAuthenticated, or nil.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey{}).(*Session)
	return session
}

// ContextWithSession stores a session in ctx.
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// Authenticate resolves the request's session and checks it is live. It does
// not refresh activity. Expired or fingerprint-mismatched sessions are
// destroyed before returning, so they cannot be revived.
func (g *Guard) Authenticate(r *http.Request) (*Session, error) {
	ctx := r.Context()

	id := g.config.Cookie.sessionIDFromRequest(r)
	if id == "" {
		return nil, ErrNotAuthenticated
	}

	session, err := g.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !session.AdminLoggedIn {
		return nil, ErrNotAuthenticated
	}

	var reason error
	switch {
	case session.IdleFor(g.config.Clock()) >= g.config.Timeout:
		reason = ErrSessionExpired
	case !g.config.Fingerprint.Matches(r, session.Fingerprint):
		reason = ErrFingerprintMismatch
	default:
		return session, nil
	}

	if err := g.store.Destroy(ctx, id); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to destroy rejected session")
	}
	return nil, reason
}

// RequireAuthenticated runs next only for requests with a live admin session.
// On success it refreshes LastActivity, rotates the session id on schedule,
// regenerates the CSRF token on page loads once it is older than CSRFTokenTTL,
// and places the session in the request context.
func (g *Guard) RequireAuthenticated(next http.Handler) http.Handler {
	return g.require(next, false)
}

// RequireAuthenticatedCSRF is RequireAuthenticated for state-changing
// endpoints. The CSRF token is verified before the session is touched, so a
// rejected request leaves the session exactly as it was.
func (g *Guard) RequireAuthenticatedCSRF(next http.Handler) http.Handler {
	return g.require(next, true)
}

func (g *Guard) require(next http.Handler, checkCSRF bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := g.Authenticate(r)
		if err != nil {
			g.reject(w, r, err)
			return
		}

		if checkCSRF {
			if err := VerifyCSRF(session, ExtractCSRFToken(r), false); err != nil {
				g.rejectCSRF(w, r, err)
				return
			}
		}

		session, err = g.touch(w, r, session)
		if err != nil {
			g.reject(w, r, err)
			return
		}

		w.Header().Set(CSRFHeaderName, session.CSRFToken)
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
	})
}

// touch applies the per-request session updates and persists them.
func (g *Guard) touch(w http.ResponseWriter, r *http.Request, session *Session) (*Session, error) {
	ctx := r.Context()
	now := g.config.Clock()

	if g.config.RotationInterval > 0 && now.Sub(session.RotatedAt) >= g.config.RotationInterval {
		oldID := session.ID
		rotated, err := g.store.RegenerateID(ctx, oldID)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			// A concurrent request already rotated this id. Serve without
			// writing so the old id is not recreated.
			return session, nil
		case err != nil:
			// Keep serving under the old id; the next request retries.
			logging.Ctx(ctx).Warn().Err(err).Msg("Session id rotation failed")
		default:
			session = rotated
			session.RotatedAt = now
			http.SetCookie(w, g.config.Cookie.sessionCookie(session.ID))
			metrics.SessionRotations.Inc()
			g.security.LogSessionRotated(session.Username, oldID, session.ID)
		}
	}

	if !IsAPIRequest(r) && g.config.CSRFTokenTTL > 0 && now.Sub(session.CSRFIssuedAt) >= g.config.CSRFTokenTTL {
		token, err := generateCSRFToken()
		if err != nil {
			return nil, err
		}
		session.CSRFToken = token
		session.CSRFIssuedAt = now
	}

	session.LastActivity = now
	if err := g.store.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return session, nil
}

// reject terminates a request that failed authentication.
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := failureReason(err)
	metrics.AuthFailures.WithLabelValues(reason).Inc()

	if errors.Is(err, ErrStoreUnavailable) {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Session store failure")
		if IsAPIRequest(r) {
			writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
				Status:  "error",
				Message: "Session storage is unavailable, try again shortly",
			})
			return
		}
		http.Error(w, "Session storage is unavailable, try again shortly", http.StatusServiceUnavailable)
		return
	}

	if reason != "no_session" {
		g.security.LogSessionRejected(g.config.Cookie.sessionIDFromRequest(r), ClientIP(r), r.URL.Path, reason)
	}
	http.SetCookie(w, g.config.Cookie.expiredCookie())

	if IsAPIRequest(r) {
		writeStatus(w, http.StatusUnauthorized, StatusResponse{
			Status:   "error",
			Message:  failureMessage(err),
			Redirect: g.config.LoginPath,
		})
		return
	}
	http.Redirect(w, r, g.config.LoginPath, http.StatusFound)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "expired"
	case errors.Is(err, ErrFingerprintMismatch):
		return "fingerprint"
	case errors.Is(err, ErrStoreUnavailable):
		return "store"
	default:
		return "no_session"
	}
}

// failureMessage keeps fingerprint mismatches indistinguishable from expiry.
func failureMessage(err error) string {
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrFingerprintMismatch) {
		return "Your session has expired, please log in again"
	}
	return "Authentication required"
}

// ========================
// Login / Logout
// ========================

// Login starts a fresh authenticated session for username and sets the
// cookie. Any session id the client already held is destroyed first.
func (g *Guard) Login(w http.ResponseWriter, r *http.Request, username string) (*Session, error) {
	ctx := r.Context()

	if oldID := g.config.Cookie.sessionIDFromRequest(r); oldID != "" {
		if err := g.store.Destroy(ctx, oldID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	token, err := generateCSRFToken()
	if err != nil {
		return nil, err
	}

	now := g.config.Clock()
	session := &Session{
		ID:            id,
		AdminLoggedIn: true,
		Username:      username,
		CSRFToken:     token,
		CSRFIssuedAt:  now,
		LastActivity:  now,
		Fingerprint:   g.config.Fingerprint.FromRequest(r),
		CreatedAt:     now,
		RotatedAt:     now,
	}

	if err := g.store.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	http.SetCookie(w, g.config.Cookie.sessionCookie(id))
	g.security.LogLoginSuccess(username, id, ClientIP(r), r.UserAgent())
	return session, nil
}

// Logout clears and destroys the request's session, expires the cookie with
// matching attributes and redirects to the login page. It works whether or
// not the session is still live.
func (g *Guard) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if id := g.config.Cookie.sessionIDFromRequest(r); id != "" {
		username := ""
		if existing, err := g.store.Get(ctx, id); err == nil {
			username = existing.Username
		}

		// Clear first so a failed Destroy still leaves nothing authenticated.
		if err := g.store.Set(ctx, &Session{ID: id}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to clear session before logout")
		}
		if err := g.store.Destroy(ctx, id); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to destroy session on logout")
		}
		g.security.LogLogout(username, id, ClientIP(r))
	}

	http.SetCookie(w, g.config.Cookie.expiredCookie())
	http.Redirect(w, r, g.config.LoginPath, http.StatusFound)
}
