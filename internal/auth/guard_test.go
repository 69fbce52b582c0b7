// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// =====================================================
// Session Guard Tests
// =====================================================

const testUserAgent = "Mozilla/5.0 (Test) Panelhouse/1.0"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string) (*Session, error)      { return nil, s.err }
func (s failingStore) Set(context.Context, *Session) error                { return s.err }
func (s failingStore) Destroy(context.Context, string) error              { return s.err }
func (s failingStore) RegenerateID(context.Context, string) (*Session, error) { return nil, s.err }
func (s failingStore) CleanupExpired(context.Context, time.Time) (int, error) { return 0, s.err }

type guardHarness struct {
	t      *testing.T
	guard  *Guard
	store  *MemorySessionStore
	clock  *fakeClock
	cookie *http.Cookie
}

func newGuardHarness(t *testing.T, mutate func(*GuardConfig)) *guardHarness {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemorySessionStore()

	cfg := DefaultGuardConfig()
	cfg.RotationInterval = 0
	cfg.Clock = clock.Now
	if mutate != nil {
		mutate(&cfg)
	}

	return &guardHarness{t: t, guard: NewGuard(store, cfg), store: store, clock: clock}
}

func (h *guardHarness) request(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("User-Agent", testUserAgent)
	req.RemoteAddr = "203.0.113.10:51234"
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	return req
}

// updateCookie follows any Set-Cookie for the session cookie, like a browser.
func (h *guardHarness) updateCookie(rec *httptest.ResponseRecorder) {
	for _, c := range rec.Result().Cookies() {
		if c.Name != h.guard.config.Cookie.Name {
			continue
		}
		if c.MaxAge < 0 {
			h.cookie = nil
		} else {
			h.cookie = &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
}

func (h *guardHarness) login() *Session {
	h.t.Helper()

	rec := httptest.NewRecorder()
	session, err := h.guard.Login(rec, h.request(http.MethodPost, "/admin/login"), "admin")
	if err != nil {
		h.t.Fatalf("Login failed: %v", err)
	}
	h.updateCookie(rec)
	if h.cookie == nil || h.cookie.Value != session.ID {
		h.t.Fatalf("Login did not set the session cookie")
	}
	return session
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			http.Error(w, "no session in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (h *guardHarness) serve(req *http.Request, handler http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	h.updateCookie(rec)
	return rec
}

func (h *guardHarness) servePage() *httptest.ResponseRecorder {
	return h.serve(h.request(http.MethodGet, "/admin/"), h.guard.RequireAuthenticated(okHandler()))
}

func (h *guardHarness) serveAPI() *httptest.ResponseRecorder {
	return h.serve(h.request(http.MethodGet, "/admin/api/session"), APIRequest(h.guard.RequireAuthenticated(okHandler())))
}

func TestGuard_PageWithoutSessionRedirects(t *testing.T) {
	h := newGuardHarness(t, nil)

	rec := h.servePage()
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
}

func TestGuard_APIWithoutSessionReturnsJSON(t *testing.T) {
	h := newGuardHarness(t, nil)

	rec := h.serveAPI()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "error" || body.Redirect != "/admin/login" || body.Message == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestGuard_AJAXHeaderTreatedAsAPI(t *testing.T) {
	h := newGuardHarness(t, nil)

	req := h.request(http.MethodGet, "/admin/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := h.serve(req, h.guard.RequireAuthenticated(okHandler()))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGuard_UnknownCookieRejected(t *testing.T) {
	h := newGuardHarness(t, nil)
	h.cookie = &http.Cookie{Name: h.guard.config.Cookie.Name, Value: "forged"}

	if rec := h.servePage(); rec.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
	}
}

func TestGuard_LoggedOutRecordRejected(t *testing.T) {
	h := newGuardHarness(t, nil)
	session := h.login()

	session.AdminLoggedIn = false
	if err := h.store.Set(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	if rec := h.serveAPI(); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGuard_ValidSessionPasses(t *testing.T) {
	h := newGuardHarness(t, nil)
	session := h.login()

	rec := h.servePage()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get(CSRFHeaderName); got != session.CSRFToken {
		t.Errorf("X-CSRF-Token = %q, want session token", got)
	}
}

// Keep-alive at t=590 must extend the session so a request at t=595 still passes.
func TestGuard_ActivityExtendsSession(t *testing.T) {
	h := newGuardHarness(t, nil)
	h.login()

	h.clock.Advance(590 * time.Second)
	if rec := h.serveAPI(); rec.Code != http.StatusOK {
		t.Fatalf("t=590 status = %d, want %d", rec.Code, http.StatusOK)
	}

	h.clock.Advance(5 * time.Second)
	if rec := h.serveAPI(); rec.Code != http.StatusOK {
		t.Fatalf("t=595 status = %d, want %d", rec.Code, http.StatusOK)
	}

	stored, err := h.store.Get(context.Background(), h.cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.LastActivity.Equal(h.clock.Now()) {
		t.Errorf("LastActivity = %v, want %v", stored.LastActivity, h.clock.Now())
	}
}

func TestGuard_InactiveSessionExpires(t *testing.T) {
	h := newGuardHarness(t, nil)
	session := h.login()

	h.clock.Advance(599 * time.Second)
	if _, err := h.guard.Authenticate(h.request(http.MethodGet, "/admin/")); err != nil {
		t.Fatalf("t=599 Authenticate error = %v, want nil", err)
	}

	h.clock.Advance(time.Second)
	_, err := h.guard.Authenticate(h.request(http.MethodGet, "/admin/"))
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("t=600 Authenticate error = %v, want ErrSessionExpired", err)
	}

	// The expired record is destroyed and cannot be revived.
	if _, err := h.store.Get(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired session still stored: %v", err)
	}
}

func TestGuard_ExpiredAPIRequestClearsCookie(t *testing.T) {
	h := newGuardHarness(t, nil)
	h.login()
	h.clock.Advance(601 * time.Second)

	rec := h.serveAPI()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if h.cookie != nil {
		t.Error("expired session cookie was not cleared")
	}
}

func TestGuard_FingerprintMismatch(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		remoteAddr string
		wantOK     bool
	}{
		{"same client", testUserAgent, "203.0.113.10:51234", true},
		{"same subnet", testUserAgent, "203.0.113.200:40000", true},
		{"different user agent", "curl/8.0", "203.0.113.10:51234", false},
		{"different subnet", testUserAgent, "198.51.100.10:51234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newGuardHarness(t, nil)
			session := h.login()

			req := h.request(http.MethodGet, "/admin/")
			req.Header.Set("User-Agent", tt.userAgent)
			req.RemoteAddr = tt.remoteAddr

			_, err := h.guard.Authenticate(req)
			if tt.wantOK {
				if err != nil {
					t.Errorf("Authenticate error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrFingerprintMismatch) {
				t.Errorf("Authenticate error = %v, want ErrFingerprintMismatch", err)
			}
			if _, err := h.store.Get(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("mismatched session still stored: %v", err)
			}
		})
	}
}

func TestGuard_RotatesSessionID(t *testing.T) {
	h := newGuardHarness(t, func(cfg *GuardConfig) {
		cfg.RotationInterval = 5 * time.Minute
	})
	original := h.login()

	h.clock.Advance(4 * time.Minute)
	if rec := h.servePage(); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if h.cookie.Value != original.ID {
		t.Fatal("session id rotated before the interval")
	}

	h.clock.Advance(time.Minute)
	if rec := h.servePage(); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if h.cookie.Value == original.ID {
		t.Fatal("session id was not rotated after the interval")
	}

	if _, err := h.store.Get(context.Background(), original.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("old session id still resolves: %v", err)
	}

	rotated, err := h.store.Get(context.Background(), h.cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if rotated.CSRFToken != original.CSRFToken {
		t.Error("rotation changed the CSRF token")
	}
	if !rotated.RotatedAt.Equal(h.clock.Now()) {
		t.Errorf("RotatedAt = %v, want %v", rotated.RotatedAt, h.clock.Now())
	}

	// The new cookie keeps working.
	if rec := h.serveAPI(); rec.Code != http.StatusOK {
		t.Errorf("request with rotated cookie status = %d", rec.Code)
	}
}

func TestGuard_CSRFTokenRegeneratesOnPageLoadOnly(t *testing.T) {
	h := newGuardHarness(t, func(cfg *GuardConfig) {
		cfg.Timeout = 4 * time.Hour
		cfg.CSRFTokenTTL = time.Hour
	})
	original := h.login()

	h.clock.Advance(time.Hour)
	rec := h.serveAPI()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get(CSRFHeaderName); got != original.CSRFToken {
		t.Error("API request regenerated the CSRF token")
	}

	rec = h.servePage()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	fresh := rec.Header().Get(CSRFHeaderName)
	if fresh == "" || fresh == original.CSRFToken {
		t.Error("page load did not regenerate an aged CSRF token")
	}

	stored, _ := h.store.Get(context.Background(), h.cookie.Value)
	if stored.CSRFToken != fresh {
		t.Error("regenerated token was not persisted")
	}
}

func TestGuard_StoreFailure(t *testing.T) {
	guard := NewGuard(failingStore{err: errors.New("connection refused")}, DefaultGuardConfig())
	handler := APIRequest(guard.RequireAuthenticated(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/admin/api/session", nil)
	req.AddCookie(&http.Cookie{Name: guard.config.Cookie.Name, Value: "abc"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestGuard_LoginReplacesExistingSession(t *testing.T) {
	h := newGuardHarness(t, nil)
	first := h.login()
	second := h.login()

	if first.ID == second.ID {
		t.Fatal("login reused the session id")
	}
	if first.CSRFToken == second.CSRFToken {
		t.Error("login reused the CSRF token")
	}
	if _, err := h.store.Get(context.Background(), first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("previous session survived login: %v", err)
	}
	if h.store.Count() != 1 {
		t.Errorf("Count = %d, want 1", h.store.Count())
	}
}

func TestGuard_LoginCookieAttributes(t *testing.T) {
	h := newGuardHarness(t, nil)

	rec := httptest.NewRecorder()
	if _, err := h.guard.Login(rec, h.request(http.MethodPost, "/admin/login"), "admin"); err != nil {
		t.Fatal(err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Errorf("cookie attributes = %+v", c)
	}
	if c.MaxAge != 0 || !c.Expires.IsZero() {
		t.Error("session cookie must not be persistent")
	}
}

func TestGuard_Logout(t *testing.T) {
	h := newGuardHarness(t, nil)
	session := h.login()

	rec := h.serve(h.request(http.MethodPost, "/admin/logout"), http.HandlerFunc(h.guard.Logout))

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q", loc)
	}
	if h.cookie != nil {
		t.Error("logout did not expire the cookie")
	}
	if _, err := h.store.Get(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("session survived logout: %v", err)
	}

	var expired *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == h.guard.config.Cookie.Name {
			expired = c
		}
	}
	if expired == nil || expired.Path != "/" || !expired.HttpOnly || !expired.Secure {
		t.Errorf("expiry cookie attributes do not match the session cookie: %+v", expired)
	}
}

func TestGuard_LogoutWithExpiredSession(t *testing.T) {
	h := newGuardHarness(t, nil)
	h.login()
	h.clock.Advance(time.Hour)

	rec := h.serve(h.request(http.MethodPost, "/admin/logout"), http.HandlerFunc(h.guard.Logout))
	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if h.store.Count() != 0 {
		t.Errorf("Count = %d, want 0", h.store.Count())
	}
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		marked bool
		want   bool
	}{
		{"plain page", nil, false, false},
		{"marked", nil, true, true},
		{"xhr header", map[string]string{"X-Requested-With": "XMLHttpRequest"}, false, true},
		{"json accept", map[string]string{"Accept": "application/json"}, false, true},
		{"html accept", map[string]string{"Accept": "text/html"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}

			var got bool
			handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = IsAPIRequest(r)
			})
			if tt.marked {
				APIRequest(handler).ServeHTTP(httptest.NewRecorder(), req)
			} else {
				handler.ServeHTTP(httptest.NewRecorder(), req)
			}

			if got != tt.want {
				t.Errorf("IsAPIRequest = %v, want %v", got, tt.want)
			}
		})
	}
}
