// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/panelhouse/internal/assets"
	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/imaging"
)

const (
	testUserAgent = "Mozilla/5.0 (Test) Panelhouse/1.0"
	testUsername  = "admin"
	testPassword  = "correct horse battery"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testServer drives the full router like a browser: it keeps the session
// cookie and the latest CSRF token between requests.
type testServer struct {
	t        *testing.T
	handler  http.Handler
	store    *auth.MemorySessionStore
	clock    *testClock
	sources  string
	cache    string
	cookie   *http.Cookie
	csrf     string
	cookieID string
}

type serverOption func(*serverOptions)

type serverOptions struct {
	middleware *ChiMiddlewareConfig
	lockout    auth.LockoutConfig
	sourceDir  string
}

func withMiddleware(cfg *ChiMiddlewareConfig) serverOption {
	return func(o *serverOptions) { o.middleware = cfg }
}

func withLockout(cfg auth.LockoutConfig) serverOption {
	return func(o *serverOptions) { o.lockout = cfg }
}

func withSourceDir(dir string) serverOption {
	return func(o *serverOptions) { o.sourceDir = dir }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	root := t.TempDir()
	o := serverOptions{
		middleware: &ChiMiddlewareConfig{RateLimitDisabled: true},
		lockout:    auth.DefaultLockoutConfig(),
		sourceDir:  filepath.Join(root, "comics"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "comics"), 0o755))
	cacheDir := filepath.Join(root, "cache")

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := auth.NewMemorySessionStore()

	guardCfg := auth.DefaultGuardConfig()
	guardCfg.RotationInterval = 0
	guardCfg.Clock = clock.Now
	guard := auth.NewGuard(store, guardCfg)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	creds, err := auth.NewCredentials(map[string]string{testUsername: string(hash)})
	require.NoError(t, err)

	o.lockout.Clock = clock.Now
	h, err := NewHandler(Dependencies{
		Guard:       guard,
		Credentials: creds,
		Lockout:     auth.NewLockout(o.lockout),
		Catalog: assets.NewCatalog(assets.Config{
			SourceDir:    o.sourceDir,
			CacheDir:     cacheDir,
			PublicPrefix: "/media",
		}),
		Generator:    imaging.NewGenerator(color.White),
		BatchWorkers: 2,
	})
	require.NoError(t, err)

	return &testServer{
		t:        t,
		handler:  NewRouter(h, RouterConfig{Middleware: o.middleware, MediaPrefix: "/media", MediaDir: cacheDir}),
		store:    store,
		clock:    clock,
		sources:  filepath.Join(root, "comics"),
		cache:    cacheDir,
		cookieID: guardCfg.Cookie.Name,
	}
}

// do sends a request. Form values go in the body for POST and in the query
// string otherwise.
func (s *testServer) do(method, target string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	s.t.Helper()

	var req *http.Request
	if method == http.MethodPost && form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if form != nil {
			target += "?" + form.Encode()
		}
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("User-Agent", testUserAgent)
	req.RemoteAddr = "203.0.113.10:51234"
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name != s.cookieID {
			continue
		}
		if c.MaxAge < 0 {
			s.cookie = nil
		} else {
			s.cookie = &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	if token := rec.Header().Get(auth.CSRFHeaderName); token != "" {
		s.csrf = token
	}
	return rec
}

// api sends a CSRF-carrying request to an admin API endpoint.
func (s *testServer) api(method, target string, form url.Values) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(method, target, form, http.Header{auth.CSRFHeaderName: {s.csrf}})
}

func (s *testServer) login() {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/admin/login", url.Values{"username": {testUsername}, "password": {testPassword}}, nil)
	require.Equal(s.t, http.StatusSeeOther, rec.Code)
	require.Equal(s.t, DashboardPath, rec.Header().Get("Location"))
	require.NotNil(s.t, s.cookie, "login did not set the session cookie")

	// The dashboard hands out the CSRF token.
	rec = s.do(http.MethodGet, DashboardPath, nil, nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	require.NotEmpty(s.t, s.csrf)
}

// writeSource writes a w x h two-tone PNG into the source directory.
func (s *testServer) writeSource(id string, w, h int) {
	s.t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, image.Rect(0, 0, w, h/2), image.NewUniform(color.RGBA{R: 0xff, A: 0xff}), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, h/2, w, h), image.NewUniform(color.RGBA{B: 0xff, A: 0xff}), image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(s.t, png.Encode(&buf, img))
	require.NoError(s.t, os.WriteFile(filepath.Join(s.sources, id+".png"), buf.Bytes(), 0o644))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
