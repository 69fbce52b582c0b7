// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/panelhouse/internal/auth"
	"github.com/tomtom215/panelhouse/internal/middleware"
)

// RouterConfig holds routing settings that are not handler dependencies.
type RouterConfig struct {
	Middleware *ChiMiddlewareConfig

	// MediaPrefix and MediaDir expose generated derivatives. An empty
	// MediaDir disables the file server.
	MediaPrefix string
	MediaDir    string
}

// NewRouter builds the application router.
//
// Middleware order: request id, real ip, access log, recoverer, metrics,
// CORS, global rate limit. The real ip middleware runs before anything that
// keys on the client address.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mw := NewChiMiddleware(cfg.Middleware)
	guard := h.guard

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(mw.CORS())
	r.Use(mw.RateLimit())

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.MediaDir != "" {
		prefix := "/" + strings.Trim(cfg.MediaPrefix, "/")
		if prefix == "/" {
			prefix = "/media"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix, mediaServer(cfg.MediaDir)))
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(NoStore)

		r.Get("/login", h.LoginPage)
		r.With(mw.RateLimitLogin()).Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Post("/logout", h.Logout)

		r.With(guard.RequireAuthenticated).Get("/", h.Dashboard)

		r.Route("/api", func(r chi.Router) {
			r.Use(auth.APIRequest)

			r.With(guard.RequireAuthenticated).Get("/session", h.SessionInfo)
			r.With(guard.RequireAuthenticated).Get("/images", h.ListImages)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAuthenticatedCSRF)
				r.Post("/keepalive", h.KeepAlive)

				r.Group(func(r chi.Router) {
					r.Use(mw.RateLimitImages())
					r.Get("/images/generate", h.GenerateImage)
					r.Post("/images/generate", h.GenerateImage)
					r.Post("/images/generate-all", h.GenerateAll)
				})
			})
		})
	})

	return r
}

// mediaServer serves files from dir without directory listings.
func mediaServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
