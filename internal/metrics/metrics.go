// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

// Package metrics holds the Prometheus collectors for the admin service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panelhouse_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "panelhouse_http_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	// Session Metrics
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_auth_failures_total",
			Help: "Admin requests rejected by the session guard",
		},
		[]string{"reason"}, // "no_session", "expired", "fingerprint", "store"
	)

	CSRFRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_csrf_rejections_total",
			Help: "Requests rejected for a missing or invalid CSRF token",
		},
		[]string{"reason"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_login_attempts_total",
			Help: "Admin login attempts by outcome",
		},
		[]string{"outcome"}, // "success", "invalid", "locked"
	)

	SessionRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "panelhouse_session_rotations_total",
			Help: "Scheduled session id regenerations",
		},
	)

	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "panelhouse_sessions_expired_total",
			Help: "Sessions removed by the janitor after the inactivity timeout",
		},
	)

	// Image Metrics
	ImageGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_image_generations_total",
			Help: "Derivative image generation requests by outcome",
		},
		[]string{"preset", "format", "status"}, // status: "success", "exists", "error"
	)

	ImageGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panelhouse_image_generation_duration_seconds",
			Help:    "Time spent decoding, resampling and encoding a derivative",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"preset", "format"},
	)

	// SessionStoreBreakerState is 0 closed, 1 half-open, 2 open.
	SessionStoreBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "panelhouse_session_store_breaker_state",
			Help: "Session store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SessionStoreBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_session_store_breaker_transitions_total",
			Help: "Session store circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	SessionStoreBreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panelhouse_session_store_breaker_rejections_total",
			Help: "Session store calls refused while the breaker was open",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records a finished HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordImageGeneration records one derivative generation attempt.
func RecordImageGeneration(preset, format, status string, duration time.Duration) {
	ImageGenerations.WithLabelValues(preset, format, status).Inc()
	if status == "success" {
		ImageGenerationDuration.WithLabelValues(preset, format).Observe(duration.Seconds())
	}
}
