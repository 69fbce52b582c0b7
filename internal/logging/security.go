// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package logging

import (
	"github.com/rs/zerolog"
)

// SecurityEvent represents an admin-session event for audit logging.
type SecurityEvent struct {
	// Event is the event type, e.g. "login_success", "logout", "csrf_failed".
	Event     string
	Username  string
	SessionID string
	IPAddress string
	UserAgent string
	Path      string
	Success   bool
	// Reason is a short machine-readable cause for failures.
	Reason string
}

// SecurityLogger writes admin-session events with session ids and usernames masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("auth")}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LogEvent logs a security event.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	if !event.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}
	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.SessionID != "" {
		e = e.Str("session_id", SanitizeSessionID(event.SessionID))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Path != "" {
		e = e.Str("path", event.Path)
	}
	if event.Reason != "" && !event.Success {
		e = e.Str("reason", event.Reason)
	}

	e.Msg("")
}

// LogLoginSuccess logs a successful admin login.
func (l *SecurityLogger) LogLoginSuccess(username, sessionID, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_success",
		Username:  username,
		SessionID: sessionID,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure logs a failed admin login.
func (l *SecurityLogger) LogLoginFailure(username, ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_failed",
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Reason:    reason,
	})
}

// LogLogout logs an explicit logout.
func (l *SecurityLogger) LogLogout(username, sessionID, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "logout",
		Username:  username,
		SessionID: sessionID,
		IPAddress: ip,
		Success:   true,
	})
}

// LogSessionRejected logs a session that failed the guard (expired, fingerprint mismatch).
func (l *SecurityLogger) LogSessionRejected(sessionID, ip, path, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "session_rejected",
		SessionID: sessionID,
		IPAddress: ip,
		Path:      path,
		Reason:    reason,
	})
}

// LogSessionRotated logs a scheduled session id regeneration.
func (l *SecurityLogger) LogSessionRotated(username, oldID, newID string) {
	l.logger.Debug().
		Str("event", "session_rotated").
		Str("username", SanitizeUsername(username)).
		Str("old_session_id", SanitizeSessionID(oldID)).
		Str("session_id", SanitizeSessionID(newID)).
		Msg("")
}

// LogCSRFFailure logs a rejected anti-forgery token.
func (l *SecurityLogger) LogCSRFFailure(ip, userAgent, path, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "csrf_failed",
		IPAddress: ip,
		UserAgent: userAgent,
		Path:      path,
		Reason:    reason,
	})
}

// SanitizeSessionID masks a session ID.
// Example: "abc123def456789" -> "abc1...6789"
func SanitizeSessionID(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	if len(sessionID) <= 12 {
		return "***"
	}
	return sessionID[:4] + "..." + sessionID[len(sessionID)-4:]
}

// SanitizeUsername masks a username, keeping the first 2 characters.
// Example: "johndoe" -> "jo***"
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
