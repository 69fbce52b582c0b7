// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig holds the session cookie attributes. The same attributes are
// used to set and to expire the cookie so browsers match them up.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns secure cookie defaults.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "panelhouse_admin",
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ParseSameSite converts a config string to http.SameSite, defaulting to Lax.
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// sessionCookie builds the browser-session cookie. It carries no Max-Age;
// inactivity is enforced server-side.
func (c CookieConfig) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
}

// expiredCookie builds a deletion cookie with matching attributes.
func (c CookieConfig) expiredCookie() *http.Cookie {
	cookie := c.sessionCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

// sessionIDFromRequest returns the session id cookie value, or "".
func (c CookieConfig) sessionIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
