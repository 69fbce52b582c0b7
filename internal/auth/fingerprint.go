// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const (
	fingerprintVersion = "v1:"
	fingerprintHashLen = 16
)

// Fingerprinter binds a session to the client that created it using the
// user agent and the client's IP subnet. Masking to a subnet keeps sessions
// alive across address changes inside one network.
type Fingerprinter struct {
	IPv4Prefix int
	IPv6Prefix int
}

// DefaultFingerprinter masks IPv4 to /24 and IPv6 to /64.
func DefaultFingerprinter() Fingerprinter {
	return Fingerprinter{IPv4Prefix: 24, IPv6Prefix: 64}
}

// Generate returns "v1:" followed by hex(sha256(user_agent|subnet)[:16]).
func (f Fingerprinter) Generate(userAgent, ip string) string {
	combined := userAgent + "|" + f.Subnet(ip)
	hash := sha256.Sum256([]byte(combined))
	return fingerprintVersion + hex.EncodeToString(hash[:fingerprintHashLen])
}

// FromRequest fingerprints an inbound request.
func (f Fingerprinter) FromRequest(r *http.Request) string {
	return f.Generate(r.UserAgent(), ClientIP(r))
}

// Matches reports whether stored equals the fingerprint of r, in constant time.
func (f Fingerprinter) Matches(r *http.Request, stored string) bool {
	if !strings.HasPrefix(stored, fingerprintVersion) {
		return false
	}
	current := f.FromRequest(r)
	return subtle.ConstantTimeCompare([]byte(current), []byte(stored)) == 1
}

// Subnet returns the masked network for ip, or ip unchanged when it does not parse.
func (f Fingerprinter) Subnet(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ip
	}
	addr = addr.Unmap()

	bits := f.IPv6Prefix
	if addr.Is4() {
		bits = f.IPv4Prefix
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return addr.String()
	}
	return prefix.String()
}

// ClientIP returns the request's remote IP without the port. chi's RealIP
// middleware has already replaced RemoteAddr when running behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
