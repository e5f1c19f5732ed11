// Package netx extracts network facts about an incoming HTTP request.
package netx

import (
	"net/http"
	"strings"
)

// UnknownClient is the identifier used when no proxy header names the client.
const UnknownClient = "unknown"

// ClientIdentifier returns the client address as reported by the reverse
// proxy: the first hop of X-Forwarded-For, then X-Real-Ip, else "unknown".
// The TCP peer address is not consulted.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-Ip")); real != "" {
		return real
	}
	return UnknownClient
}
