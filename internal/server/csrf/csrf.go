// Package csrf implements double-submit cookie protection. The token lives
// in a JS-readable cookie and must be echoed back in a request header on
// every state-changing call.
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/npremz/astrobackoffice/internal/common"
)

const tokenBytes = 32

// Guard issues and checks CSRF tokens.
type Guard struct {
	secret   []byte
	secure   bool
	ttl      time.Duration
	newToken func() (string, error)
}

// NewGuard returns a Guard keyed by secret. secure sets the cookie Secure
// flag and should be true in production.
func NewGuard(secret string, secure bool) *Guard {
	return &Guard{
		secret:   []byte(secret),
		secure:   secure,
		ttl:      common.CSRFTokenTTL,
		newToken: func() (string, error) { return common.MakeRandHexString(tokenBytes) },
	}
}

// IssueIfAbsent returns the CSRF token carried by r, or mints one and sets
// it as a cookie on w when r has none.
func (g *Guard) IssueIfAbsent(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(common.CSRFCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	token, err := g.newToken()
	if err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.ttl.Seconds()),
		Expires:  time.Now().Add(g.ttl),
		HttpOnly: false,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return token, nil
}

// Validate reports whether the cookie and header tokens match. Either side
// missing fails. Both sides go through HMAC-SHA256 before a constant-time
// comparison, so raw tokens of different lengths are never compared.
func (g *Guard) Validate(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	return hmac.Equal(g.mac(cookieToken), g.mac(headerToken))
}

// ValidateRequest applies Validate to the cookie and header of r.
func (g *Guard) ValidateRequest(r *http.Request) bool {
	var cookieToken string
	if c, err := r.Cookie(common.CSRFCookieName); err == nil {
		cookieToken = c.Value
	}
	return g.Validate(cookieToken, r.Header.Get(common.CSRFHeaderName))
}

func (g *Guard) mac(token string) []byte {
	h := hmac.New(sha256.New, g.secret)
	h.Write([]byte(token))
	return h.Sum(nil)
}

// RequiresValidation reports whether method changes state and therefore
// needs a CSRF token.
func RequiresValidation(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
