// Package cors decides which browser origins may call the API with
// credentials and computes the matching response headers.
package cors

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config is the origin allow-list plus the preflight answers.
//
// AllowedOrigins entries take one of these forms:
//
//	https://cms.example.com     exact origin
//	https://*.example.com       any subdomain, https only
//	*.example.com               any subdomain, http or https
//	http://localhost:*          exact host, any port
type Config struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

var localOrigins = []string{
	"http://localhost:*", "https://localhost:*",
	"http://127.0.0.1:*", "https://127.0.0.1:*",
	"http://[::1]:*", "https://[::1]:*",
}

// DefaultConfig returns the policy for environment. Without explicit origins
// a non-production environment accepts local origins on any port, while
// production accepts none.
func DefaultConfig(production bool, origins []string) Config {
	allowed := origins
	if len(allowed) == 0 && !production {
		allowed = localOrigins
	}
	return Config{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token", "Authorization"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
}

type rule struct {
	scheme    string // empty matches http and https
	host      string // exact hostname, or the suffix after "*."
	subdomain bool
	port      string // "*" matches any
}

// Policy is a compiled Config.
type Policy struct {
	cfg   Config
	rules []rule
}

// New compiles cfg. Entries that cannot be parsed are ignored.
func New(cfg Config) *Policy {
	p := &Policy{cfg: cfg}
	for _, o := range cfg.AllowedOrigins {
		if r, ok := parseRule(o); ok {
			p.rules = append(p.rules, r)
		}
	}
	return p
}

func parseRule(pattern string) (rule, bool) {
	pattern = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(pattern, "/")))
	if pattern == "" {
		return rule{}, false
	}

	if strings.HasPrefix(pattern, "*.") {
		return rule{host: pattern[2:], subdomain: true}, true
	}

	scheme, rest, ok := strings.Cut(pattern, "://")
	if !ok || (scheme != "http" && scheme != "https") {
		return rule{}, false
	}

	r := rule{scheme: scheme}
	if strings.HasPrefix(rest, "*.") {
		r.subdomain = true
		rest = rest[2:]
	}
	if strings.HasSuffix(rest, ":*") {
		r.port = "*"
		rest = strings.TrimSuffix(rest, ":*")
	}

	u, err := url.Parse(scheme + "://" + rest)
	if err != nil || u.Hostname() == "" || u.Path != "" {
		return rule{}, false
	}
	r.host = u.Hostname()
	if r.port == "" {
		r.port = u.Port()
	}
	return r, true
}

func (r rule) match(scheme, host, port string) bool {
	if r.scheme != "" && r.scheme != scheme {
		return false
	}
	if r.subdomain {
		if !strings.HasSuffix(host, "."+r.host) {
			return false
		}
	} else if host != r.host {
		return false
	}
	return r.port == "*" || r.port == port
}

// isNullOrigin covers same-origin requests (no header) and the opaque
// "null" origin. Both are let through but never reflected.
func isNullOrigin(origin string) bool {
	return origin == "" || origin == "null"
}

// IsAllowed reports whether origin may access the API.
func (p *Policy) IsAllowed(origin string) bool {
	if isNullOrigin(origin) {
		return true
	}
	return p.matches(origin)
}

func (p *Policy) matches(origin string) bool {
	u, err := url.Parse(strings.ToLower(origin))
	if err != nil || u.Host == "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.User != nil {
		return false
	}
	scheme, host, port := u.Scheme, u.Hostname(), u.Port()
	for _, r := range p.rules {
		if r.match(scheme, host, port) {
			return true
		}
	}
	return false
}

// reflectable reports whether origin gets CORS headers.
func (p *Policy) reflectable(origin string) bool {
	return !isNullOrigin(origin) && p.matches(origin)
}

// IsPreflight reports whether r is a CORS preflight request.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}

// Preflight writes the preflight answer headers into h when r is a
// preflight from an allowed origin. It returns whether r was a preflight at
// all; the caller answers every preflight with 204, so a disallowed origin
// simply receives no CORS headers.
func (p *Policy) Preflight(h http.Header, r *http.Request) bool {
	if !IsPreflight(r) {
		return false
	}
	origin := r.Header.Get("Origin")
	if !p.reflectable(origin) {
		return true
	}

	p.setOriginHeaders(h, origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.cfg.AllowedMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(p.cfg.AllowedHeaders, ", "))
	if p.cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(int(p.cfg.MaxAge.Seconds())))
	}
	return true
}

// Apply layers the CORS response headers onto h for a non-preflight
// request. It leaves h untouched when r has no Origin or the origin is not
// allowed.
func (p *Policy) Apply(h http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !p.reflectable(origin) {
		return
	}
	p.setOriginHeaders(h, origin)
	if len(p.cfg.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(p.cfg.ExposedHeaders, ", "))
	}
}

func (p *Policy) setOriginHeaders(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	if p.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Add("Vary", "Origin")
}
