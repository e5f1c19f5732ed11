package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newPolicy(origins ...string) *Policy {
	return New(DefaultConfig(true, origins))
}

func TestIsAllowed(t *testing.T) {
	p := newPolicy("https://cms.example.com", "https://*.preview.example.com", "*.example.org", "not a url", "ftp://x.example")

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"null", true},
		{"https://cms.example.com", true},
		{"https://CMS.example.com", true},
		{"http://cms.example.com", false},
		{"https://cms.example.com:8443", false},
		{"https://evil.example.com", false},
		{"https://pr-12.preview.example.com", true},
		{"http://pr-12.preview.example.com", false},
		{"https://preview.example.com", false},
		{"https://a.example.org", true},
		{"http://a.b.example.org", true},
		{"https://example.org", false},
		{"https://a.example.org.evil.net", false},
		{"https://cms.example.com/path", false},
		{"ftp://x.example", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsAllowed(tt.origin))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	dev := New(DefaultConfig(false, nil))
	assert.True(t, dev.IsAllowed("http://localhost:4321"))
	assert.True(t, dev.IsAllowed("http://localhost"))
	assert.True(t, dev.IsAllowed("http://127.0.0.1:3000"))
	assert.True(t, dev.IsAllowed("http://[::1]:8080"))
	assert.False(t, dev.IsAllowed("https://cms.example.com"))

	prod := New(DefaultConfig(true, nil))
	assert.False(t, prod.IsAllowed("http://localhost:4321"))
	assert.True(t, prod.IsAllowed(""), "same-origin requests carry no Origin")

	explicit := New(DefaultConfig(false, []string{"https://cms.example.com"}))
	assert.False(t, explicit.IsAllowed("http://localhost:4321"), "explicit list replaces the local default")
}

func TestApply_ReflectsAllowedOrigin(t *testing.T) {
	p := newPolicy("https://cms.example.com")
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Origin", "https://cms.example.com")
	h := http.Header{}

	p.Apply(h, r)

	assert.Equal(t, "https://cms.example.com", h.Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", h.Get("Vary"))
	assert.Contains(t, h.Get("Access-Control-Expose-Headers"), "Retry-After")
}

func TestApply_NoHeadersForDisallowedOrMissingOrigin(t *testing.T) {
	p := newPolicy("https://cms.example.com")

	for _, origin := range []string{"", "null", "https://evil.example.com"} {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		h := http.Header{"X-Existing": []string{"1"}}
		p.Apply(h, r)
		assert.Equal(t, http.Header{"X-Existing": []string{"1"}}, h, origin)
	}
}

func TestPreflight(t *testing.T) {
	p := New(Config{
		AllowedOrigins:   []string{"https://cms.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           90 * time.Second,
	})

	preflight := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
		r.Header.Set("Origin", origin)
		r.Header.Set("Access-Control-Request-Method", "POST")
		return r
	}

	t.Run("allowed", func(t *testing.T) {
		h := http.Header{}
		assert.True(t, p.Preflight(h, preflight("https://cms.example.com")))
		assert.Equal(t, "https://cms.example.com", h.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST", h.Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, X-CSRF-Token", h.Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "90", h.Get("Access-Control-Max-Age"))
	})

	t.Run("disallowed gets no headers", func(t *testing.T) {
		h := http.Header{}
		assert.True(t, p.Preflight(h, preflight("https://evil.example.com")))
		assert.Empty(t, h)
	})

	t.Run("plain options is not a preflight", func(t *testing.T) {
		h := http.Header{}
		r := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
		r.Header.Set("Origin", "https://cms.example.com")
		assert.False(t, p.Preflight(h, r))
		assert.Empty(t, h)
	})
}
