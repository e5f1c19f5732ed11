package csrf

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	g := NewGuard("secret", false)

	assert.True(t, g.Validate("abc123", "abc123"))
	assert.False(t, g.Validate("abc123", "abc124"))
	assert.False(t, g.Validate("abc123", "abc1234"))
	assert.False(t, g.Validate("", "abc123"))
	assert.False(t, g.Validate("abc123", ""))
	assert.False(t, g.Validate("", ""))
}

func TestValidate_IndependentOfSecret(t *testing.T) {
	a := NewGuard("one", false)
	b := NewGuard("two", false)

	assert.True(t, a.Validate("tok", "tok"))
	assert.True(t, b.Validate("tok", "tok"))
	assert.NotEqual(t, a.mac("tok"), b.mac("tok"))
}

func TestIssueIfAbsent_MintsCookie(t *testing.T) {
	g := NewGuard("secret", true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	token, err := g.IssueIfAbsent(w, r)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	res := w.Result()
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, common.CSRFCookieName, c.Name)
	assert.Equal(t, token, c.Value)
	assert.False(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 24*60*60, c.MaxAge)
}

func TestIssueIfAbsent_ReusesExisting(t *testing.T) {
	g := NewGuard("secret", false)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: common.CSRFCookieName, Value: "existing"})

	token, err := g.IssueIfAbsent(w, r)
	require.NoError(t, err)
	assert.Equal(t, "existing", token)
	assert.Empty(t, w.Result().Cookies())
}

func TestIssueIfAbsent_TokenFailure(t *testing.T) {
	g := NewGuard("secret", false)
	g.newToken = func() (string, error) { return "", errors.New("no entropy") }

	_, err := g.IssueIfAbsent(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorContains(t, err, "csrf token")
}

func TestValidateRequest(t *testing.T) {
	g := NewGuard("secret", false)

	r := httptest.NewRequest(http.MethodPost, "/api/x", nil)
	r.AddCookie(&http.Cookie{Name: common.CSRFCookieName, Value: "tok"})
	assert.False(t, g.ValidateRequest(r), "header missing")

	r.Header.Set("X-CSRF-Token", "tok")
	assert.True(t, g.ValidateRequest(r))

	r2 := httptest.NewRequest(http.MethodPost, "/api/x", nil)
	r2.Header.Set("X-CSRF-Token", "tok")
	assert.False(t, g.ValidateRequest(r2), "cookie missing")
}

func TestRequiresValidation(t *testing.T) {
	for _, m := range []string{"POST", "put", "Patch", "DELETE"} {
		assert.True(t, RequiresValidation(m), m)
	}
	for _, m := range []string{"GET", "head", "OPTIONS", "TRACE", ""} {
		assert.False(t, RequiresValidation(m), m)
	}
}
