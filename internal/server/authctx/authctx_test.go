package authctx

import (
	"context"
	"testing"

	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	p := &Principal{User: &models.User{ID: "u-1", Role: "admin"}, Session: &models.Session{ID: "s-1"}}
	got, ok := FromContext(WithPrincipal(context.Background(), p))
	assert.True(t, ok)
	assert.Same(t, p, got)
	assert.True(t, got.IsAdmin())

	_, ok = FromContext(WithPrincipal(context.Background(), nil))
	assert.False(t, ok)
}

func TestIsAdmin(t *testing.T) {
	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.IsAdmin())
	assert.False(t, (&Principal{}).IsAdmin())
	assert.False(t, (&Principal{User: &models.User{Role: "editor"}}).IsAdmin())
}
