// Package authctx carries the authenticated principal through a request
// context.
package authctx

import (
	"context"

	"github.com/npremz/astrobackoffice/internal/server/models"
)

// Principal is the user behind a validated session.
type Principal struct {
	User    *models.User
	Session *models.Session
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.User != nil && p.User.Role == "admin"
}
