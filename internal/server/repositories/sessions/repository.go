// Package sessions declares the repository contract for login sessions.
package sessions

import (
	"context"
	"time"

	"github.com/npremz/astrobackoffice/internal/server/models"
)

// Repository persists sessions keyed by the hash of their cookie token.
// Delete* methods return the number of rows removed.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error

	// FindValidByTokenHash returns the session only if it is unexpired at now.
	// Absent and expired rows both yield common.ErrorNotFound.
	FindValidByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error)

	ListByUser(ctx context.Context, userID string, now time.Time) ([]*models.Session, error)

	Delete(ctx context.Context, id string) (int64, error)
	DeleteOwned(ctx context.Context, userID, id string) (int64, error)

	// DeleteByUser removes every session of userID except exceptID when it
	// is non-empty.
	DeleteByUser(ctx context.Context, userID, exceptID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
