// Package invitations declares the repository contract for user invitations.
package invitations

import (
	"context"
	"time"

	"github.com/npremz/astrobackoffice/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error)
	ListPending(ctx context.Context, now time.Time) ([]*models.Invitation, error)

	// RevokePendingForEmail marks every unaccepted, unrevoked invitation for
	// email as revoked and returns how many were touched.
	RevokePendingForEmail(ctx context.Context, email string) (int64, error)

	// Revoke marks a single pending invitation revoked. Already accepted or
	// revoked invitations yield common.ErrorNotFound.
	Revoke(ctx context.Context, id string) error

	// MarkAccepted consumes the invitation. It succeeds at most once and
	// only while the invitation is still usable at `at`; otherwise it
	// returns common.ErrInvitationInvalid.
	MarkAccepted(ctx context.Context, id string, at time.Time) error

	// DeleteExpired purges unaccepted invitations past expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
