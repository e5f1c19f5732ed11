// Package users declares the repository contract for backoffice accounts.
package users

import (
	"context"
	"time"

	"github.com/npremz/astrobackoffice/internal/server/models"
)

// Repository persists users. Emails are matched case-insensitively.
// Lookups of absent rows return common.ErrorNotFound; inserting a duplicate
// email returns common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	// Update writes name, role and active flag.
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
