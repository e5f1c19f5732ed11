// Package auditlogs declares the repository contract for audit records.
package auditlogs

import (
	"context"

	"github.com/npremz/astrobackoffice/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)
}
