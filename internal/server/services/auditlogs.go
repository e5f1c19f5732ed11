package services

import (
	"context"

	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 500
)

// AuditLogService reads the audit trail for administrators.
type AuditLogService struct {
	store       dbx.Store
	repomanager repomanager.RepositoryManager
}

func NewAuditLogService(store dbx.Store, m repomanager.RepositoryManager) *AuditLogService {
	return &AuditLogService{store: store, repomanager: m}
}

// Recent returns the newest records. limit is clamped to [1, MaxAuditLimit]
// and non-positive values select DefaultAuditLimit.
func (s *AuditLogService) Recent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	switch {
	case limit <= 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	return s.repomanager.AuditLogs(s.store).ListRecent(ctx, limit)
}
