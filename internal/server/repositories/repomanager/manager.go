package repomanager

import (
	"context"
	"database/sql"

	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/repositories/auditlogs"
	"github.com/npremz/astrobackoffice/internal/server/repositories/invitations"
	"github.com/npremz/astrobackoffice/internal/server/repositories/sessions"
	"github.com/npremz/astrobackoffice/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Invitations(db dbx.DBTX) invitations.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
}
