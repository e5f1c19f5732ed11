// Package auditlogs provides the PostgreSQL-backed audit log repository.
package auditlogs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var changes any
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes: %w", err)
		}
		changes = b
	}

	var actor any
	if e.ActorUserID != "" {
		actor = e.ActorUserID
	}

	query :=
		`INSERT INTO audit_logs (id, actor_user_id, actor_email, action, resource_type, resource_id,
		                         resource_name, changes, status, error_message, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, actor, e.ActorEmail, e.Action, e.ResourceType, e.ResourceID,
		e.ResourceName, changes, string(e.Status), e.ErrorMessage, e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	query :=
		`SELECT id, actor_user_id, actor_email, action, resource_type, resource_id,
		        resource_name, changes, status, error_message, ip_address, user_agent, created_at
		 FROM audit_logs
		 ORDER BY created_at DESC
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditLog
	for rows.Next() {
		e := &models.AuditLog{}
		var actor sql.NullString
		var changes []byte
		var status string
		if err := rows.Scan(&e.ID, &actor, &e.ActorEmail, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.ResourceName, &changes, &status, &e.ErrorMessage, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.ActorUserID = actor.String
		e.Status = models.AuditStatus(status)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, fmt.Errorf("decode changes of %s: %w", e.ID, err)
			}
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
