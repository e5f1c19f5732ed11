// Package invitations provides the PostgreSQL-backed invitations repository.
package invitations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/models"
)

const invitationColumns = `id, email, role, token_hash, invited_by, expires_at, accepted_at, revoked, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query :=
		`INSERT INTO invitations (id, email, role, token_hash, invited_by, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.Email, inv.Role, inv.TokenHash, nullable(inv.InvitedBy), inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token_hash = $1`
	return r.getOne(ctx, query, tokenHash)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, now time.Time) ([]*models.Invitation, error) {
	query :=
		`SELECT ` + invitationColumns + ` FROM invitations
		 WHERE accepted_at IS NULL AND revoked = FALSE AND expires_at > $1
		 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) RevokePendingForEmail(ctx context.Context, email string) (int64, error) {
	query :=
		`UPDATE invitations SET revoked = TRUE
		 WHERE lower(email) = lower($1) AND accepted_at IS NULL AND revoked = FALSE`
	return r.exec(ctx, query, email)
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	query :=
		`UPDATE invitations SET revoked = TRUE
		 WHERE id = $1 AND accepted_at IS NULL AND revoked = FALSE`

	n, err := r.exec(ctx, query, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE invitations SET accepted_at = $2
		 WHERE id = $1 AND accepted_at IS NULL AND revoked = FALSE AND expires_at > $2`

	n, err := r.exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrInvitationInvalid
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at <= $1`
	return r.exec(ctx, query, now)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(s scanner) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var invitedBy sql.NullString
	var acceptedAt sql.NullTime
	err := s.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.TokenHash, &invitedBy,
		&inv.ExpiresAt, &acceptedAt, &inv.Revoked, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.InvitedBy = invitedBy.String
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return inv, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
