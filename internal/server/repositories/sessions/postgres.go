// Package sessions provides the PostgreSQL-backed sessions repository.
package sessions

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

const sessionColumns = `id, user_id, token_hash, user_agent, ip_address, created_at, expires_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) error {
	query :=
		`INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.UserAgent, s.IPAddress, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindValidByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Session, error) {
	query :=
		`SELECT ` + sessionColumns + ` FROM sessions
		 WHERE token_hash = $1 AND expires_at > $2`

	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, tokenHash, now).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IPAddress, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, now time.Time) ([]*models.Session, error) {
	query :=
		`SELECT ` + sessionColumns + ` FROM sessions
		 WHERE user_id = $1 AND expires_at > $2
		 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Session
	for rows.Next() {
		s := &models.Session{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IPAddress, &s.CreatedAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, userID, id string) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID, exceptID string) (int64, error) {
	if exceptID == "" {
		return r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	}
	return r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`, userID, exceptID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
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
