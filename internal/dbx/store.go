package dbx

import (
	"context"
	"database/sql"
)

// Store is the handle services hold: plain DBTX access for single
// statements plus transaction scoping for multi-statement writes.
type Store interface {
	DBTX
	InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// SQLStore adapts *sql.DB to Store.
type SQLStore struct {
	*sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// InTx runs fn inside a default-isolation transaction; see WithTx.
func (s *SQLStore) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithTx(ctx, s.DB, nil, fn)
}
