package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password_hash", "name", "role", "is_active", "last_login_at", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,\s*name,\s*role,\s*is_active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "scrypt:aa:bb", "Alice", "admin", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &models.User{Email: "alice@example.com", PasswordHash: "scrypt:aa:bb", Name: "Alice", Role: "admin", IsActive: true}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\b`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "alice@example.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\b`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+lower\(email\)\s*=\s*lower\(\$1\)\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("Alice@Example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "alice@example.com", "scrypt:aa:bb", "Alice", "editor", true, now, now, now))

	got, err := repo.GetByEmail(context.Background(), "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, "editor", got.Role)
	require.NotNil(t, got.LastLoginAt)
	assert.Equal(t, now, *got.LastLoginAt)
}

func TestGetByID_NullLastLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "alice@example.com", "h", "", "viewer", false, nil, now, now))

	got, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Nil(t, got.LastLoginAt)
	assert.False(t, got.IsActive)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+created_at\s+ASC\s*$`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "a@example.com", "h", "", "admin", true, nil, now, now).
			AddRow("u-2", "b@example.com", "h", "", "editor", true, nil, now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u-2", got[1].ID)
}

func TestList_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users`).WillReturnError(errors.New("db err"))

	_, err := repo.List(context.Background())
	require.ErrorContains(t, err, "db error")
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*\$2,\s*role\s*=\s*\$3,\s*is_active\s*=\s*\$4,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u-1", "Alice", "viewer", false).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectQuery(q).
		WithArgs("ghost", "", "viewer", true).
		WillReturnError(sql.ErrNoRows)

	u := &models.User{ID: "u-1", Name: "Alice", Role: "viewer", IsActive: false}
	require.NoError(t, repo.Update(context.Background(), u))
	assert.Equal(t, now, u.UpdatedAt)

	err := repo.Update(context.Background(), &models.User{ID: "ghost", Role: "viewer", IsActive: true})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdatePassword(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).WithArgs("u-1", "scrypt:new").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("ghost", "scrypt:new").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", "scrypt:new"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "ghost", "scrypt:new"), common.ErrorNotFound)
}

func TestTouchLastLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+last_login_at\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("u-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastLogin(context.Background(), "u-1", at))
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u-2").WillReturnError(errors.New("db err"))

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	require.ErrorContains(t, repo.Delete(context.Background(), "u-2"), "db error: db err")
}
