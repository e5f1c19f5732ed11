package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/auditlogs"
	"github.com/npremz/astrobackoffice/internal/server/repositories/invitations"
	"github.com/npremz/astrobackoffice/internal/server/repositories/sessions"
	"github.com/npremz/astrobackoffice/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps every table in process memory. It backs the
// "memory" DSN for local runs and the HTTP end-to-end tests. The DBTX given
// to the factories is ignored. Transactions run through Store roll back on
// error but are not isolated from writes made outside them.
type MemoryRepositoryManager struct {
	txMu        sync.Mutex
	mu          sync.Mutex
	users       map[string]*models.User
	sessions    map[string]*models.Session
	invitations map[string]*models.Invitation
	audit       []*models.AuditLog
	now         func() time.Time
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:       map[string]*models.User{},
		sessions:    map[string]*models.Session{},
		invitations: map[string]*models.Invitation{},
		now:         time.Now,
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return memUsers{m} }

func (m *MemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository { return memSessions{m} }

func (m *MemoryRepositoryManager) Invitations(dbx.DBTX) invitations.Repository {
	return memInvitations{m}
}

func (m *MemoryRepositoryManager) AuditLogs(dbx.DBTX) auditlogs.Repository { return memAudit{m} }

// Store returns a dbx.Store whose InTx restores m when fn fails.
func (m *MemoryRepositoryManager) Store() MemoryStore {
	return MemoryStore{m: m}
}

type memorySnapshot struct {
	users       map[string]models.User
	sessions    map[string]models.Session
	invitations map[string]models.Invitation
	audit       []*models.AuditLog
}

func (m *MemoryRepositoryManager) snapshot() memorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := memorySnapshot{
		users:       make(map[string]models.User, len(m.users)),
		sessions:    make(map[string]models.Session, len(m.sessions)),
		invitations: make(map[string]models.Invitation, len(m.invitations)),
		audit:       append([]*models.AuditLog(nil), m.audit...),
	}
	for id, u := range m.users {
		s.users[id] = *u
	}
	for id, ss := range m.sessions {
		s.sessions[id] = *ss
	}
	for id, inv := range m.invitations {
		s.invitations[id] = *inv
	}
	return s
}

func (m *MemoryRepositoryManager) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*models.User, len(s.users))
	for id, u := range s.users {
		m.users[id] = &u
	}
	m.sessions = make(map[string]*models.Session, len(s.sessions))
	for id, ss := range s.sessions {
		m.sessions[id] = &ss
	}
	m.invitations = make(map[string]*models.Invitation, len(s.invitations))
	for id, inv := range s.invitations {
		m.invitations[id] = &inv
	}
	m.audit = s.audit
}

// MemoryStore is the dbx.Store companion of MemoryRepositoryManager. The
// statement methods are never reached because the memory repositories
// ignore their handle. The zero value runs InTx without rollback; use
// MemoryRepositoryManager.Store for one that rolls back.
type MemoryStore struct {
	m *MemoryRepositoryManager
}

var errNoDatabase = errors.New("memory store has no database")

func (MemoryStore) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoDatabase
}

func (MemoryStore) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoDatabase
}

func (MemoryStore) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

// InTx serialises transactions and, when bound to a manager, puts every
// table back as it was if fn returns an error or panics.
func (s MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if s.m == nil {
		return fn(ctx, s)
	}

	s.m.txMu.Lock()
	defer s.m.txMu.Unlock()

	snap := s.m.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.m.restore(snap)
			panic(p)
		}
		if err != nil {
			s.m.restore(snap)
		}
	}()

	return fn(ctx, s)
}

type memUsers struct{ m *MemoryRepositoryManager }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.m.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) List(context.Context) ([]*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]*models.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memUsers) Update(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.users[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	stored.Name, stored.Role, stored.IsActive = u.Name, u.Role, u.IsActive
	stored.UpdatedAt = r.m.now()
	u.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id string, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	stored.PasswordHash = hash
	stored.UpdatedAt = r.m.now()
	return nil
}

func (r memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	stored.LastLoginAt = &at
	return nil
}

// Delete mirrors the schema's ON DELETE rules: sessions cascade and
// invitations lose their inviter.
func (r memUsers) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.users, id)
	for sid, s := range r.m.sessions {
		if s.UserID == id {
			delete(r.m.sessions, sid)
		}
	}
	for _, inv := range r.m.invitations {
		if inv.InvitedBy == id {
			inv.InvitedBy = ""
		}
	}
	return nil
}

type memSessions struct{ m *MemoryRepositoryManager }

func (r memSessions) Create(_ context.Context, s *models.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	cp := *s
	r.m.sessions[s.ID] = &cp
	return nil
}

func (r memSessions) FindValidByTokenHash(_ context.Context, hash string, now time.Time) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, s := range r.m.sessions {
		if s.TokenHash == hash && s.ExpiresAt.After(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSessions) ListByUser(_ context.Context, userID string, now time.Time) ([]*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Session
	for _, s := range r.m.sessions {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memSessions) deleteWhere(match func(*models.Session) bool) int64 {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, s := range r.m.sessions {
		if match(s) {
			delete(r.m.sessions, id)
			n++
		}
	}
	return n
}

func (r memSessions) Delete(_ context.Context, id string) (int64, error) {
	return r.deleteWhere(func(s *models.Session) bool { return s.ID == id }), nil
}

func (r memSessions) DeleteOwned(_ context.Context, userID, id string) (int64, error) {
	return r.deleteWhere(func(s *models.Session) bool { return s.ID == id && s.UserID == userID }), nil
}

func (r memSessions) DeleteByUser(_ context.Context, userID, exceptID string) (int64, error) {
	return r.deleteWhere(func(s *models.Session) bool {
		return s.UserID == userID && (exceptID == "" || s.ID != exceptID)
	}), nil
}

func (r memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(s *models.Session) bool { return !s.ExpiresAt.After(now) }), nil
}

type memInvitations struct{ m *MemoryRepositoryManager }

func (r memInvitations) Create(_ context.Context, inv *models.Invitation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	cp := *inv
	r.m.invitations[inv.ID] = &cp
	return nil
}

func (r memInvitations) GetByID(_ context.Context, id string) (*models.Invitation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	inv, ok := r.m.invitations[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r memInvitations) FindByTokenHash(_ context.Context, hash string) (*models.Invitation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, inv := range r.m.invitations {
		if inv.TokenHash == hash {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memInvitations) ListPending(_ context.Context, now time.Time) ([]*models.Invitation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Invitation
	for _, inv := range r.m.invitations {
		if inv.Status(now) == models.InvitationPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memInvitations) RevokePendingForEmail(_ context.Context, email string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for _, inv := range r.m.invitations {
		if strings.EqualFold(inv.Email, email) && inv.AcceptedAt == nil && !inv.Revoked {
			inv.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r memInvitations) Revoke(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	inv, ok := r.m.invitations[id]
	if !ok || inv.AcceptedAt != nil || inv.Revoked {
		return common.ErrorNotFound
	}
	inv.Revoked = true
	return nil
}

func (r memInvitations) MarkAccepted(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	inv, ok := r.m.invitations[id]
	if !ok || inv.Status(at) != models.InvitationPending {
		return common.ErrInvitationInvalid
	}
	inv.AcceptedAt = &at
	return nil
}

func (r memInvitations) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, inv := range r.m.invitations {
		if inv.AcceptedAt == nil && !inv.ExpiresAt.After(now) {
			delete(r.m.invitations, id)
			n++
		}
	}
	return n, nil
}

type memAudit struct{ m *MemoryRepositoryManager }

func (r memAudit) Create(_ context.Context, e *models.AuditLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	cp := *e
	r.m.audit = append(r.m.audit, &cp)
	return nil
}

func (r memAudit) ListRecent(_ context.Context, limit int) ([]*models.AuditLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.AuditLog
	for i := len(r.m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.m.audit[i]
		out = append(out, &cp)
	}
	return out, nil
}
