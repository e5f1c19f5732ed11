// Package services contains server-side business logic: sessions, login,
// invitations, account administration, media uploads and maintenance.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
)

// sessionTokenSize is the number of random bytes in a session cookie token.
const sessionTokenSize = 32

var makeSessionToken = common.MakeRandHexString

// IssuedSession is a freshly created session together with the raw cookie
// token. The token is returned exactly once and never stored.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	Session   *models.Session
}

// SessionService issues, validates and revokes opaque session tokens.
type SessionService struct {
	store       dbx.Store
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         Clock
}

func NewSessionService(store dbx.Store, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		store:       store,
		repomanager: m,
		ttl:         cfg.SessionTTL,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (s *SessionService) WithClock(c Clock) *SessionService {
	s.now = c
	return s
}

// Create issues a session for userID.
func (s *SessionService) Create(ctx context.Context, userID, userAgent, ip string) (*IssuedSession, error) {
	return s.create(ctx, s.store, userID, userAgent, ip)
}

// create issues a session through db so callers can include it in a
// transaction.
func (s *SessionService) create(ctx context.Context, db dbx.DBTX, userID, userAgent, ip string) (*IssuedSession, error) {
	token, err := makeSessionToken(sessionTokenSize)
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: common.HashToken(token),
		UserAgent: userAgent,
		IPAddress: ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repomanager.Sessions(db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &IssuedSession{Token: token, ExpiresAt: session.ExpiresAt, Session: session}, nil
}

// Validate resolves a raw cookie token. Absent and expired sessions are
// indistinguishable and both yield common.ErrorUnauthorized.
func (s *SessionService) Validate(ctx context.Context, rawToken string) (*models.Session, error) {
	if rawToken == "" {
		return nil, common.ErrorUnauthorized
	}

	session, err := s.repomanager.Sessions(s.store).FindValidByTokenHash(ctx, common.HashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return session, nil
}

// Revoke deletes one session by id.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) (int64, error) {
	return s.repomanager.Sessions(s.store).Delete(ctx, sessionID)
}

// RevokeOwned deletes a session only if it belongs to userID. A foreign or
// unknown id revokes nothing.
func (s *SessionService) RevokeOwned(ctx context.Context, userID, sessionID string) (int64, error) {
	return s.repomanager.Sessions(s.store).DeleteOwned(ctx, userID, sessionID)
}

// RevokeAll deletes every session of userID, keeping exceptSessionID when it
// is not empty.
func (s *SessionService) RevokeAll(ctx context.Context, userID, exceptSessionID string) (int64, error) {
	return s.revokeAll(ctx, s.store, userID, exceptSessionID)
}

func (s *SessionService) revokeAll(ctx context.Context, db dbx.DBTX, userID, exceptSessionID string) (int64, error) {
	return s.repomanager.Sessions(db).DeleteByUser(ctx, userID, exceptSessionID)
}

// CleanupExpired purges sessions past their expiry.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.store).DeleteExpired(ctx, s.now())
}

// ListForUser returns the live sessions of userID.
func (s *SessionService) ListForUser(ctx context.Context, userID string) ([]*models.Session, error) {
	return s.repomanager.Sessions(s.store).ListByUser(ctx, userID, s.now())
}
