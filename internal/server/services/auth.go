package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/cryptox"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/auth"
	"github.com/npremz/astrobackoffice/internal/server/authctx"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
)

// dummyCredential is verified against when the account does not exist so
// unknown emails cost the same KDF work as wrong passwords.
var dummyCredential = sync.OnceValue(func() string {
	cred, err := cryptox.HashPassword("not-a-real-password")
	if err != nil {
		return ""
	}
	return cred
})

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	User    *models.User
	Session *IssuedSession
}

// AuthService implements login, logout, principal resolution and password
// changes on top of SessionService.
type AuthService struct {
	store       dbx.Store
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
}

func NewAuthService(store dbx.Store, m repomanager.RepositoryManager, sessions *SessionService) *AuthService {
	return &AuthService{store: store, repomanager: m, sessions: sessions}
}

// Login checks the credentials and opens a session. Unknown email, wrong
// password and deactivated account all yield common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.store)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.VerifyPassword(password, dummyCredential())
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !cryptox.VerifyPassword(password, user.PasswordHash) || !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	issued, err := s.sessions.Create(ctx, user.ID, userAgent, ip)
	if err != nil {
		return nil, err
	}

	now := s.sessions.now()
	if err := repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("error updating last login: %w", err)
	}
	user.LastLoginAt = &now

	return &LoginResult{User: user, Session: issued}, nil
}

// Authenticate resolves a raw session token into a principal. Inactive or
// deleted accounts are rejected with the same error as a bad token.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*authctx.Principal, error) {
	session, err := s.sessions.Validate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.store).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	return &authctx.Principal{User: user, Session: session}, nil
}

// Logout ends the principal's current session, or all of them when all is
// set.
func (s *AuthService) Logout(ctx context.Context, p *authctx.Principal, all bool) (int64, error) {
	if all {
		return s.sessions.RevokeAll(ctx, p.User.ID, "")
	}
	return s.sessions.Revoke(ctx, p.Session.ID)
}

// ChangePassword replaces the principal's password after verifying the
// current one and revokes every other session of the account. It returns
// the number of sessions revoked.
func (s *AuthService) ChangePassword(ctx context.Context, p *authctx.Principal, current, next string) (int64, error) {
	if !cryptox.VerifyPassword(current, p.User.PasswordHash) {
		return 0, fmt.Errorf("%w: current password is incorrect", common.ErrorValidation)
	}
	if err := auth.CheckPassword(next, p.User.Email, p.User.Name); err != nil {
		return 0, err
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var revoked int64
	err = s.store.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, p.User.ID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		n, err := s.sessions.revokeAll(ctx, tx, p.User.ID, p.Session.ID)
		if err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.User.PasswordHash = hash
	return revoked, nil
}
