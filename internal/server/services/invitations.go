package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/cryptox"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/auth"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
)

// CreatedInvitation carries the raw token, which is shown once to the
// inviting admin and never stored.
type CreatedInvitation struct {
	Invitation *models.Invitation
	Token      string
}

// AcceptInput is the self-service signup payload of an invited user.
type AcceptInput struct {
	Token     string
	Email     string
	Name      string
	Password  string
	UserAgent string
	IP        string
}

// InvitationService onboards accounts through signed, single-use
// invitations.
type InvitationService struct {
	store       dbx.Store
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
	secretKey   []byte
	ttl         time.Duration
	now         Clock
}

func NewInvitationService(store dbx.Store, m repomanager.RepositoryManager, sessions *SessionService, cfg *config.Config) *InvitationService {
	return &InvitationService{
		store:       store,
		repomanager: m,
		sessions:    sessions,
		secretKey:   []byte(cfg.SecretKey),
		ttl:         cfg.InvitationTTL,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (s *InvitationService) WithClock(c Clock) *InvitationService {
	s.now = c
	return s
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", common.ErrorValidation)
	}
	return email, nil
}

// Create invites email with role. Only admins may invite. Any pending
// invitation for the same email is revoked in the same transaction.
func (s *InvitationService) Create(ctx context.Context, inviter *models.User, email, role string) (*CreatedInvitation, error) {
	if inviter == nil || inviter.Role != common.RoleAdmin {
		return nil, common.ErrorForbidden
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !common.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}

	if _, err := s.repomanager.Users(s.store).GetByEmail(ctx, email); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	now := s.now()
	inv := &models.Invitation{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		InvitedBy: inviter.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	token, err := auth.GenerateInvitationToken(inv.ID, inv.Email, s.secretKey, now, inv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	inv.TokenHash = common.HashToken(token)

	err = s.store.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Invitations(tx)
		if _, err := repo.RevokePendingForEmail(ctx, inv.Email); err != nil {
			return fmt.Errorf("error revoking pending invitations: %w", err)
		}
		if err := repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("error creating invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreatedInvitation{Invitation: inv, Token: token}, nil
}

// Verify returns the invitation behind token if it can still be accepted.
func (s *InvitationService) Verify(ctx context.Context, token string) (*models.Invitation, error) {
	return s.usable(ctx, token, s.now())
}

func (s *InvitationService) usable(ctx context.Context, token string, now time.Time) (*models.Invitation, error) {
	claims, err := auth.ParseInvitationToken(token, s.secretKey, now)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.ErrInvitationExpired
		}
		return nil, common.ErrInvitationInvalid
	}

	inv, err := s.repomanager.Invitations(s.store).FindByTokenHash(ctx, common.HashToken(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvitationInvalid
		}
		return nil, err
	}
	if inv.ID != claims.ID || !strings.EqualFold(inv.Email, claims.Email) {
		return nil, common.ErrInvitationInvalid
	}

	switch inv.Status(now) {
	case models.InvitationPending:
		return inv, nil
	case models.InvitationExpired:
		return nil, common.ErrInvitationExpired
	default:
		return nil, common.ErrInvitationInvalid
	}
}

// Accept consumes the invitation, creates the account and logs it in, all
// in one transaction.
func (s *InvitationService) Accept(ctx context.Context, in AcceptInput) (*LoginResult, error) {
	now := s.now()

	inv, err := s.usable(ctx, in.Token, now)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(in.Email), inv.Email) {
		return nil, common.ErrEmailMismatch
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(inv.Email, "@")
	}

	if err := auth.CheckPassword(in.Password, inv.Email, name); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.store).GetByEmail(ctx, inv.Email); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var result LoginResult
	err = s.store.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        inv.Email,
			PasswordHash: hash,
			Name:         name,
			Role:         inv.Role,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).TouchLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		user.LastLoginAt = &now

		if err := s.repomanager.Invitations(tx).MarkAccepted(ctx, inv.ID, now); err != nil {
			return err
		}

		issued, err := s.sessions.create(ctx, tx, user.ID, in.UserAgent, in.IP)
		if err != nil {
			return err
		}

		result = LoginResult{User: user, Session: issued}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Revoke withdraws a pending invitation.
func (s *InvitationService) Revoke(ctx context.Context, id string) error {
	return s.repomanager.Invitations(s.store).Revoke(ctx, id)
}

func (s *InvitationService) ListPending(ctx context.Context) ([]*models.Invitation, error) {
	return s.repomanager.Invitations(s.store).ListPending(ctx, s.now())
}

// CleanupExpired purges unaccepted invitations past expiry.
func (s *InvitationService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repomanager.Invitations(s.store).DeleteExpired(ctx, s.now())
}
