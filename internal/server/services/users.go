package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/cryptox"
	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/server/auth"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
)

// UserPatch lists the fields an admin may change. Nil fields are left
// untouched.
type UserPatch struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// UserUpdate reports the outcome of an admin edit.
type UserUpdate struct {
	User            *models.User
	Changes         map[string]any
	RevokedSessions int64
}

// UserService manages accounts on behalf of administrators.
type UserService struct {
	store       dbx.Store
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
}

func NewUserService(store dbx.Store, m repomanager.RepositoryManager, sessions *SessionService) *UserService {
	return &UserService{store: store, repomanager: m, sessions: sessions}
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.store).List(ctx)
}

// CreateUser registers an active account directly, bypassing invitations.
// It is used to bootstrap the first administrator.
func (s *UserService) CreateUser(ctx context.Context, email, name, role, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !common.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if err := auth.CheckPassword(password, email, name); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repomanager.Users(s.store).Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		IsActive:     true,
	})
}

// Update applies patch to the account id. Admins cannot change their own
// role or deactivate themselves. Deactivation revokes every session of the
// account in the same transaction.
func (s *UserService) Update(ctx context.Context, actor *models.User, id string, patch UserPatch) (*UserUpdate, error) {
	user, err := s.repomanager.Users(s.store).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", common.ErrorValidation)
		}
		if name != user.Name {
			changes["name"] = map[string]any{"from": user.Name, "to": name}
			user.Name = name
		}
	}
	if patch.Role != nil && *patch.Role != user.Role {
		if !common.ValidRole(*patch.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, *patch.Role)
		}
		if actor.ID == user.ID {
			return nil, fmt.Errorf("%w: cannot change your own role", common.ErrorValidation)
		}
		changes["role"] = map[string]any{"from": user.Role, "to": *patch.Role}
		user.Role = *patch.Role
	}
	if patch.IsActive != nil && *patch.IsActive != user.IsActive {
		if actor.ID == user.ID {
			return nil, fmt.Errorf("%w: cannot deactivate your own account", common.ErrorValidation)
		}
		changes["isActive"] = map[string]any{"from": user.IsActive, "to": *patch.IsActive}
		user.IsActive = *patch.IsActive
	}

	result := &UserUpdate{User: user, Changes: changes}
	if len(changes) == 0 {
		return result, nil
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Update(ctx, user); err != nil {
			return err
		}
		if !user.IsActive {
			n, err := s.sessions.revokeAll(ctx, tx, user.ID, "")
			if err != nil {
				return fmt.Errorf("error revoking sessions: %w", err)
			}
			result.RevokedSessions = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes the account id together with its sessions and returns the
// deleted user and how many sessions were revoked.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) (*models.User, int64, error) {
	if actor.ID == id {
		return nil, 0, fmt.Errorf("%w: cannot delete your own account", common.ErrorValidation)
	}

	user, err := s.repomanager.Users(s.store).GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	var revoked int64
	err = s.store.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.sessions.revokeAll(ctx, tx, id, "")
		if err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		revoked = n
		return s.repomanager.Users(tx).Delete(ctx, id)
	})
	if err != nil {
		return nil, 0, err
	}

	return user, revoked, nil
}
