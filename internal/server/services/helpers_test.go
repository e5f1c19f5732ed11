package services

import (
	"context"
	"testing"
	"time"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/cryptox"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Correct-Horse-Battery-9"

type fixture struct {
	rm          *repomanager.MemoryRepositoryManager
	store       repomanager.MemoryStore
	cfg         *config.Config
	clock       *fakeClock
	sessions    *SessionService
	auth        *AuthService
	invitations *InvitationService
	users       *UserService
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SessionTTL = time.Hour
	cfg.InvitationTTL = 48 * time.Hour

	f := &fixture{
		rm:    repomanager.NewMemoryRepositoryManager(),
		cfg:   cfg,
		clock: &fakeClock{t: time.Now()},
	}
	f.store = f.rm.Store()
	f.sessions = NewSessionService(f.store, f.rm, cfg).WithClock(f.clock.Now)
	f.auth = NewAuthService(f.store, f.rm, f.sessions)
	f.invitations = NewInvitationService(f.store, f.rm, f.sessions, cfg).WithClock(f.clock.Now)
	f.users = NewUserService(f.store, f.rm, f.sessions)
	return f
}

func (f *fixture) addUser(t *testing.T, email, role string, active bool) *models.User {
	t.Helper()
	hash, err := cryptox.HashPassword(strongPassword)
	require.NoError(t, err)
	u, err := f.rm.Users(nil).Create(context.Background(), &models.User{
		Email: email, PasswordHash: hash, Name: "Test", Role: role, IsActive: active,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) addAdmin(t *testing.T) *models.User {
	t.Helper()
	return f.addUser(t, "admin@example.com", common.RoleAdmin, true)
}
