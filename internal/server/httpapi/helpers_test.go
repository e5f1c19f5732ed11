package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/cors"
	"github.com/npremz/astrobackoffice/internal/server/csrf"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/ratelimit"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
	"github.com/npremz/astrobackoffice/internal/server/services"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail     = "admin@example.com"
	editorEmail    = "editor@example.com"
	strongPassword = "Correct-Horse-Battery-9"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (s *recordingSink) Record(_ context.Context, e *models.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *recordingSink) actions(status models.AuditStatus) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.entries {
		if e.Status == status {
			out = append(out, e.Action)
		}
	}
	return out
}

type testEnv struct {
	handler     http.Handler
	cfg         *config.Config
	rm          *repomanager.MemoryRepositoryManager
	sink        *recordingSink
	sessions    *services.SessionService
	invitations *services.InvitationService
	users       *services.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.CronSecret = "cron-secret"

	rm := repomanager.NewMemoryRepositoryManager()
	store := rm.Store()
	sessions := services.NewSessionService(store, rm, cfg)
	invitations := services.NewInvitationService(store, rm, sessions, cfg)
	users := services.NewUserService(store, rm, sessions)
	sink := &recordingSink{}

	srv := NewServer(Deps{
		Config:      cfg,
		Logger:      logging.Discard(),
		Auth:        services.NewAuthService(store, rm, sessions),
		Sessions:    sessions,
		Invitations: invitations,
		Users:       users,
		Media:       services.NewMediaService(cfg),
		Maintenance: services.NewMaintenanceService(sessions, invitations),
		AuditLogs:   services.NewAuditLogService(store, rm),
		Audit:       sink,
		Limiter:     ratelimit.New(logging.Discard()),
		CSRF:        csrf.NewGuard(cfg.CSRFSecret, false),
		CORS:        cors.New(cors.DefaultConfig(false, []string{"https://cms.example.com"})),
	})

	env := &testEnv{
		handler:     srv.Handler(),
		cfg:         cfg,
		rm:          rm,
		sink:        sink,
		sessions:    sessions,
		invitations: invitations,
		users:       users,
	}

	_, err := users.CreateUser(context.Background(), adminEmail, "Admin", common.RoleAdmin, strongPassword)
	require.NoError(t, err)
	_, err = users.CreateUser(context.Background(), editorEmail, "Editor", common.RoleEditor, strongPassword)
	require.NoError(t, err)

	return env
}

// client replays cookies like a browser and can echo the CSRF cookie into
// the header.
type client struct {
	t       *testing.T
	env     *testEnv
	ip      string
	cookies map[string]string
}

func (e *testEnv) client(t *testing.T, ip string) *client {
	return &client{t: t, env: e, ip: ip, cookies: map[string]string{}}
}

type reqOption func(*http.Request)

func header(k, v string) reqOption { return func(r *http.Request) { r.Header.Set(k, v) } }

func (c *client) withCSRF() reqOption {
	return func(r *http.Request) { r.Header.Set(common.CSRFHeaderName, c.cookies[common.CSRFCookieName]) }
}

func (c *client) do(method, path string, body any, opts ...reqOption) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", c.ip)
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	for _, o := range opts {
		o(req)
	}

	rec := httptest.NewRecorder()
	c.env.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return rec
}

// login primes the CSRF cookie and signs in.
func (c *client) login(email, password string) *httptest.ResponseRecorder {
	c.t.Helper()
	c.do(http.MethodGet, "/api/auth/csrf", nil)
	return c.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": password})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	code, _ := e["code"].(string)
	return code
}
