// Package httpapi exposes the backoffice over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/cors"
	"github.com/npremz/astrobackoffice/internal/server/csrf"
	"github.com/npremz/astrobackoffice/internal/server/gate"
	"github.com/npremz/astrobackoffice/internal/server/ratelimit"
	"github.com/npremz/astrobackoffice/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config      *config.Config
	Logger      logging.Logger
	Auth        *services.AuthService
	Sessions    *services.SessionService
	Invitations *services.InvitationService
	Users       *services.UserService
	Media       *services.MediaService
	Maintenance *services.MaintenanceService
	AuditLogs   *services.AuditLogService
	Audit       audit.Sink
	Limiter     *ratelimit.Limiter
	CSRF        *csrf.Guard
	CORS        *cors.Policy
}

type Server struct {
	address string
	engine  *gin.Engine
	logger  logging.Logger
}

func NewServer(d Deps) *Server {
	logger := d.Logger.With("module", "http_server")
	h := &handler{
		cfg:         d.Config,
		logger:      logger,
		auth:        d.Auth,
		sessions:    d.Sessions,
		invitations: d.Invitations,
		users:       d.Users,
		media:       d.Media,
		maintenance: d.Maintenance,
		auditLogs:   d.AuditLogs,
		audit:       d.Audit,
		csrf:        d.CSRF,
	}
	g := gate.New(d.CSRF, d.Auth, d.Audit, d.Logger)

	return &Server{
		address: d.Config.EndpointAddrHTTP,
		engine:  newRouter(h, g, d.CORS, d.Limiter, logger),
		logger:  logger,
	}
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
