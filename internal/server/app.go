// Package server initializes and runs the backoffice server.
// It opens storage and applies migrations, builds the services, and runs
// the HTTP API, the ops gRPC listener and the background workers until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/npremz/astrobackoffice/internal/dbx"
	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/cors"
	"github.com/npremz/astrobackoffice/internal/server/csrf"
	"github.com/npremz/astrobackoffice/internal/server/httpapi"
	"github.com/npremz/astrobackoffice/internal/server/ratelimit"
	"github.com/npremz/astrobackoffice/internal/server/repositories/repomanager"
	"github.com/npremz/astrobackoffice/internal/server/services"
	"github.com/npremz/astrobackoffice/internal/telemetry"

	gs "github.com/npremz/astrobackoffice/internal/server/grpc"
)

// MemoryDSN selects the in-process repositories instead of PostgreSQL.
// Nothing survives a restart.
const MemoryDSN = "memory"

const (
	serviceName       = "astrobackoffice"
	auditQueueSize    = 256
	auditCloseTimeout = 5 * time.Second
)

// Storage bundles the handles services need.
type Storage struct {
	Store   dbx.Store
	Manager repomanager.RepositoryManager
	db      *sql.DB
}

// Close releases the underlying connection pool, if any.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenStorage connects to the configured database and applies migrations.
func OpenStorage(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == MemoryDSN {
		m := repomanager.NewMemoryRepositoryManager()
		return &Storage{Store: m.Store(), Manager: m}, nil
	}

	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return &Storage{Store: dbx.NewSQLStore(db), Manager: m, db: db}, nil
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	storage    *Storage
	sink       *audit.AsyncSink
	limiter    *ratelimit.Limiter
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	st, err := OpenStorage(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	sink := audit.NewAsyncSink(st.Manager.AuditLogs(st.Store), logger, auditQueueSize)
	limiter := ratelimit.New(logger)

	sessions := services.NewSessionService(st.Store, st.Manager, c)
	auth := services.NewAuthService(st.Store, st.Manager, sessions)
	invitations := services.NewInvitationService(st.Store, st.Manager, sessions, c)
	users := services.NewUserService(st.Store, st.Manager, sessions)
	maintenance := services.NewMaintenanceService(sessions, invitations)

	httpServer := httpapi.NewServer(httpapi.Deps{
		Config:      c,
		Logger:      logger,
		Auth:        auth,
		Sessions:    sessions,
		Invitations: invitations,
		Users:       users,
		Media:       services.NewMediaService(c),
		Maintenance: maintenance,
		AuditLogs:   services.NewAuditLogService(st.Store, st.Manager),
		Audit:       sink,
		Limiter:     limiter,
		CSRF:        csrf.NewGuard(c.CSRFSecret, c.IsProduction()),
		CORS:        cors.New(cors.DefaultConfig(c.IsProduction(), c.AllowedOrigins)),
	})

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, maintenance, sink, c.CronSecret)

	return &App{
		config:     c,
		logger:     logger,
		storage:    st,
		sink:       sink,
		limiter:    limiter,
		httpServer: httpServer,
		grpcServer: grpcServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or a listener fails, then drains the
// audit queue and closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, app.config.OTelEndpoint)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
	}

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	go app.sink.Run()

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.limiter.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), auditCloseTimeout)
	defer cancel()
	if err := app.sink.Close(closeCtx); err != nil {
		app.logger.Warn(closeCtx, "audit queue not drained", "error", err)
	}

	if err := shutdownTracing(closeCtx); err != nil {
		app.logger.Warn(closeCtx, "tracing shutdown failed", "error", err)
	}

	app.logger.Info(closeCtx, "App stopped")
	return app.storage.Close()
}
