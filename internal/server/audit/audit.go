// Package audit records security events without blocking request handling.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/repositories/auditlogs"
)

// Actions.
const (
	ActionLogin              = "LOGIN"
	ActionLogout             = "LOGOUT"
	ActionSessionRevoke      = "SESSION_REVOKE"
	ActionSessionsRevokeAll  = "SESSIONS_REVOKE_ALL"
	ActionCSRFFailed         = "CSRF_FAILED"
	ActionInvitationCreate   = "INVITATION_CREATE"
	ActionInvitationRevoke   = "INVITATION_REVOKE"
	ActionInvitationAccept   = "INVITATION_ACCEPT"
	ActionUserUpdate         = "USER_UPDATE"
	ActionUserDelete         = "USER_DELETE"
	ActionPasswordChange     = "PASSWORD_CHANGE"
	ActionCleanup            = "CLEANUP"
	ActionMediaUploadPresign = "MEDIA_UPLOAD_PRESIGN"
)

// Resource types.
const (
	ResourceSession    = "session"
	ResourceUser       = "user"
	ResourceInvitation = "invitation"
	ResourceRequest    = "request"
	ResourceSystem     = "system"
	ResourceMedia      = "media"
)

// Sink accepts audit events. Record never fails from the caller's point of
// view and must not block on storage.
type Sink interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// DefaultBufferSize is the queue length used by NewAsyncSink when size <= 0.
const DefaultBufferSize = 256

// writeTimeout bounds a single insert performed by the worker.
const writeTimeout = 5 * time.Second

// AsyncSink queues events on a bounded channel drained by one worker that
// writes them through the audit repository. A full queue or a failed write
// drops the event and logs it.
type AsyncSink struct {
	repo   auditlogs.Repository
	logger logging.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan *models.AuditLog
	done   chan struct{}
}

func NewAsyncSink(repo auditlogs.Repository, logger logging.Logger, size int) *AsyncSink {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &AsyncSink{
		repo:   repo,
		logger: logger.With("module", "audit"),
		now:    time.Now,
		queue:  make(chan *models.AuditLog, size),
		done:   make(chan struct{}),
	}
}

// Record enqueues entry. ID and CreatedAt are stamped here so the stored
// time reflects the event, not the write.
func (s *AsyncSink) Record(ctx context.Context, entry *models.AuditLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if entry.Status == "" {
		entry.Status = models.AuditSuccess
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn(ctx, "audit sink closed, event dropped", "action", entry.Action)
		return
	}

	select {
	case s.queue <- entry:
	default:
		s.logger.Warn(ctx, "audit queue full, event dropped", "action", entry.Action)
	}
}

// Run drains the queue until Close is called and the queue is empty. It is
// meant to run in its own goroutine.
func (s *AsyncSink) Run() {
	defer close(s.done)
	for entry := range s.queue {
		s.write(entry)
	}
}

func (s *AsyncSink) write(entry *models.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit write failed", "action", entry.Action, "error", err)
	}
}

// Close stops accepting events and waits until the worker has written the
// queued ones or ctx is done.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, *models.AuditLog) {}
