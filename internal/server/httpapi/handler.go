package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/netx"
	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/authctx"
	"github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/csrf"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/services"
)

type handler struct {
	cfg         *config.Config
	logger      logging.Logger
	auth        *services.AuthService
	sessions    *services.SessionService
	invitations *services.InvitationService
	users       *services.UserService
	media       *services.MediaService
	maintenance *services.MaintenanceService
	auditLogs   *services.AuditLogService
	audit       audit.Sink
	csrf        *csrf.Guard
}

// writeError renders err through the error taxonomy. Server-side failures
// are logged since the client only sees a generic message.
func (h *handler) writeError(c *gin.Context, err error) {
	e := apierror.FromError(err)
	if e.Status >= 500 {
		h.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	apierror.Abort(c, e)
}

// bind decodes the JSON body into dst and answers 400 on failure.
// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

func (h *handler) bind(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		apierror.Abort(c, apierror.BadRequest("invalid request body"))
		return false
	}
	return true
}

// principal returns the authenticated principal or answers 401.
func (h *handler) principal(c *gin.Context) (*authctx.Principal, bool) {
	p, ok := authctx.FromContext(c.Request.Context())
	if !ok {
		apierror.Abort(c, apierror.Unauthorized)
		return nil, false
	}
	return p, true
}

// record fills request metadata and the actor, then hands entry to the
// audit sink.
func (h *handler) record(c *gin.Context, entry *models.AuditLog) {
	if p, ok := authctx.FromContext(c.Request.Context()); ok && entry.ActorUserID == "" {
		entry.ActorUserID = p.User.ID
		entry.ActorEmail = p.User.Email
	}
	entry.IPAddress = netx.ClientIdentifier(c.Request)
	entry.UserAgent = c.Request.UserAgent()
	h.audit.Record(c.Request.Context(), entry)
}

// auditFailure returns a non-sensitive message for err.
func auditFailure(err error) string {
	return apierror.FromError(err).Code
}
