package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/models"
)

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bearerMatches compares the Authorization bearer token with secret in
// constant time.
func bearerMatches(header, secret string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func (h *handler) cronCleanup(c *gin.Context) {
	if !bearerMatches(c.GetHeader("Authorization"), h.cfg.CronSecret) {
		apierror.Abort(c, apierror.Unauthorized)
		return
	}

	res, err := h.maintenance.Cleanup(c.Request.Context())
	if err != nil {
		h.record(c, &models.AuditLog{
			Action:       audit.ActionCleanup,
			ResourceType: audit.ResourceSystem,
			Status:       models.AuditFailed,
			ErrorMessage: auditFailure(err),
		})
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionCleanup,
		ResourceType: audit.ResourceSystem,
		Changes:      map[string]any{"sessions": res.Sessions, "invitations": res.Invitations},
	})
	c.JSON(http.StatusOK, res)
}

type presignRequest struct {
	ContentType string `json:"contentType"`
}

func (h *handler) presignUpload(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req presignRequest
	if !h.bind(c, &req) {
		return
	}

	up, err := h.media.PresignUpload(c.Request.Context(), p.User.ID, req.ContentType)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionMediaUploadPresign,
		ResourceType: audit.ResourceMedia,
		ResourceID:   up.Key,
		Changes:      map[string]any{"contentType": up.ContentType},
	})
	c.JSON(http.StatusOK, up)
}
