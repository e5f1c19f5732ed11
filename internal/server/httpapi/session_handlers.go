package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/models"
)

type sessionView struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

func (h *handler) listSessions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	list, err := h.sessions.ListForUser(c.Request.Context(), p.User.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, sessionView{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			IPAddress: s.IPAddress,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == p.Session.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h *handler) revokeSession(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := c.Param("id")

	n, err := h.sessions.RevokeOwned(c.Request.Context(), p.User.ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if n == 0 {
		h.record(c, &models.AuditLog{
			Action:       audit.ActionSessionRevoke,
			ResourceType: audit.ResourceSession,
			ResourceID:   id,
			Status:       models.AuditFailed,
			ErrorMessage: apierror.CodeNotFound,
		})
		apierror.Abort(c, apierror.New(http.StatusNotFound, apierror.CodeNotFound, "session not found"))
		return
	}

	if id == p.Session.ID {
		h.clearSessionCookie(c.Writer)
	}
	h.record(c, &models.AuditLog{
		Action:       audit.ActionSessionRevoke,
		ResourceType: audit.ResourceSession,
		ResourceID:   id,
	})
	c.Status(http.StatusNoContent)
}

func (h *handler) revokeOtherSessions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	n, err := h.sessions.RevokeAll(c.Request.Context(), p.User.ID, p.Session.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionSessionsRevokeAll,
		ResourceType: audit.ResourceSession,
		ResourceID:   p.User.ID,
		Changes:      map[string]any{"revoked": n, "kept": p.Session.ID},
	})
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}
