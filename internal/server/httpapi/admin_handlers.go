package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/services"
)

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *handler) createInvitation(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req createInvitationRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.invitations.Create(c.Request.Context(), p.User, req.Email, req.Role)
	if err != nil {
		h.record(c, &models.AuditLog{
			Action:       audit.ActionInvitationCreate,
			ResourceType: audit.ResourceInvitation,
			ResourceName: req.Email,
			Status:       models.AuditFailed,
			ErrorMessage: auditFailure(err),
		})
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionInvitationCreate,
		ResourceType: audit.ResourceInvitation,
		ResourceID:   created.Invitation.ID,
		ResourceName: created.Invitation.Email,
		Changes:      map[string]any{"role": created.Invitation.Role},
	})
	c.JSON(http.StatusCreated, gin.H{"invitation": created.Invitation, "token": created.Token})
}

func (h *handler) listInvitations(c *gin.Context) {
	list, err := h.invitations.ListPending(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []*models.Invitation{}
	}
	c.JSON(http.StatusOK, gin.H{"invitations": list})
}

func (h *handler) revokeInvitation(c *gin.Context) {
	id := c.Param("id")
	if err := h.invitations.Revoke(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionInvitationRevoke,
		ResourceType: audit.ResourceInvitation,
		ResourceID:   id,
	})
	c.Status(http.StatusNoContent)
}

func (h *handler) listUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h *handler) updateUser(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var patch services.UserPatch
	if !h.bind(c, &patch) {
		return
	}
	id := c.Param("id")

	upd, err := h.users.Update(c.Request.Context(), p.User, id, patch)
	if err != nil {
		h.record(c, &models.AuditLog{
			Action:       audit.ActionUserUpdate,
			ResourceType: audit.ResourceUser,
			ResourceID:   id,
			Status:       models.AuditFailed,
			ErrorMessage: auditFailure(err),
		})
		h.writeError(c, err)
		return
	}

	if len(upd.Changes) > 0 {
		h.record(c, &models.AuditLog{
			Action:       audit.ActionUserUpdate,
			ResourceType: audit.ResourceUser,
			ResourceID:   upd.User.ID,
			ResourceName: upd.User.Email,
			Changes:      upd.Changes,
		})
	}
	c.JSON(http.StatusOK, gin.H{"user": upd.User, "revokedSessions": upd.RevokedSessions})
}

func (h *handler) deleteUser(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := c.Param("id")

	deleted, revoked, err := h.users.Delete(c.Request.Context(), p.User, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionUserDelete,
		ResourceType: audit.ResourceUser,
		ResourceID:   deleted.ID,
		ResourceName: deleted.Email,
		Changes:      map[string]any{"revokedSessions": revoked},
	})
	c.Status(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *handler) changePassword(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !h.bind(c, &req) {
		return
	}

	n, err := h.auth.ChangePassword(c.Request.Context(), p, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.record(c, &models.AuditLog{
			Action:       audit.ActionPasswordChange,
			ResourceType: audit.ResourceUser,
			ResourceID:   p.User.ID,
			Status:       models.AuditFailed,
			ErrorMessage: auditFailure(err),
		})
		h.writeError(c, err)
		return
	}

	h.record(c, &models.AuditLog{
		Action:       audit.ActionPasswordChange,
		ResourceType: audit.ResourceUser,
		ResourceID:   p.User.ID,
		Changes:      map[string]any{"revokedSessions": n},
	})
	c.JSON(http.StatusOK, gin.H{"revokedSessions": n})
}

func (h *handler) listAuditLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			apierror.Abort(c, apierror.BadRequest("limit must be an integer"))
			return
		}
		limit = n
	}

	list, err := h.auditLogs.Recent(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []*models.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"auditLogs": list})
}
