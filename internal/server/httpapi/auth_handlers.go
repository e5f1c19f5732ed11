package httpapi

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/netx"
	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/auth"
	"github.com/npremz/astrobackoffice/internal/server/models"
	"github.com/npremz/astrobackoffice/internal/server/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	// No stored password can exceed the policy maximum, so longer input
	// fails without reaching the KDF.
	var (
		res *services.LoginResult
		err error
	)
	if utf8.RuneCountInString(req.Password) > auth.MaxPasswordLength {
		err = common.ErrorUnauthorized
	} else {
		res, err = h.auth.Login(c.Request.Context(), req.Email, req.Password, c.Request.UserAgent(), netx.ClientIdentifier(c.Request))
	}
	if err != nil {
		h.record(c, &models.AuditLog{
			ActorEmail:   req.Email,
			Action:       audit.ActionLogin,
			ResourceType: audit.ResourceSession,
			Status:       models.AuditFailed,
			ErrorMessage: auditFailure(err),
		})
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c.Writer, res.Session.Token, res.Session.ExpiresAt)
	h.record(c, &models.AuditLog{
		ActorUserID:  res.User.ID,
		ActorEmail:   res.User.Email,
		Action:       audit.ActionLogin,
		ResourceType: audit.ResourceSession,
		ResourceID:   res.Session.Session.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"user":      res.User,
		"expiresAt": res.Session.ExpiresAt,
		"redirect":  SafeRedirect(req.Redirect),
	})
}

func (h *handler) logout(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(c.Query("all"))

	n, err := h.auth.Logout(c.Request.Context(), p, all)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.clearSessionCookie(c.Writer)
	h.record(c, &models.AuditLog{
		Action:       audit.ActionLogout,
		ResourceType: audit.ResourceSession,
		ResourceID:   p.Session.ID,
		Changes:      map[string]any{"all": all, "revoked": n},
	})

	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

func (h *handler) me(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p.User, "session": p.Session})
}

func (h *handler) csrfToken(c *gin.Context) {
	token, err := h.csrf.IssueIfAbsent(c.Writer, c.Request)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}

func (h *handler) verifyInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		apierror.Abort(c, apierror.BadRequest("token is required"))
		return
	}

	inv, err := h.invitations.Verify(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": inv.Email, "role": inv.Role, "expiresAt": inv.ExpiresAt})
}

type acceptRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *handler) acceptInvitation(c *gin.Context) {
	var req acceptRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.invitations.Accept(c.Request.Context(), services.AcceptInput{
		Token:     req.Token,
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IP:        netx.ClientIdentifier(c.Request),
	})
	if err != nil {
		h.record(c, &models.AuditLog{
			ActorEmail:   req.Email,
			Action:       audit.ActionInvitationAccept,
			ResourceType: audit.ResourceInvitation,
			Status:       models.AuditFailed,
			ErrorMessage: auditFailure(err),
		})
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c.Writer, res.Session.Token, res.Session.ExpiresAt)
	h.record(c, &models.AuditLog{
		ActorUserID:  res.User.ID,
		ActorEmail:   res.User.Email,
		Action:       audit.ActionInvitationAccept,
		ResourceType: audit.ResourceUser,
		ResourceID:   res.User.ID,
		ResourceName: res.User.Email,
	})

	c.JSON(http.StatusCreated, gin.H{"user": res.User, "expiresAt": res.Session.ExpiresAt})
}
