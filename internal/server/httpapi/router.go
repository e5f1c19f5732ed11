package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server/cors"
	"github.com/npremz/astrobackoffice/internal/server/gate"
	"github.com/npremz/astrobackoffice/internal/server/ratelimit"
)

func newRouter(h *handler, g *gate.Gate, policy *cors.Policy, limiter *ratelimit.Limiter, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger), corsMiddleware(policy), g.Middleware())

	r.GET("/healthz", h.healthz)
	r.POST("/cron/cleanup", h.cronCleanup)

	api := r.Group("/api")

	authGrp := api.Group("/auth")
	authGrp.POST("/login", rateLimit(limiter, ratelimit.LoginPolicy, byClient), h.login)
	authGrp.Use(rateLimit(limiter, ratelimit.APIPolicy, byClient))
	authGrp.POST("/logout", h.logout)
	authGrp.GET("/me", h.me)
	authGrp.GET("/csrf", h.csrfToken)
	authGrp.GET("/invitations/verify", h.verifyInvitation)
	authGrp.POST("/invitations/accept", h.acceptInvitation)

	private := api.Group("", rateLimit(limiter, ratelimit.APIPolicy, byClient))
	private.GET("/sessions", h.listSessions)
	private.DELETE("/sessions/:id", h.revokeSession)
	private.POST("/sessions/revoke-others", h.revokeOtherSessions)
	private.PUT("/users/me/password", h.changePassword)
	private.POST("/media/uploads", rateLimit(limiter, ratelimit.UploadPolicy, byUser), h.presignUpload)

	admin := private.Group("", requireRole(common.RoleAdmin))
	admin.POST("/invitations", h.createInvitation)
	admin.GET("/invitations", h.listInvitations)
	admin.DELETE("/invitations/:id", h.revokeInvitation)
	admin.GET("/users", h.listUsers)
	admin.PATCH("/users/:id", h.updateUser)
	admin.DELETE("/users/:id", h.deleteUser)
	admin.GET("/audit-logs", h.listAuditLogs)

	return r
}
