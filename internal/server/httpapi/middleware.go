package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/netx"
	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/authctx"
	"github.com/npremz/astrobackoffice/internal/server/cors"
	"github.com/npremz/astrobackoffice/internal/server/ratelimit"
)

func accessLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", netx.ClientIdentifier(c.Request),
		)
	}
}

// corsMiddleware answers preflights with 204 and decorates every other
// response from an allowed origin.
func corsMiddleware(p *cors.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.Preflight(c.Writer.Header(), c.Request) {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		p.Apply(c.Writer.Header(), c.Request)
		c.Next()
	}
}

type keyFunc func(c *gin.Context) string

func byClient(c *gin.Context) string { return netx.ClientIdentifier(c.Request) }

// byUser keys on the authenticated user, falling back to the client
// identifier for anonymous requests.
func byUser(c *gin.Context) string {
	if p, ok := authctx.FromContext(c.Request.Context()); ok {
		return "user:" + p.User.ID
	}
	return byClient(c)
}

func rateLimit(l *ratelimit.Limiter, policy ratelimit.Policy, key keyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := l.Check(policy, key(c))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter(l.Now())))
			apierror.Abort(c, apierror.RateLimited)
			return
		}
		c.Next()
	}
}

// requireRole lets the request through only when the principal holds one
// of roles.
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authctx.FromContext(c.Request.Context())
		if !ok {
			apierror.Abort(c, apierror.Unauthorized)
			return
		}
		for _, r := range roles {
			if p.User.Role == r {
				c.Next()
				return
			}
		}
		apierror.Abort(c, apierror.ForbiddenRole)
	}
}
