package gate

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/netx"
	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/authctx"
	"github.com/npremz/astrobackoffice/internal/server/csrf"
	"github.com/npremz/astrobackoffice/internal/server/models"
)

const tracerName = "github.com/npremz/astrobackoffice/internal/server/gate"

// Authenticator resolves a raw session cookie into a principal.
// Unknown, expired and inactive all yield common.ErrorUnauthorized.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*authctx.Principal, error)
}

// Gate composes CSRF issuance, session checks and CSRF validation.
type Gate struct {
	csrf     *csrf.Guard
	auth     Authenticator
	sink     audit.Sink
	logger   logging.Logger
	tracer   trace.Tracer
	pipeline Pipeline
}

func New(guard *csrf.Guard, auth Authenticator, sink audit.Sink, logger logging.Logger) *Gate {
	g := &Gate{
		csrf:   guard,
		auth:   auth,
		sink:   sink,
		logger: logger.With("module", "gate"),
		tracer: otel.Tracer(tracerName),
	}
	g.pipeline = Pipeline{
		{Name: "csrf_cookie", Run: g.EnsureCSRFCookie},
		{Name: "session", Run: g.RequireSession},
		{Name: "optional_session", Run: g.LoadSession},
		{Name: "csrf", Run: g.RequireCSRF},
	}
	return g
}

// Pipeline returns the stages in execution order.
func (g *Gate) Pipeline() Pipeline { return g.pipeline }

// EnsureCSRFCookie issues the CSRF cookie when the request carries none.
// A freshly minted token is also added to the request so handlers read the
// same value. It never rejects.
func (g *Gate) EnsureCSRFCookie(x *Exchange) *apierror.Error {
	if c, err := x.R.Cookie(common.CSRFCookieName); err == nil && c.Value != "" {
		return nil
	}
	token, err := g.csrf.IssueIfAbsent(x.W, x.R)
	if err != nil {
		g.logger.Error(x.R.Context(), "csrf cookie issue failed", "error", err)
		return nil
	}
	x.R.AddCookie(&http.Cookie{Name: common.CSRFCookieName, Value: token})
	return nil
}

// RequireSession rejects protected API requests without a valid session.
// Preflights pass untouched.
func (g *Gate) RequireSession(x *Exchange) *apierror.Error {
	if !IsProtectedPath(x.R.URL.Path) || x.R.Method == http.MethodOptions {
		return nil
	}

	p, rej := g.authenticate(x.R)
	if rej != nil {
		return rej
	}
	if p == nil {
		return apierror.Unauthorized
	}
	g.attach(x, p)
	return nil
}

// LoadSession attaches the principal on /api/auth routes when a valid
// session cookie is present, without requiring one.
func (g *Gate) LoadSession(x *Exchange) *apierror.Error {
	if !IsAuthPath(x.R.URL.Path) || x.Principal != nil {
		return nil
	}
	p, rej := g.authenticate(x.R)
	if rej != nil {
		if rej == apierror.Unauthorized {
			return nil
		}
		return rej
	}
	if p != nil {
		g.attach(x, p)
	}
	return nil
}

// RequireCSRF validates the double-submit token on mutating requests to
// protected API routes and to auth routes other than login.
func (g *Gate) RequireCSRF(x *Exchange) *apierror.Error {
	path := x.R.URL.Path
	if !csrf.RequiresValidation(x.R.Method) {
		return nil
	}
	if !IsProtectedPath(path) && !(IsAuthPath(path) && path != LoginPath) {
		return nil
	}
	if g.csrf.ValidateRequest(x.R) {
		return nil
	}

	entry := &models.AuditLog{
		Action:       audit.ActionCSRFFailed,
		ResourceType: audit.ResourceRequest,
		ResourceName: x.R.Method + " " + path,
		Status:       models.AuditFailed,
		ErrorMessage: "csrf token missing or mismatched",
		IPAddress:    netx.ClientIdentifier(x.R),
		UserAgent:    x.R.UserAgent(),
	}
	if x.Principal != nil {
		entry.ActorUserID = x.Principal.User.ID
		entry.ActorEmail = x.Principal.User.Email
	}
	g.sink.Record(x.R.Context(), entry)

	return apierror.CSRFInvalid
}

// authenticate returns (nil, nil) when no cookie is present,
// apierror.Unauthorized for a bad session and apierror.Internal when the
// lookup itself failed.
func (g *Gate) authenticate(r *http.Request) (*authctx.Principal, *apierror.Error) {
	c, err := r.Cookie(common.SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	p, err := g.auth.Authenticate(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, apierror.Unauthorized
		}
		g.logger.Error(r.Context(), "session lookup failed", "error", err)
		return nil, apierror.Internal
	}
	return p, nil
}

func (g *Gate) attach(x *Exchange, p *authctx.Principal) {
	x.Principal = p
	x.R = x.R.WithContext(authctx.WithPrincipal(x.R.Context(), p))
}

// Handle runs the pipeline inside a trace span.
func (g *Gate) Handle(x *Exchange) *apierror.Error {
	ctx, span := g.tracer.Start(x.R.Context(), "gate",
		trace.WithAttributes(
			attribute.String("http.request.method", x.R.Method),
			attribute.String("url.path", x.R.URL.Path),
		))
	defer span.End()
	x.R = x.R.WithContext(ctx)

	stage, rej := g.pipeline.Run(x)
	if rej != nil {
		span.SetAttributes(attribute.String("gate.stage", stage), attribute.String("gate.rejection", rej.Code))
		span.SetStatus(codes.Error, rej.Code)
		g.logger.Debug(ctx, "request rejected", "stage", stage, "code", rej.Code, "path", x.R.URL.Path)
		return rej
	}
	if x.Principal != nil {
		span.SetAttributes(attribute.String("enduser.id", x.Principal.User.ID))
	}
	return nil
}

// Middleware adapts the gate to gin.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		x := &Exchange{W: c.Writer, R: c.Request}
		if rej := g.Handle(x); rej != nil {
			apierror.Abort(c, rej)
			return
		}
		c.Request = x.R
		c.Next()
	}
}
