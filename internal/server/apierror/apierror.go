// Package apierror maps service errors onto the HTTP error taxonomy and
// renders them as {"error":{"code","message","details"}}.
package apierror

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/npremz/astrobackoffice/internal/common"
	"github.com/npremz/astrobackoffice/internal/server/auth"
)

// Codes.
const (
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation_failed"
	CodeWeakPassword      = "weak_password"
	CodeUnauthorized      = "unauthorized"
	CodeCSRFInvalid       = "csrf_invalid"
	CodeForbiddenRole     = "forbidden_role"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeRateLimited       = "rate_limited"
	CodeInvitationInvalid = "invitation_invalid"
	CodeStorageDisabled   = "storage_disabled"
	CodeInternal          = "internal_error"
)

// Error is a client-facing failure.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Frequently used responses.
var (
	Unauthorized  = New(http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	CSRFInvalid   = New(http.StatusForbidden, CodeCSRFInvalid, "missing or invalid CSRF token")
	ForbiddenRole = New(http.StatusForbidden, CodeForbiddenRole, "insufficient role")
	RateLimited   = New(http.StatusTooManyRequests, CodeRateLimited, "too many requests")
	Internal      = New(http.StatusInternalServerError, CodeInternal, "internal error")
)

// BadRequest reports a malformed request body or parameter.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// FromError classifies err. Unknown errors become a bare 500 so internals
// never reach the client.
func FromError(err error) *Error {
	var apiErr *Error
	var policy *auth.PasswordPolicyError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &policy):
		return &Error{
			Status:  http.StatusBadRequest,
			Code:    CodeWeakPassword,
			Message: "password does not meet the policy",
			Details: map[string]any{"reasons": policy.Reasons},
		}
	case errors.Is(err, common.ErrorUnauthorized):
		return Unauthorized
	case errors.Is(err, common.ErrorForbidden):
		return ForbiddenRole
	case errors.Is(err, common.ErrInvitationInvalid),
		errors.Is(err, common.ErrInvitationExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrEmailMismatch):
		return New(http.StatusBadRequest, CodeInvitationInvalid, "invitation is invalid or has expired")
	case errors.Is(err, common.ErrorValidation):
		return New(http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return New(http.StatusConflict, CodeConflict, "resource already exists")
	case errors.Is(err, common.ErrorNotFound):
		return New(http.StatusNotFound, CodeNotFound, "resource not found")
	case errors.Is(err, common.ErrStorageDisabled):
		return New(http.StatusServiceUnavailable, CodeStorageDisabled, "media storage is not configured")
	default:
		return Internal
	}
}

type envelope struct {
	Error *Error `json:"error"`
}

// Write renders e on a plain http.ResponseWriter.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(envelope{Error: e})
}

// Abort renders e and stops the gin handler chain.
func Abort(c *gin.Context, e *Error) {
	c.AbortWithStatusJSON(e.Status, envelope{Error: e})
}
