// Package gate is the request gate in front of the backoffice API: an
// ordered pipeline of guard stages that either let a request continue or
// reject it with an API error.
package gate

import (
	"net/http"

	"github.com/npremz/astrobackoffice/internal/server/apierror"
	"github.com/npremz/astrobackoffice/internal/server/authctx"
)

// Exchange is the request/response pair flowing through the stages.
// Stages may replace R (for example to attach a principal to its context).
type Exchange struct {
	W         http.ResponseWriter
	R         *http.Request
	Principal *authctx.Principal
}

// Stage inspects an exchange and returns nil to continue or an error to
// stop the pipeline.
type Stage struct {
	Name string
	Run  func(x *Exchange) *apierror.Error
}

// Pipeline runs stages in order.
type Pipeline []Stage

// Run executes the stages until one rejects. It returns the rejecting
// stage name with its error, or "" and nil when all stages passed.
func (p Pipeline) Run(x *Exchange) (string, *apierror.Error) {
	for _, s := range p {
		if rej := s.Run(x); rej != nil {
			return s.Name, rej
		}
	}
	return "", nil
}
