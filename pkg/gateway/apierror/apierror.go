// Package apierror maps core errors onto HTTP responses.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/gateway/mw"
)

// FromError resolves err to the core error and its HTTP status.
func FromError(err error) (*core.Error, int) {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewAPIError("upstream deadline exceeded"), http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return core.NewAPIError("request canceled"), 499
	}

	var ce *core.Error
	if !errors.As(err, &ce) {
		return core.NewAPIError(err.Error()), http.StatusInternalServerError
	}
	return ce, statusFromType(ce.Type)
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest, core.ErrDecode:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrPermissionDenied:
		return http.StatusForbidden
	case core.ErrAlreadyActive:
		return http.StatusConflict
	case core.ErrConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as the gateway's JSON error envelope.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	ce, status := FromError(err)
	ce.RequestID = mw.RequestIDFrom(r.Context())
	mw.WriteJSONError(w, status, string(ce.Type), ce.Message)
}
