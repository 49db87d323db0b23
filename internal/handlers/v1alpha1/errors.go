package v1alpha1

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/contract"
	"github.com/propertyhub/lease-planner/internal/service"
	"github.com/propertyhub/lease-planner/pkg/requestid"
	"go.uber.org/zap"
)

type ErrorReply struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`

	status int
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	_ = render.Render(w, r, ErrorReply{
		Message:   message,
		RequestID: requestid.FromRequest(r),
		status:    status,
	})
}

// renderServiceError maps the service errors to their status code. Unknown
// errors are logged and hidden behind a 500.
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch err.(type) {
	case *service.ErrResourceNotFound:
		renderError(w, r, http.StatusNotFound, err.Error())
		return
	case *service.ErrAccessForbidden, *service.ErrTransitionForbidden:
		renderError(w, r, http.StatusForbidden, err.Error())
		return
	case *service.ErrInvalidContract, *service.ErrProviderNotFound:
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	case *service.ErrContractConflict, *service.ErrInvalidJobTransition:
		renderError(w, r, http.StatusConflict, err.Error())
		return
	}

	if errors.Is(err, contract.ErrAmbiguous) {
		zap.S().Named("api").Errorw("contract transition table is ambiguous", "error", err, "request_id", requestid.FromRequest(r))
	} else {
		zap.S().Named("api").Errorw("request failed", "error", err, "path", r.URL.Path, "request_id", requestid.FromRequest(r))
	}
	renderError(w, r, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		renderError(w, r, http.StatusBadRequest, "empty body")
		return false
	}
	if err := render.DecodeJSON(r.Body, v); err != nil {
		renderError(w, r, http.StatusBadRequest, "malformed body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid id: "+id)
		return uuid.Nil, false
	}
	return parsed, true
}
