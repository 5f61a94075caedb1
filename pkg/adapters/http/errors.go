package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
	Missing []string          `json:"missing,omitempty"`
}

func forbidden(permission string) error {
	return fmt.Errorf("permission %s required: %w", permission, domain.ErrForbidden)
}

// statusFor maps an engine error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var (
		verr  *domain.ValidationError
		incom *domain.IncompleteWorkflowError
		infra *domain.ValidationInfrastructureError
		perr  *domain.PersistenceError
		serr  *domain.SubmissionError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "invalid_step"
	case errors.As(err, &incom):
		return http.StatusUnprocessableEntity, "incomplete"
	case errors.Is(err, domain.ErrConcurrentOperation):
		return http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrSessionTerminated):
		return http.StatusConflict, "terminated"
	case errors.Is(err, session.ErrSessionExists):
		return http.StatusConflict, "exists"
	case errors.As(err, &infra):
		return http.StatusServiceUnavailable, "validation_unavailable"
	case errors.As(err, &serr):
		if serr.Kind == domain.SubmissionRejected {
			return http.StatusUnprocessableEntity, "rejected"
		}
		return http.StatusBadGateway, "gateway_" + string(serr.Kind)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrDraftNotFound), errors.Is(err, domain.ErrUnknownStep):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &perr):
		return http.StatusServiceUnavailable, "storage_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := ErrorResponse{Error: err.Error(), Code: code}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	var incom *domain.IncompleteWorkflowError
	if errors.As(err, &incom) {
		body.Missing = incom.Missing
	}

	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
