package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/vapealley/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts a service error to an HTTP response. Unclassified
// errors are logged and reported without detail.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	}

	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	var httpStatus int
	switch de.Kind {
	case domain.KindValidation:
		httpStatus = http.StatusBadRequest
	case domain.KindNotFound:
		httpStatus = http.StatusNotFound
	case domain.KindConflict:
		httpStatus = http.StatusConflict
	case domain.KindUnauthorized:
		httpStatus = http.StatusUnauthorized
	case domain.KindForbidden:
		httpStatus = http.StatusForbidden
	case domain.KindUpstream:
		httpStatus = http.StatusBadGateway
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, httpStatus, ErrorResponse{
		Error: de.Error(),
		Code:  string(de.Kind),
		Field: de.Field,
	})
}
