package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/errors"
)

// errorResponse is the JSON error body returned by the platform services.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// RespondError writes a JSON error body.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, errorResponse{Error: code, Message: message})
}

// RespondAppError maps a platform error to an HTTP response: validation to
// 400, not-found to 404, conflict to 409, unauthorized to 401, transient to
// 503, everything else to 500. Internal details never leak into 5xx bodies.
func RespondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.IsValidation(err):
		RespondError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.IsNotFound(err):
		RespondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.IsConflict(err):
		RespondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.IsUnauthorized(err):
		RespondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.IsTransient(err):
		logger.Warn("Transient error surfaced to client", zap.Error(err))
		RespondError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "please retry")
	default:
		logger.Error("Unhandled error surfaced to client", zap.Error(err))
		RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
