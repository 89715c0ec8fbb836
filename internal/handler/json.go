package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeError sends a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readJSON decodes the request body into the given destination.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps a service error onto its HTTP status. Unexpected
// errors are logged under op and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, "Insufficient credits.")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admin privileges required.")
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "An account with that email already exists.")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, domain.ErrStoreUnavailable):
		slog.Error(op, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.")
	default:
		slog.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAdminNotFound):
		return "Admin user not found."
	case errors.Is(err, domain.ErrTargetNotFound):
		return "Target user not found."
	case errors.Is(err, domain.ErrUserNotFound):
		return "User not found."
	default:
		return "Not found."
	}
}
