package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"famledger/internal/service"
	"famledger/internal/validation"
)

// apiError is the error half of the response envelope.
type apiError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// envelope is the shape of every JSON response: success plus either data or
// an error, never both.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: &apiError{Message: message, Details: details}}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError is the single place where service errors become HTTP
// statuses. Anything unrecognized is a 500 and gets logged; known errors map
// to 4xx statuses with the sentinel's message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve validation.ValidationError
	if errors.As(err, &ve) {
		respondError(w, http.StatusBadRequest, "validation failed", ve.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, err.Error(), "")
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrNotFamilyMember),
		errors.Is(err, service.ErrInviteWrongUser),
		errors.Is(err, service.ErrCannotRemoveOwner),
		errors.Is(err, service.ErrCannotAssignOwner),
		errors.Is(err, service.ErrOwnerCannotLeave),
		errors.Is(err, service.ErrFamilyPostingsClosed):
		respondError(w, http.StatusForbidden, err.Error(), "")
	case errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrGoalNotFound):
		respondError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrDuplicateInvite):
		respondError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, service.ErrInviteExpired),
		errors.Is(err, service.ErrInviteClosed):
		respondError(w, http.StatusBadRequest, err.Error(), "")
	default:
		slog.Error("internal error", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

// decodeJSON reads and validates a JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}
