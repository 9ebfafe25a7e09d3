// Package handler is the HTTP boundary: it decodes requests, calls the
// services, and encodes responses. No business rules live here; errors
// arrive as apperror kinds and leave as status codes.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sociable/sociable/internal/apperror"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is an internal error and its details stay out of the body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusBadRequest, "invalid_token"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrTokenExpired):
		return http.StatusGone, "token_expired"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, kind := statusFor(err)

	resp := errorResponse{Error: kind, Message: err.Error()}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
		resp.Message = "something went wrong"
	}

	writeJSON(w, status, resp)
}

// decodeBody decodes a JSON request body into v, rejecting unknown
// fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperror.ValidationFailed("", "invalid request body: "+err.Error())
	}
	return nil
}
