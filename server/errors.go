package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-tenant-admin/auth"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxRequestBody = 1 << 20

// messageBody is the error payload of every failed API call
type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageBody{Message: message})
}

// writeError maps service errors to status codes. Already authenticated
// callers get 403 with the redirect target instead of a message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var already *auth.AlreadyAuthenticatedError
	if apperrors.As(err, &already) {
		writeJSON(w, http.StatusForbidden, already)
		return
	}

	var validation *apperrors.ValidationError
	switch {
	case apperrors.As(err, &validation):
		writeMessage(w, http.StatusBadRequest, validation.Message)
	case apperrors.Is(err, apperrors.ErrInvalidRequest),
		apperrors.Is(err, apperrors.ErrEmailTaken),
		apperrors.Is(err, apperrors.ErrSlugTaken):
		writeMessage(w, http.StatusBadRequest, rootMessage(err))
	case apperrors.Is(err, apperrors.ErrInvalidCredentials),
		apperrors.Is(err, apperrors.ErrUserInactive):
		writeMessage(w, http.StatusUnauthorized, apperrors.ErrInvalidCredentials.Error())
	case apperrors.Is(err, apperrors.ErrMissingToken),
		apperrors.Is(err, apperrors.ErrInvalidToken),
		apperrors.Is(err, apperrors.ErrTokenExpired):
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
	case apperrors.Is(err, apperrors.ErrForbidden):
		writeMessage(w, http.StatusForbidden, apperrors.ErrForbidden.Error())
	case apperrors.Is(err, apperrors.ErrUserNotFound),
		apperrors.Is(err, apperrors.ErrTenantNotFound),
		apperrors.Is(err, apperrors.ErrNotFound):
		writeMessage(w, http.StatusNotFound, rootMessage(err))
	default:
		log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// rootMessage returns the sentinel text without the wrapping context
func rootMessage(err error) string {
	for _, sentinel := range []error{
		apperrors.ErrEmailTaken,
		apperrors.ErrSlugTaken,
		apperrors.ErrUserNotFound,
		apperrors.ErrTenantNotFound,
		apperrors.ErrNotFound,
		apperrors.ErrInvalidRequest,
	} {
		if apperrors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Invalid("invalid JSON body")
	}
	return nil
}
