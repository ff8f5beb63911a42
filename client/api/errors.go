package api

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
)

// Error is a non-2xx answer from the backend carrying its message
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// RedirectError is returned by login and register when the caller already
// holds a valid session. User is set when the backend included it.
type RedirectError struct {
	RedirectTo string
	User       *users.User
}

func (e *RedirectError) Error() string {
	return "already authenticated, redirect to " + e.RedirectTo
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}
