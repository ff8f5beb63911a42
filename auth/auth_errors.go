package auth

import (
	"fmt"

	"github.com/jrsteele09/go-tenant-admin/users"
)

// AlreadyAuthenticatedError is returned by Login and Register when the caller
// already presents a valid session token. Clients redirect instead of showing
// a failure.
type AlreadyAuthenticatedError struct {
	RedirectTo string      `json:"redirectTo"`
	User       *users.User `json:"user,omitempty"`
}

func (e *AlreadyAuthenticatedError) Error() string {
	return fmt.Sprintf("already authenticated, redirect to %s", e.RedirectTo)
}
