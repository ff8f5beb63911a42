package auth

import (
	"net/mail"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/users"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	TenantID *string `json:"tenantId,omitempty"`
}

// ChangeRoleRequest is the body of PATCH /users/{id}/role
type ChangeRoleRequest struct {
	Role     string  `json:"role"`
	TenantID *string `json:"tenantId,omitempty"`
}

// Validator centralises request validation. Every failure wraps
// ErrInvalidRequest so handlers answer 400.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateLogin(req *LoginRequest) error {
	req.Email = users.NormaliseEmail(req.Email)
	if err := v.validateEmail(req.Email); err != nil {
		return err
	}
	if req.Password == "" {
		return invalid("password is required")
	}
	return nil
}

func (v *Validator) ValidateRegister(req *RegisterRequest) error {
	req.Email = users.NormaliseEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := v.validateEmail(req.Email); err != nil {
		return err
	}
	if req.Name == "" {
		return invalid("name is required")
	}
	if len(req.Name) > 100 {
		return invalid("name must be at most 100 characters")
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		return invalid(err.Error())
	}
	if req.TenantID != nil && strings.TrimSpace(*req.TenantID) == "" {
		req.TenantID = nil
	}
	return nil
}

func (v *Validator) ValidateChangeRole(req *ChangeRoleRequest) (users.Role, error) {
	role, err := users.ParseRole(req.Role)
	if err != nil {
		return "", invalid(err.Error())
	}
	if req.TenantID != nil && strings.TrimSpace(*req.TenantID) == "" {
		req.TenantID = nil
	}
	switch {
	case role == users.RoleSuperUser && req.TenantID != nil:
		return "", invalid("super users cannot belong to a tenant")
	case role == users.RoleTenantAdmin && req.TenantID == nil:
		return "", invalid("tenant admins require a tenantId")
	}
	return role, nil
}

func (v *Validator) validateEmail(email string) error {
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email must be a valid email address")
	}
	return nil
}

func invalid(msg string) error {
	return apperrors.Invalid("%s", msg)
}
