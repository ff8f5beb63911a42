package users

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Role is the fixed set of roles a user can hold
type Role string

const (
	RoleSuperUser   Role = "SUPER_USER"   // Manages every tenant, user and role
	RoleTenantAdmin Role = "TENANT_ADMIN" // Manages users within its own tenant
	RoleUser        Role = "USER"         // Regular dashboard user
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleSuperUser, RoleTenantAdmin, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type User struct {
	ID           string     `json:"id"`                    // Unique identifier for the user
	Email        string     `json:"email"`                 // User's email address, unique
	Name         string     `json:"name,omitempty"`        // Display name
	PasswordHash string     `json:"-"`                     // Hashed version of the user's password - never serialize
	Role         Role       `json:"role"`                  // Role, drives permissions
	TenantID     *string    `json:"tenantId,omitempty"`    // Tenant the user belongs to, nil for super users
	Active       bool       `json:"active"`                // Inactive users cannot log in or refresh
	CreatedAt    time.Time  `json:"createdAt"`             // Registration time
	UpdatedAt    time.Time  `json:"updatedAt"`             // Last modification
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"` // Last successful login
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains at least one letter
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasLetter bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// IsSuperUser returns true if the user has system-wide privileges
func (u *User) IsSuperUser() bool {
	return u.Role == RoleSuperUser
}

// InTenant reports whether the user belongs to tenantID
func (u *User) InTenant(tenantID string) bool {
	return u.TenantID != nil && *u.TenantID == tenantID
}

// NormaliseEmail lower-cases and trims an email so lookups are case-insensitive
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
