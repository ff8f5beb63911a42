package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
)

// Claims is the payload of a session token
type Claims struct {
	Email     string     `json:"email,omitempty"`
	Role      users.Role `json:"role"`
	TenantID  string     `json:"tenantId,omitempty"`
	SessionID string     `json:"sid"`
	jwt.RegisteredClaims
}

type Manager struct {
	signer            Signer
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// NewManager creates a token manager signing with signer. Access tokens live
// for one hour unless WithAccessTokenExpiry says otherwise.
func NewManager(signer Signer, options ...ManagerOption) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("[token NewManager] signer is required")
	}
	m := &Manager{
		signer:            signer,
		accessTokenExpiry: time.Hour,
		nowFunc:           time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.accessTokenExpiry <= 0 {
		return nil, errors.New("[token NewManager] access token expiry must be positive")
	}
	return m, nil
}

// AccessTokenExpiry returns the lifetime of issued tokens
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// Issue signs a new access token for user within sessionID
func (m *Manager) Issue(user *users.User, sessionID string) (string, *Claims, error) {
	if user == nil || user.ID == "" {
		return "", nil, errors.New("[token Issue] user is required")
	}
	now := m.nowFunc()
	claims := &Claims{
		Email:     user.Email,
		Role:      user.Role,
		TenantID:  utils.Value(user.TenantID),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", nil, errors.Wrap(err, "[token Issue]")
	}
	return signed, claims, nil
}

// Validate verifies the signature, algorithm, issuer and expiry of rawToken.
// Expired tokens yield ErrTokenExpired, anything else ErrInvalidToken.
func (m *Manager) Validate(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
