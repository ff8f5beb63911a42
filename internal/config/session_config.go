package config

import "time"

const (
	// LoginCookieMaxAge is the cookie lifetime written after login or register (7 days)
	LoginCookieMaxAge = 7 * 24 * time.Hour
	// RefreshCookieMaxAge is the cookie lifetime written after a token refresh (16 hours)
	RefreshCookieMaxAge = 16 * time.Hour

	DefaultRefreshThreshold = 5 * time.Minute
	DefaultCheckInterval    = 5 * time.Minute
)

type SessionConfig interface {
	GetAccessTokenExpiry() time.Duration
	GetLoginRedirect() string
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetAccessTokenExpiry() time.Duration {
	return GetDurationEnv("ACCESS_TOKEN_EXPIRY", RefreshCookieMaxAge)
}

// GetLoginRedirect is where already authenticated callers of login/register are sent
func (Session) GetLoginRedirect() string {
	return GetEnv("LOGIN_REDIRECT", "/dashboard")
}
