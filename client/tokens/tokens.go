// Package tokens inspects session tokens on the client side.
//
// Nothing here verifies signatures. The payload is only read so the client
// can decide when to renew a token before the server starts rejecting it.
package tokens

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is the claim set carried by a session token
type Payload struct {
	Subject   string           `json:"sub"`
	Email     string           `json:"email,omitempty"`
	Role      string           `json:"role"`
	TenantID  *string          `json:"tenantId,omitempty"`
	SessionID string           `json:"sid,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

// Inspector reads token payloads against a clock
type Inspector struct {
	now    func() time.Time
	parser *jwt.Parser
}

// NewInspector returns an Inspector. A nil now uses time.Now.
func NewInspector(now func() time.Time) *Inspector {
	if now == nil {
		now = time.Now
	}
	return &Inspector{now: now, parser: jwt.NewParser()}
}

// Decode returns the payload of token, or false if token is not a three
// segment compact token with a JSON payload.
func (i *Inspector) Decode(token string) (*Payload, bool) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, false
	}
	raw, err := i.parser.DecodeSegment(segments[1])
	if err != nil {
		return nil, false
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// ExpirationTime returns the exp claim of token
func (i *Inspector) ExpirationTime(token string) (time.Time, bool) {
	p, ok := i.Decode(token)
	if !ok || p.ExpiresAt == nil {
		return time.Time{}, false
	}
	return p.ExpiresAt.Time, true
}

// IsExpired is true when the token cannot be decoded, has no exp claim,
// or has reached its expiry.
func (i *Inspector) IsExpired(token string) bool {
	exp, ok := i.ExpirationTime(token)
	if !ok {
		return true
	}
	return !i.now().Before(exp)
}

// TimeRemaining returns how long token stays valid, never negative
func (i *Inspector) TimeRemaining(token string) (time.Duration, bool) {
	exp, ok := i.ExpirationTime(token)
	if !ok {
		return 0, false
	}
	return max(0, exp.Sub(i.now())), true
}

// ShouldRefresh is true when the remaining lifetime is unknown or within
// threshold.
func (i *Inspector) ShouldRefresh(token string, threshold time.Duration) bool {
	remaining, ok := i.TimeRemaining(token)
	if !ok {
		return true
	}
	return remaining <= threshold
}
