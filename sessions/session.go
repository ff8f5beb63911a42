package sessions

import (
	"context"
	"time"
)

// Session records one login and the chain of tokens refreshed from it. The
// token's "sid" claim carries the session ID; tokens stay stateless and this
// log exists for administration only.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	TenantID        string    `json:"tenantId,omitempty"`
	IP              string    `json:"ip,omitempty"`
	UserAgent       string    `json:"userAgent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LastRefreshedAt time.Time `json:"lastRefreshedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	RefreshCount    int       `json:"refreshCount"`
}

// IsActive reports whether the latest token of the session is still valid at now
func (s *Session) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// ListFilter selects sessions. ActiveAt, when set, keeps only sessions
// active at that instant.
type ListFilter struct {
	UserID   string
	TenantID string
	ActiveAt time.Time
	Offset   int
	Limit    int
}

func (f ListFilter) Matches(s *Session) bool {
	switch {
	case f.UserID != "" && s.UserID != f.UserID:
		return false
	case f.TenantID != "" && s.TenantID != f.TenantID:
		return false
	case !f.ActiveAt.IsZero() && !s.IsActive(f.ActiveAt):
		return false
	}
	return true
}

// ListResult is one page of sessions, most recently created first
type ListResult struct {
	Sessions []*Session `json:"sessions"`
	Total    int        `json:"total"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
}

type Repo interface {
	Upsert(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}
