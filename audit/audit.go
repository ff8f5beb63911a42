package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventType classifies audit log entries
type EventType string

const (
	EventLogin         EventType = "LOGIN"
	EventLoginFailed   EventType = "LOGIN_FAILED"
	EventRegister      EventType = "REGISTER"
	EventTokenRefresh  EventType = "TOKEN_REFRESH"
	EventTenantCreated EventType = "TENANT_CREATED"
	EventTenantUpdated EventType = "TENANT_UPDATED"
	EventTenantDeleted EventType = "TENANT_DELETED"
	EventRoleChanged   EventType = "ROLE_CHANGED"
)

// Event is one audit log row
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	TenantID  string    `json:"tenantId,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListFilter selects audit events; zero values match everything.
type ListFilter struct {
	Type     EventType
	UserID   string
	TenantID string
	From     time.Time // inclusive
	To       time.Time // exclusive
	Offset   int
	Limit    int
}

// Matches reports whether e passes every set criterion of f
func (f ListFilter) Matches(e *Event) bool {
	switch {
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.UserID != "" && e.UserID != f.UserID:
		return false
	case f.TenantID != "" && e.TenantID != f.TenantID:
		return false
	case !f.From.IsZero() && e.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !e.CreatedAt.Before(f.To):
		return false
	}
	return true
}

// ListResult is one page of events, newest first
type ListResult struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
}

type Repo interface {
	Insert(ctx context.Context, event *Event) error
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}

// Recorder stamps and stores audit events. Storage failures are logged and
// never fail the operation being audited.
type Recorder struct {
	repo    Repo
	nowTime func() time.Time
}

func NewRecorder(repo Repo, nowTime func() time.Time) *Recorder {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Recorder{repo: repo, nowTime: nowTime}
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.repo == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.nowTime().UTC()
	}
	if err := r.repo.Insert(ctx, &event); err != nil {
		log.Err(err).Str("event_type", string(event.Type)).Msg("Failed to record audit event")
	}
}

func (r *Recorder) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	return r.repo.List(ctx, filter)
}
