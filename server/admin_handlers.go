package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-tenant-admin/audit"
	"github.com/jrsteele09/go-tenant-admin/auth"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/sessions"
	"github.com/jrsteele09/go-tenant-admin/tenants"
	"github.com/jrsteele09/go-tenant-admin/users"
)

// TenantsListHandler answers GET /tenants?search=&active=&offset=&limit=
func (s *Server) TenantsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, limit, err := pageParams(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		active, err := optionalBool(q, "active")
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.tenants.List(r.Context(), tenants.ListFilter{
			Search: q.Get("search"),
			Active: active,
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) TenantGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.tenants.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) TenantCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tenants.CreateRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := s.tenants.Create(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.recordTenantEvent(r, audit.EventTenantCreated, t)
		writeJSON(w, http.StatusCreated, t)
	}
}

func (s *Server) TenantUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tenants.UpdateRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := s.tenants.Update(r.Context(), r.PathValue("id"), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.recordTenantEvent(r, audit.EventTenantUpdated, t)
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) TenantDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.tenants.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.tenants.Delete(r.Context(), t.ID); err != nil {
			writeError(w, r, err)
			return
		}
		s.recordTenantEvent(r, audit.EventTenantDeleted, t)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) recordTenantEvent(r *http.Request, eventType audit.EventType, t *tenants.Tenant) {
	actor := actorFrom(r.Context())
	event := audit.Event{
		Type:      eventType,
		TenantID:  t.ID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Message:   t.Slug,
	}
	if actor != nil {
		event.UserID = actor.ID
		event.Email = actor.Email
	}
	s.auth.Audit().Record(r.Context(), event)
}

// UsersListHandler answers GET /users?tenantId=&role=&search=&offset=&limit=
func (s *Server) UsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, limit, err := pageParams(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter := users.ListFilter{
			TenantID: q.Get("tenantId"),
			Search:   q.Get("search"),
			Offset:   offset,
			Limit:    limit,
		}
		if raw := q.Get("role"); raw != "" {
			role, err := users.ParseRole(raw)
			if err != nil {
				writeError(w, r, apperrors.Invalid("%s", err.Error()))
				return
			}
			filter.Role = role
		}
		res, err := s.auth.ListUsers(r.Context(), actorFrom(r.Context()), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// UserRoleHandler answers PATCH /users/{id}/role
func (s *Server) UserRoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ChangeRoleRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		user, err := s.auth.ChangeRole(r.Context(), actorFrom(r.Context()), r.PathValue("id"), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// RolesHandler answers GET /roles with the fixed role to permission table
func (s *Server) RolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"roles": users.Roles()})
	}
}

// AuditLogsHandler answers GET /audit-logs?type=&userId=&tenantId=&from=&to=&offset=&limit=
func (s *Server) AuditLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, limit, err := pageParams(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		from, err := optionalTime(q, "from")
		if err != nil {
			writeError(w, r, err)
			return
		}
		to, err := optionalTime(q, "to")
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.auth.ListAuditLogs(r.Context(), actorFrom(r.Context()), audit.ListFilter{
			Type:     audit.EventType(q.Get("type")),
			UserID:   q.Get("userId"),
			TenantID: q.Get("tenantId"),
			From:     from,
			To:       to,
			Offset:   offset,
			Limit:    limit,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// SessionsHandler answers GET /sessions?userId=&activeOnly=&offset=&limit=
func (s *Server) SessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset, limit, err := pageParams(q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		activeOnly, err := optionalBool(q, "activeOnly")
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.auth.ListSessions(r.Context(), actorFrom(r.Context()), sessions.ListFilter{
			UserID:   q.Get("userId"),
			TenantID: q.Get("tenantId"),
			Offset:   offset,
			Limit:    limit,
		}, activeOnly != nil && *activeOnly)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HealthHandler answers GET /health; the database is pinged when the server has a health check
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.healthCheck != nil {
			if err := s.healthCheck(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "message": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": s.nowTime().UTC().Format(time.RFC3339)})
	}
}

func pageParams(q url.Values) (offset, limit int, err error) {
	if offset, err = optionalInt(q, "offset"); err != nil {
		return 0, 0, err
	}
	if limit, err = optionalInt(q, "limit"); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Invalid("%s must be a non-negative integer", key)
	}
	return n, nil
}

func optionalBool(q url.Values, key string) (*bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.Invalid("%s must be true or false", key)
	}
	return &b, nil
}

func optionalTime(q url.Values, key string) (time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.Invalid("%s must be an RFC3339 timestamp", key)
	}
	return t, nil
}
