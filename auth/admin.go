package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-tenant-admin/audit"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/sessions"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
)

// Actor loads the active user behind validated claims. It is the caller
// identity for every admin operation.
func (s *Service) Actor(ctx context.Context, subject string) (*users.User, error) {
	user, err := s.repos.Users.GetByID(ctx, subject)
	if err != nil || !user.Active {
		return nil, apperrors.ErrInvalidToken
	}
	return user, nil
}

// ListUsers lists users visible to actor. Tenant admins only see their tenant.
func (s *Service) ListUsers(ctx context.Context, actor *users.User, filter users.ListFilter) (users.ListResult, error) {
	if !actor.Can(users.PermUsersRead) {
		return users.ListResult{}, apperrors.ErrForbidden
	}
	if !actor.IsSuperUser() {
		filter.TenantID = utils.Value(actor.TenantID)
	}
	res, err := s.repos.Users.List(ctx, filter)
	if err != nil {
		return users.ListResult{}, errors.Wrap(err, "[ListUsers]")
	}
	return res, nil
}

// ChangeRole assigns a role (and tenant) to a user. Super users may assign
// anything; tenant admins may only move users of their own tenant between
// USER and TENANT_ADMIN.
func (s *Service) ChangeRole(ctx context.Context, actor *users.User, userID string, req ChangeRoleRequest) (*users.User, error) {
	if !actor.Can(users.PermUsersWrite) {
		return nil, apperrors.ErrForbidden
	}
	role, err := s.validator.ValidateChangeRole(&req)
	if err != nil {
		return nil, err
	}

	target, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	if !actor.IsSuperUser() {
		actorTenant := utils.Value(actor.TenantID)
		switch {
		case role == users.RoleSuperUser:
			return nil, apperrors.ErrForbidden
		case !target.InTenant(actorTenant):
			return nil, apperrors.ErrForbidden
		case req.TenantID != nil && *req.TenantID != actorTenant:
			return nil, apperrors.ErrForbidden
		}
		req.TenantID = utils.Ptr(actorTenant)
	}
	if actor.ID == target.ID {
		return nil, apperrors.Invalid("you cannot change your own role")
	}
	if req.TenantID != nil {
		if _, err := s.repos.Tenants.Get(ctx, *req.TenantID); err != nil {
			return nil, apperrors.Invalid("unknown tenant %q", *req.TenantID)
		}
	}

	previous := target.Role
	target.Role = role
	target.TenantID = req.TenantID
	if role == users.RoleSuperUser {
		target.TenantID = nil
	}
	target.UpdatedAt = s.nowTime().UTC()
	if err := s.repos.Users.Upsert(ctx, target); err != nil {
		return nil, errors.Wrap(err, "[ChangeRole]")
	}

	s.audit.Record(ctx, audit.Event{
		Type:     audit.EventRoleChanged,
		UserID:   actor.ID,
		Email:    actor.Email,
		TenantID: utils.Value(target.TenantID),
		Success:  true,
		Message:  fmt.Sprintf("%s: %s -> %s", target.Email, previous, role),
	})
	return target, nil
}

// ListAuditLogs lists audit events visible to actor
func (s *Service) ListAuditLogs(ctx context.Context, actor *users.User, filter audit.ListFilter) (audit.ListResult, error) {
	if !actor.Can(users.PermAuditRead) {
		return audit.ListResult{}, apperrors.ErrForbidden
	}
	if !actor.IsSuperUser() {
		filter.TenantID = utils.Value(actor.TenantID)
	}
	return s.audit.List(ctx, filter)
}

// ListSessions lists session log entries visible to actor. activeOnly keeps
// sessions whose latest token has not expired yet.
func (s *Service) ListSessions(ctx context.Context, actor *users.User, filter sessions.ListFilter, activeOnly bool) (sessions.ListResult, error) {
	if !actor.Can(users.PermSessionsRead) {
		return sessions.ListResult{}, apperrors.ErrForbidden
	}
	if !actor.IsSuperUser() {
		filter.TenantID = utils.Value(actor.TenantID)
	}
	if activeOnly {
		filter.ActiveAt = s.nowTime()
	}
	return s.repos.Sessions.List(ctx, filter)
}
