package auth_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-tenant-admin/audit"
	"github.com/jrsteele09/go-tenant-admin/auth"
	apperrors "github.com/jrsteele09/go-tenant-admin/internal/errors"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/stretchr/testify/require"
)

func TestListUsers_TenantAdminScopedToOwnTenant(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestTenant(t, "tenant-a", true)
	f.createTestTenant(t, "tenant-b", true)
	superUser := f.createTestUser(t, "su", "super@example.com", users.RoleSuperUser, nil)
	tenantAdmin := f.createTestUser(t, "ta", "admin@tenant-a.com", users.RoleTenantAdmin, utils.Ptr("tenant-a"))
	f.createTestUser(t, "ua", "user@tenant-a.com", users.RoleUser, utils.Ptr("tenant-a"))
	f.createTestUser(t, "ub", "user@tenant-b.com", users.RoleUser, utils.Ptr("tenant-b"))
	regular := f.createTestUser(t, "plain", "plain@example.com", users.RoleUser, nil)

	all, err := f.service.ListUsers(context.Background(), superUser, users.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 5, all.Total)

	scoped, err := f.service.ListUsers(context.Background(), tenantAdmin, users.ListFilter{TenantID: "tenant-b"})
	require.NoError(t, err)
	require.Equal(t, 2, scoped.Total)
	for _, u := range scoped.Users {
		require.True(t, u.InTenant("tenant-a"))
	}

	_, err = f.service.ListUsers(context.Background(), regular, users.ListFilter{})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestChangeRole(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestTenant(t, "tenant-a", true)
	f.createTestTenant(t, "tenant-b", true)
	superUser := f.createTestUser(t, "su", "super@example.com", users.RoleSuperUser, nil)
	tenantAdmin := f.createTestUser(t, "ta", "admin@tenant-a.com", users.RoleTenantAdmin, utils.Ptr("tenant-a"))
	f.createTestUser(t, "ua", "user@tenant-a.com", users.RoleUser, utils.Ptr("tenant-a"))
	f.createTestUser(t, "ub", "user@tenant-b.com", users.RoleUser, utils.Ptr("tenant-b"))
	ctx := context.Background()

	t.Run("super user promotes to tenant admin", func(t *testing.T) {
		u, err := f.service.ChangeRole(ctx, superUser, "ub", auth.ChangeRoleRequest{Role: "TENANT_ADMIN", TenantID: utils.Ptr("tenant-b")})
		require.NoError(t, err)
		require.Equal(t, users.RoleTenantAdmin, u.Role)
		require.True(t, u.InTenant("tenant-b"))
	})

	t.Run("super user role clears tenant", func(t *testing.T) {
		u, err := f.service.ChangeRole(ctx, superUser, "ub", auth.ChangeRoleRequest{Role: "SUPER_USER"})
		require.NoError(t, err)
		require.Nil(t, u.TenantID)
	})

	t.Run("tenant admin within own tenant", func(t *testing.T) {
		u, err := f.service.ChangeRole(ctx, tenantAdmin, "ua", auth.ChangeRoleRequest{Role: "TENANT_ADMIN", TenantID: utils.Ptr("tenant-a")})
		require.NoError(t, err)
		require.Equal(t, users.RoleTenantAdmin, u.Role)
	})

	t.Run("tenant admin cannot grant super user", func(t *testing.T) {
		_, err := f.service.ChangeRole(ctx, tenantAdmin, "ua", auth.ChangeRoleRequest{Role: "SUPER_USER"})
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("tenant admin cannot touch other tenants", func(t *testing.T) {
		_, err := f.service.ChangeRole(ctx, tenantAdmin, "ub", auth.ChangeRoleRequest{Role: "USER"})
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("cannot change own role", func(t *testing.T) {
		_, err := f.service.ChangeRole(ctx, superUser, "su", auth.ChangeRoleRequest{Role: "USER"})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.service.ChangeRole(ctx, superUser, "ua", auth.ChangeRoleRequest{Role: "ROOT"})
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.service.ChangeRole(ctx, superUser, "missing", auth.ChangeRoleRequest{Role: "USER"})
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	require.Len(t, f.auditEvents(t, audit.EventRoleChanged), 3)
}

func TestListAuditLogs_Scoped(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestTenant(t, "tenant-a", true)
	f.createTestTenant(t, "tenant-b", true)
	superUser := f.createTestUser(t, "su", "super@example.com", users.RoleSuperUser, nil)
	tenantAdmin := f.createTestUser(t, "ta", "admin@tenant-a.com", users.RoleTenantAdmin, utils.Ptr("tenant-a"))
	f.createTestUser(t, "ub", "user@tenant-b.com", users.RoleUser, utils.Ptr("tenant-b"))

	for _, email := range []string{"admin@tenant-a.com", "user@tenant-b.com"} {
		_, err := f.service.Login(context.Background(), auth.LoginRequest{Email: email, Password: testUserPassword}, auth.Meta{})
		require.NoError(t, err)
	}

	all, err := f.service.ListAuditLogs(context.Background(), superUser, audit.ListFilter{Type: audit.EventLogin})
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)

	scoped, err := f.service.ListAuditLogs(context.Background(), tenantAdmin, audit.ListFilter{Type: audit.EventLogin})
	require.NoError(t, err)
	require.Equal(t, 1, scoped.Total)
	require.Equal(t, "tenant-a", scoped.Events[0].TenantID)
}
