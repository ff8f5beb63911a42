package users_test

import (
	"testing"

	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
	}{
		{name: "valid", password: "password123"},
		{name: "too short", password: "pass1", errMsg: "at least 8 characters"},
		{name: "no number", password: "passwordonly", errMsg: "at least one number"},
		{name: "no letter", password: "1234567890", errMsg: "at least one letter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := users.HashPassword("password123")
	require.NoError(t, err)

	u := &users.User{PasswordHash: hash}
	require.True(t, u.CheckPassword("password123"))
	require.False(t, u.CheckPassword("wrong-password1"))
}

func TestParseRole(t *testing.T) {
	r, err := users.ParseRole(" tenant_admin ")
	require.NoError(t, err)
	require.Equal(t, users.RoleTenantAdmin, r)

	_, err = users.ParseRole("ROOT")
	require.Error(t, err)
}

func TestPermissions(t *testing.T) {
	superUser := &users.User{Role: users.RoleSuperUser, Active: true}
	tenantAdmin := &users.User{Role: users.RoleTenantAdmin, TenantID: utils.Ptr("tenant-a"), Active: true}
	regular := &users.User{Role: users.RoleUser, TenantID: utils.Ptr("tenant-a"), Active: true}

	require.True(t, superUser.Can(users.PermTenantsWrite))
	require.True(t, superUser.CanManageTenant("any-tenant"))

	require.False(t, tenantAdmin.Can(users.PermTenantsWrite))
	require.True(t, tenantAdmin.Can(users.PermUsersRead))
	require.True(t, tenantAdmin.CanManageTenant("tenant-a"))
	require.False(t, tenantAdmin.CanManageTenant("tenant-b"))

	require.False(t, regular.Can(users.PermUsersRead))
	require.False(t, regular.CanManageTenant("tenant-a"))

	superUser.Active = false
	require.False(t, superUser.Can(users.PermTenantsRead), "inactive users have no permissions")
}

func TestRoles_StableOrderAndCopies(t *testing.T) {
	roles := users.Roles()
	require.Len(t, roles, 3)
	require.Equal(t, users.RoleSuperUser, roles[0].Role)
	require.Empty(t, roles[2].Permissions)

	roles[0].Permissions[0] = "mutated"
	require.Equal(t, users.PermTenantsRead, users.PermissionsFor(users.RoleSuperUser)[0])
}
