package users

import "slices"

// Permission names an action on an admin resource
type Permission string

const (
	PermTenantsRead  Permission = "tenants:read"
	PermTenantsWrite Permission = "tenants:write"
	PermUsersRead    Permission = "users:read"
	PermUsersWrite   Permission = "users:write"
	PermRolesRead    Permission = "roles:read"
	PermAuditRead    Permission = "audit:read"
	PermSessionsRead Permission = "sessions:read"
)

// RolePermissions is the fixed role to permission table.
// Tenant admins only ever see data scoped to their own tenant.
var rolePermissions = map[Role][]Permission{
	RoleSuperUser: {
		PermTenantsRead, PermTenantsWrite,
		PermUsersRead, PermUsersWrite,
		PermRolesRead, PermAuditRead, PermSessionsRead,
	},
	RoleTenantAdmin: {
		PermUsersRead, PermUsersWrite,
		PermAuditRead, PermSessionsRead,
	},
	RoleUser: {},
}

// RoleAssignment is one row of the role table served to the dashboard
type RoleAssignment struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

// Roles returns the role table in a stable order
func Roles() []RoleAssignment {
	out := make([]RoleAssignment, 0, len(rolePermissions))
	for _, r := range []Role{RoleSuperUser, RoleTenantAdmin, RoleUser} {
		out = append(out, RoleAssignment{Role: r, Permissions: PermissionsFor(r)})
	}
	return out
}

// PermissionsFor returns a copy of the permissions granted to role
func PermissionsFor(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}

// HasPermission checks the role table for role
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// Can checks whether the user may perform perm
func (u *User) Can(perm Permission) bool {
	return u.Active && HasPermission(u.Role, perm)
}

// CanManageTenant returns true if the user may administer tenantID's users
func (u *User) CanManageTenant(tenantID string) bool {
	if u.IsSuperUser() {
		return true
	}
	return u.Role == RoleTenantAdmin && u.InTenant(tenantID)
}
