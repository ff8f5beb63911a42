package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-admin/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("OPTIONS /", s.PreflightHandler())

	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.RequireAuth())...))

	// TENANTS (super user only)
	s.RegisterRouteHandler("GET "+RouteTenants, s.protected(s.TenantsListHandler(), users.PermTenantsRead))
	s.RegisterRouteHandler("POST "+RouteTenants, s.protected(s.TenantCreateHandler(), users.PermTenantsWrite))
	s.RegisterRouteHandler("GET "+RouteTenant, s.protected(s.TenantGetHandler(), users.PermTenantsRead))
	s.RegisterRouteHandler("PATCH "+RouteTenant, s.protected(s.TenantUpdateHandler(), users.PermTenantsWrite))
	s.RegisterRouteHandler("DELETE "+RouteTenant, s.protected(s.TenantDeleteHandler(), users.PermTenantsWrite))

	// USERS & ROLES
	s.RegisterRouteHandler("GET "+RouteUsers, s.protected(s.UsersListHandler(), users.PermUsersRead))
	s.RegisterRouteHandler("PATCH "+RouteUserRole, s.protected(s.UserRoleHandler(), users.PermUsersWrite))
	s.RegisterRouteHandler("GET "+RouteRoles, s.protected(s.RolesHandler(), users.PermRolesRead))

	// LOGS
	s.RegisterRouteHandler("GET "+RouteAuditLogs, s.protected(s.AuditLogsHandler(), users.PermAuditRead))
	s.RegisterRouteHandler("GET "+RouteSessions, s.protected(s.SessionsHandler(), users.PermSessionsRead))
}

// protected chains the API stack with token validation and a permission check
func (s *Server) protected(handler http.HandlerFunc, perm users.Permission) http.HandlerFunc {
	return ChainMiddleware(handler, s.APIMiddleware(s.RequireAuth(), s.RequirePermission(perm))...)
}
