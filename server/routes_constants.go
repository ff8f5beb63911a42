package server

// Route path constants
// All API routes are defined here so handlers, tests and the client agree
const (
	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthMe       = "/auth/me"
	RouteAuthRefresh  = "/auth/refresh"

	// Tenant Routes
	RouteTenants = "/tenants"
	RouteTenant  = "/tenants/{id}"

	// User & Role Routes
	RouteUsers    = "/users"
	RouteUserRole = "/users/{id}/role"
	RouteRoles    = "/roles"

	// Logs
	RouteAuditLogs = "/audit-logs"
	RouteSessions  = "/sessions"

	RouteHealth = "/health"
)

// TokenCookieName is the cookie the dashboard keeps its session token in
const TokenCookieName = "token"
