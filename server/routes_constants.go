package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Protected surfaces
	RouteHome  = "/"
	RouteAdmin = "/admin"

	// Login pages (role-appropriate)
	RouteLogin      = "/login"
	RouteAdminLogin = "/admin/login"

	// Auth actions
	RouteAuthLogin       = "/auth/login"
	RouteAuthLogout      = "/auth/logout"
	RouteAdminAuthLogout = "/admin/auth/logout"
	RouteAuthGoogle      = "/auth/google"
	RouteCallback        = "/auth/callback"

	// API routes
	RouteAPIMe = "/api/me"
)
