package server

const (
	RouteRegister      = "/auth/register"
	RouteLogin         = "/auth/login"
	RouteRefresh       = "/auth/refresh"
	RouteLogout        = "/auth/logout"
	RouteMe            = "/auth/me"
	RouteOAuthProvider = "/auth/oauth/{provider}"

	// refreshCookieName is the httpOnly cookie carrying the refresh
	// token. It is scoped to RouteRefresh so it travels on no other
	// request.
	refreshCookieName = "refresh_token"
)
