package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-session-auth/autherr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error onto the wire. Validation
// errors surface verbatim; authentication failures map to the generic
// credentials message; integrity and store errors are logged and
// returned as an opaque server error.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch autherr.KindOf(err) {
	case autherr.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case autherr.KindAuthentication:
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case autherr.KindAuthorization:
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// setRefreshCookie stores the refresh token in an httpOnly,
// strict-SameSite cookie scoped to the refresh endpoint's path. The
// token never travels anywhere else.
func (s *Server) setRefreshCookie(w http.ResponseWriter, r *http.Request, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     RouteRefresh,
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.config.Auth.RefreshTokenExpiry.Seconds()),
	})
}

// clearRefreshCookie expires the cookie at the same path it was set on.
func (s *Server) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     RouteRefresh,
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func (s *Server) isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
