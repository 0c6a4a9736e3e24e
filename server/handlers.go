package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/autherr"
	"github.com/jrsteele09/go-session-auth/users"
)

type sessionResponse struct {
	User        *users.Credential `json:"user"`
	AccessToken string            `json:"accessToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// RegisterHandler creates a new credential and starts a session. The
// access token is returned in the body; the refresh token goes into
// the cookie only.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params auth.RegisterParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		credential, pair, err := s.auth.Register(r.Context(), params)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}

		s.setRefreshCookie(w, r, pair.Refresh)
		writeJSON(w, http.StatusCreated, sessionResponse{User: credential, AccessToken: pair.Access})
	}
}

// LoginHandler authenticates a credential and starts a session.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params auth.LoginParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		credential, pair, err := s.auth.Login(r.Context(), params)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}

		s.setRefreshCookie(w, r, pair.Refresh)
		writeJSON(w, http.StatusOK, sessionResponse{User: credential, AccessToken: pair.Access})
	}
}

// RefreshHandler reads the refresh cookie (never a header), mints a
// new access token, and rotates the refresh cookie. A used refresh
// token is replaced on every success so it does not stay valid for its
// whole lifetime.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "missing refresh token")
			return
		}

		pair, err := s.auth.Refresh(r.Context(), cookie.Value)
		if err != nil {
			// Only a rejected token ends the session. A store failure is
			// logged and surfaced opaquely so a valid cookie survives it.
			if autherr.IsKind(err, autherr.KindAuthorization) {
				writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
				return
			}
			s.log.Error().Err(err).Msg("refresh failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		s.setRefreshCookie(w, r, pair.Refresh)
		writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.Access})
	}
}

// LogoutHandler clears the refresh cookie. There is no server-side
// revocation store: an already issued access token stays
// cryptographically valid until its natural expiry.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.clearRefreshCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

// PreflightHandler terminates OPTIONS requests that CorsMiddleware did
// not already answer, such as same-origin preflights.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the principal of the verified access token.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		writeJSON(w, http.StatusOK, principal)
	}
}
