package server

import (
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuthAuthorizeStubHandler is the placeholder for external provider
// login. The full flow (redirect, callback, token exchange) is not
// implemented; the stub validates the provider, builds the authorize
// URL a complete implementation would redirect to, and reports 501.
func (s *Server) OAuthAuthorizeStubHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")

		oauthConfig, ok := s.providerConfig(provider)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown provider")
			return
		}

		writeJSON(w, http.StatusNotImplemented, map[string]string{
			"error":        "provider login is not implemented",
			"authorizeUrl": oauthConfig.AuthCodeURL("state"),
		})
	}
}

func (s *Server) providerConfig(provider string) (*oauth2.Config, bool) {
	base := oauth2.Config{
		RedirectURL: s.config.OAuth.RedirectURL,
		Scopes:      []string{"openid", "email", "profile"},
	}
	switch provider {
	case "google":
		base.ClientID = s.config.OAuth.GoogleClientID
		base.ClientSecret = s.config.OAuth.GoogleClientSecret
		base.Endpoint = endpoints.Google
	case "github":
		base.ClientID = s.config.OAuth.GitHubClientID
		base.ClientSecret = s.config.OAuth.GitHubClientSecret
		base.Endpoint = endpoints.GitHub
	default:
		return nil, false
	}
	return &base, true
}
