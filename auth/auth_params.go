package auth

import (
	"strings"

	"github.com/jrsteele09/go-session-auth/autherr"
	"github.com/jrsteele09/go-session-auth/users"
)

// RegisterParams is the validated registration request. Validation
// runs before any store access; a params value that fails Validate is
// never acted on.
type RegisterParams struct {
	Email      string         `json:"email"`
	Name       string         `json:"name"`
	Password   string         `json:"password"`
	Provider   users.Provider `json:"provider"`
	ProviderID string         `json:"provider_id,omitempty"`
}

// Validate checks the registration shape: provider in the allowed set,
// password for local registrations, provider_id for external ones.
func (p RegisterParams) Validate() error {
	if err := validateEmail(p.Email); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		return autherr.E(autherr.KindValidation, "name is required")
	}
	if !p.Provider.Valid() {
		return autherr.Errorf(autherr.KindValidation, "provider must be one of local, google, github")
	}
	if p.Provider == users.ProviderLocal {
		if p.Password == "" {
			return autherr.E(autherr.KindValidation, "password is required for local registration")
		}
		return nil
	}
	if strings.TrimSpace(p.ProviderID) == "" {
		return autherr.Errorf(autherr.KindValidation, "provider_id is required for %s registration", p.Provider)
	}
	return nil
}

// LoginParams is the validated login request.
type LoginParams struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Provider users.Provider `json:"provider"`
}

// Validate checks the login shape. Password logins exist only for the
// local provider; external providers authenticate through their own
// flow, not this endpoint.
func (p LoginParams) Validate() error {
	if err := validateEmail(p.Email); err != nil {
		return err
	}
	if !p.Provider.Valid() {
		return autherr.E(autherr.KindValidation, "provider must be one of local, google, github")
	}
	if p.Provider != users.ProviderLocal {
		return autherr.Errorf(autherr.KindValidation, "password login is not supported for provider %s", p.Provider)
	}
	if p.Password == "" {
		return autherr.E(autherr.KindValidation, "password is required")
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return autherr.E(autherr.KindValidation, "email is required")
	}
	if !users.ValidEmail(email) {
		return autherr.E(autherr.KindValidation, "invalid email format")
	}
	return nil
}
