package users

import (
	"strings"
	"time"
)

// Provider identifies where a credential originates.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Valid reports whether the provider is in the allowed set.
func (p Provider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderGoogle, ProviderGitHub:
		return true
	}
	return false
}

// Credential is a stored user credential. PasswordHash is set iff
// Provider is local; ProviderID is set iff the provider is external.
// (Email, Provider) is unique. Credentials are never mutated by this
// subsystem after creation.
type Credential struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	Provider     Provider  `json:"provider"`
	ProviderID   string    `json:"provider_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail performs a shape check on an email address.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if !strings.Contains(email[at+1:], ".") {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
