package auth

import "github.com/jrsteele09/go-session-auth/autherr"

var (
	// ErrInvalidCredentials is the single outward-facing login failure.
	// Unknown email and wrong password deliberately produce the same
	// message so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = autherr.E(autherr.KindAuthentication, "invalid email or password")

	// ErrDuplicateCredentials reports a (email, provider) uniqueness
	// violation in the store. Should be unreachable; logged, never
	// exposed verbatim.
	ErrDuplicateCredentials = autherr.E(autherr.KindIntegrity, "duplicate credentials for email")

	// ErrAlreadyRegistered is returned when registering an existing
	// (email, provider) pair.
	ErrAlreadyRegistered = autherr.E(autherr.KindValidation, "account already registered")
)
