// Package token signs and validates the access and refresh tokens.
// The two kinds use distinct secrets and lifetimes; tokens are
// self-contained (signature + embedded expiry), so verification never
// touches a store.
package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/autherr"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Principal is the authenticated identity encoded in a token and
// attached to a request after verification.
type Principal struct {
	SubjectID string `json:"sub"`
	Email     string `json:"email,omitempty"`
}

// ErrInvalidToken is the generic verification failure: bad signature,
// wrong secret, wrong token kind, or elapsed expiry. An expired token
// is never partially trusted.
var ErrInvalidToken = autherr.E(autherr.KindAuthorization, "invalid or expired token")

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	Kind  string `json:"kind"`
	jwtlib.RegisteredClaims
}

// Issuer mints access and refresh tokens.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewIssuer validates the secret/expiry configuration up front so a
// misconfigured process fails at startup, not on first login.
func NewIssuer(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) (*Issuer, error) {
	if accessSecret == "" {
		return nil, errors.New("[NewIssuer] access secret is required")
	}
	if refreshSecret == "" {
		return nil, errors.New("[NewIssuer] refresh secret is required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("[NewIssuer] access and refresh secrets must differ")
	}
	if accessExpiry <= 0 {
		return nil, errors.New("[NewIssuer] access expiry must be positive")
	}
	if refreshExpiry <= accessExpiry {
		return nil, errors.New("[NewIssuer] refresh expiry must exceed access expiry")
	}
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}, nil
}

// AccessToken signs {sub, email} with the access secret and the short
// expiry.
func (i *Issuer) AccessToken(principal Principal) (string, error) {
	return sign(i.accessSecret, sessionClaims{
		Email:            principal.Email,
		Kind:             kindAccess,
		RegisteredClaims: registeredClaims(principal.SubjectID, i.accessExpiry),
	})
}

// RefreshToken signs {sub} with the refresh secret and the longer
// expiry. The email claim is deliberately omitted.
func (i *Issuer) RefreshToken(principal Principal) (string, error) {
	return sign(i.refreshSecret, sessionClaims{
		Kind:             kindRefresh,
		RegisteredClaims: registeredClaims(principal.SubjectID, i.refreshExpiry),
	})
}

// AccessExpiry returns the configured access token lifetime.
func (i *Issuer) AccessExpiry() time.Duration { return i.accessExpiry }

// RefreshExpiry returns the configured refresh token lifetime.
func (i *Issuer) RefreshExpiry() time.Duration { return i.refreshExpiry }

func registeredClaims(subjectID string, expiry time.Duration) jwtlib.RegisteredClaims {
	now := NowTimeFunc()
	return jwtlib.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(expiry)),
		ID:        uuid.New().String(),
	}
}

func sign(secret []byte, claims sessionClaims) (string, error) {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer] SignedString")
	}
	return signed, nil
}

// Verifier validates tokens against the matching secret.
type Verifier struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewVerifier(accessSecret, refreshSecret string) (*Verifier, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("[NewVerifier] both secrets are required")
	}
	return &Verifier{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// VerifyAccess validates an access token and returns its principal.
func (v *Verifier) VerifyAccess(raw string) (Principal, error) {
	return verify(raw, v.accessSecret, kindAccess)
}

// VerifyRefresh validates a refresh token and returns its principal.
// The principal carries no email; callers needing one look the subject
// up in the credential store.
func (v *Verifier) VerifyRefresh(raw string) (Principal, error) {
	return verify(raw, v.refreshSecret, kindRefresh)
}

func verify(raw string, secret []byte, wantKind string) (Principal, error) {
	claims := &sessionClaims{}
	parsed, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	// A refresh token must never be accepted where an access token is
	// expected, and vice versa.
	if claims.Kind != wantKind {
		return Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{SubjectID: claims.Subject, Email: claims.Email}, nil
}
