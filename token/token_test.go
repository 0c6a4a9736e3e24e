package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/autherr"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/stretchr/testify/require"
)

const (
	accessSecret  = "access-secret-1234"
	refreshSecret = "refresh-secret-5678"
	accessExpiry  = 15 * time.Minute
	refreshExpiry = 7 * 24 * time.Hour
)

var testPrincipal = token.Principal{SubjectID: "user-1", Email: "john.doe@example.com"}

func newIssuerAndVerifier(t *testing.T) (*token.Issuer, *token.Verifier) {
	t.Helper()

	issuer, err := token.NewIssuer(accessSecret, refreshSecret, accessExpiry, refreshExpiry)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(accessSecret, refreshSecret)
	require.NoError(t, err)
	return issuer, verifier
}

// withFrozenClock pins NowTimeFunc to a fixed time and restores it when
// the test finishes.
func withFrozenClock(t *testing.T, now time.Time) {
	t.Helper()

	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer, verifier := newIssuerAndVerifier(t)

	raw, err := issuer.AccessToken(testPrincipal)
	require.NoError(t, err)

	principal, err := verifier.VerifyAccess(raw)
	require.NoError(t, err)
	require.Equal(t, testPrincipal, principal)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	issuer, verifier := newIssuerAndVerifier(t)

	raw, err := issuer.RefreshToken(testPrincipal)
	require.NoError(t, err)

	principal, err := verifier.VerifyRefresh(raw)
	require.NoError(t, err)
	require.Equal(t, testPrincipal.SubjectID, principal.SubjectID)
	require.Empty(t, principal.Email) // refresh tokens carry no email
}

func TestAccessTokenExpires(t *testing.T) {
	issuer, verifier := newIssuerAndVerifier(t)

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFrozenClock(t, issuedAt)

	raw, err := issuer.AccessToken(testPrincipal)
	require.NoError(t, err)

	// Still valid just before expiry.
	token.NowTimeFunc = func() time.Time { return issuedAt.Add(accessExpiry - time.Second) }
	_, err = verifier.VerifyAccess(raw)
	require.NoError(t, err)

	// Invalid once the expiry has elapsed.
	token.NowTimeFunc = func() time.Time { return issuedAt.Add(accessExpiry + time.Second) }
	_, err = verifier.VerifyAccess(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRefreshTokenOutlivesAccessToken(t *testing.T) {
	issuer, verifier := newIssuerAndVerifier(t)

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withFrozenClock(t, issuedAt)

	access, err := issuer.AccessToken(testPrincipal)
	require.NoError(t, err)
	refresh, err := issuer.RefreshToken(testPrincipal)
	require.NoError(t, err)

	// After the access expiry the refresh token is still good.
	token.NowTimeFunc = func() time.Time { return issuedAt.Add(accessExpiry + time.Minute) }
	_, err = verifier.VerifyAccess(access)
	require.Error(t, err)
	_, err = verifier.VerifyRefresh(refresh)
	require.NoError(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := newIssuerAndVerifier(t)

	otherVerifier, err := token.NewVerifier("some-other-secret", "another-secret")
	require.NoError(t, err)

	raw, err := issuer.AccessToken(testPrincipal)
	require.NoError(t, err)

	_, err = otherVerifier.VerifyAccess(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
	require.True(t, autherr.IsKind(err, autherr.KindAuthorization))
}

func TestVerifyRejectsKindConfusion(t *testing.T) {
	issuer, verifier := newIssuerAndVerifier(t)

	access, err := issuer.AccessToken(testPrincipal)
	require.NoError(t, err)
	refresh, err := issuer.RefreshToken(testPrincipal)
	require.NoError(t, err)

	// A refresh token is signed with a different secret, so it already
	// fails access verification; the kind claim additionally blocks
	// replay even if the secrets were ever unified by mistake.
	_, err = verifier.VerifyAccess(refresh)
	require.ErrorIs(t, err, token.ErrInvalidToken)
	_, err = verifier.VerifyRefresh(access)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, verifier := newIssuerAndVerifier(t)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := verifier.VerifyAccess(raw)
		require.ErrorIs(t, err, token.ErrInvalidToken)
	}
}

func TestNewIssuerConfigValidation(t *testing.T) {
	cases := []struct {
		name          string
		access        string
		refresh       string
		accessExpiry  time.Duration
		refreshExpiry time.Duration
	}{
		{"missing access secret", "", refreshSecret, accessExpiry, refreshExpiry},
		{"missing refresh secret", accessSecret, "", accessExpiry, refreshExpiry},
		{"identical secrets", accessSecret, accessSecret, accessExpiry, refreshExpiry},
		{"zero access expiry", accessSecret, refreshSecret, 0, refreshExpiry},
		{"refresh not longer than access", accessSecret, refreshSecret, time.Hour, time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := token.NewIssuer(tc.access, tc.refresh, tc.accessExpiry, tc.refreshExpiry)
			require.Error(t, err)
		})
	}
}
