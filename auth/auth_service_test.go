package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/autherr"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "access-secret-1234"
	testRefreshSecret = "refresh-secret-5678"
	testEmail         = "a@x.com"
	testName          = "Name"
	testPassword      = "secret1"
)

// testFixture holds all test dependencies.
type testFixture struct {
	repo     *fakeuserrepo.FakeUserRepo
	hasher   *users.Hasher
	verifier *token.Verifier
	service  *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	repo := fakeuserrepo.NewFakeUserRepo()
	hasher := users.NewHasher(bcrypt.MinCost)

	issuer, err := token.NewIssuer(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(testAccessSecret, testRefreshSecret)
	require.NoError(t, err)

	service, err := auth.NewService(repo, hasher, issuer, verifier)
	require.NoError(t, err)

	return &testFixture{
		repo:     repo,
		hasher:   hasher,
		verifier: verifier,
		service:  service,
	}
}

func localRegistration() auth.RegisterParams {
	return auth.RegisterParams{
		Email:    testEmail,
		Name:     testName,
		Password: testPassword,
		Provider: users.ProviderLocal,
	}
}

func TestRegisterLocal(t *testing.T) {
	f := setupTestFixture(t)

	credential, pair, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)
	require.NotEmpty(t, credential.ID)
	require.Equal(t, testEmail, credential.Email)
	require.Equal(t, users.ProviderLocal, credential.Provider)

	// Hash stored, never the plaintext.
	require.NotEmpty(t, credential.PasswordHash)
	require.NotEqual(t, testPassword, credential.PasswordHash)
	require.True(t, f.hasher.Verify(testPassword, credential.PasswordHash))
	require.False(t, f.hasher.Verify("wrong", credential.PasswordHash))

	// Both tokens verify and carry the new subject.
	principal, err := f.verifier.VerifyAccess(pair.Access)
	require.NoError(t, err)
	require.Equal(t, credential.ID, principal.SubjectID)
	require.Equal(t, testEmail, principal.Email)

	refreshPrincipal, err := f.verifier.VerifyRefresh(pair.Refresh)
	require.NoError(t, err)
	require.Equal(t, credential.ID, refreshPrincipal.SubjectID)
}

func TestRegisterOAuthProvider(t *testing.T) {
	f := setupTestFixture(t)

	credential, _, err := f.service.Register(context.Background(), auth.RegisterParams{
		Email:      "oauth@x.com",
		Name:       testName,
		Provider:   users.ProviderGoogle,
		ProviderID: "google-uid-1",
	})
	require.NoError(t, err)
	require.Empty(t, credential.PasswordHash)
	require.Equal(t, "google-uid-1", credential.ProviderID)
}

func TestRegisterValidation(t *testing.T) {
	f := setupTestFixture(t)

	cases := []struct {
		name   string
		params auth.RegisterParams
	}{
		{"empty email", auth.RegisterParams{Name: testName, Password: testPassword, Provider: users.ProviderLocal}},
		{"malformed email", auth.RegisterParams{Email: "not-an-email", Name: testName, Password: testPassword, Provider: users.ProviderLocal}},
		{"empty name", auth.RegisterParams{Email: testEmail, Password: testPassword, Provider: users.ProviderLocal}},
		{"unknown provider", auth.RegisterParams{Email: testEmail, Name: testName, Password: testPassword, Provider: "facebook"}},
		{"local without password", auth.RegisterParams{Email: testEmail, Name: testName, Provider: users.ProviderLocal}},
		{"oauth without provider_id", auth.RegisterParams{Email: testEmail, Name: testName, Provider: users.ProviderGitHub}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.service.Register(context.Background(), tc.params)
			require.Error(t, err)
			require.True(t, autherr.IsKind(err, autherr.KindValidation))

			// Nothing reached the store.
			matches, findErr := f.repo.FindByEmail(context.Background(), users.NormalizeEmail(tc.params.Email))
			require.NoError(t, findErr)
			require.Empty(t, matches)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	_, _, err = f.service.Register(context.Background(), localRegistration())
	require.ErrorIs(t, err, auth.ErrAlreadyRegistered)
}

func TestRegisterSameEmailDifferentProvider(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	// (email, provider) is the unique key, not email alone.
	_, _, err = f.service.Register(context.Background(), auth.RegisterParams{
		Email:      testEmail,
		Name:       testName,
		Provider:   users.ProviderGoogle,
		ProviderID: "google-uid-1",
	})
	require.NoError(t, err)
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t)

	registered, _, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	credential, pair, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:    testEmail,
		Password: testPassword,
		Provider: users.ProviderLocal,
	})
	require.NoError(t, err)
	require.Equal(t, registered.ID, credential.ID)

	principal, err := f.verifier.VerifyAccess(pair.Access)
	require.NoError(t, err)
	require.Equal(t, registered.ID, principal.SubjectID)
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	_, _, wrongPassword := f.service.Login(context.Background(), auth.LoginParams{
		Email:    testEmail,
		Password: "wrong-password",
		Provider: users.ProviderLocal,
	})
	require.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)

	_, _, unknownEmail := f.service.Login(context.Background(), auth.LoginParams{
		Email:    "nobody@x.com",
		Password: testPassword,
		Provider: users.ProviderLocal,
	})
	require.ErrorIs(t, unknownEmail, auth.ErrInvalidCredentials)

	// Same kind, same message: no account enumeration through error text.
	require.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginValidation(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.service.Login(context.Background(), auth.LoginParams{
		Email:    testEmail,
		Provider: users.ProviderLocal,
	})
	require.True(t, autherr.IsKind(err, autherr.KindValidation))

	_, _, err = f.service.Login(context.Background(), auth.LoginParams{
		Email:    testEmail,
		Password: testPassword,
		Provider: users.ProviderGoogle,
	})
	require.True(t, autherr.IsKind(err, autherr.KindValidation))
}

func TestLoginIntegrityViolation(t *testing.T) {
	f := setupTestFixture(t)

	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	// Bypass the unique index to simulate duplicate rows in the store.
	for i := 0; i < 2; i++ {
		f.repo.ForceInsert(&users.Credential{
			ID:           uuid.New().String(),
			Email:        testEmail,
			Name:         testName,
			PasswordHash: hash,
			Provider:     users.ProviderLocal,
		})
	}

	_, _, err = f.service.Login(context.Background(), auth.LoginParams{
		Email:    testEmail,
		Password: testPassword,
		Provider: users.ProviderLocal,
	})
	require.ErrorIs(t, err, auth.ErrDuplicateCredentials)
	require.True(t, autherr.IsKind(err, autherr.KindIntegrity))
}

func TestRefreshRotatesPair(t *testing.T) {
	f := setupTestFixture(t)

	registered, pair, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	rotated, err := f.service.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.Access)
	require.NotEqual(t, pair.Refresh, rotated.Refresh)

	// The new access token's subject matches the refresh token's.
	principal, err := f.verifier.VerifyAccess(rotated.Access)
	require.NoError(t, err)
	require.Equal(t, registered.ID, principal.SubjectID)

	// The rotated refresh token is itself usable.
	_, err = f.service.Refresh(context.Background(), rotated.Refresh)
	require.NoError(t, err)
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	f := setupTestFixture(t)

	_, pair, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	// Tampered token.
	_, err = f.service.Refresh(context.Background(), pair.Refresh+"x")
	require.ErrorIs(t, err, token.ErrInvalidToken)

	// An access token is not accepted at the refresh boundary.
	_, err = f.service.Refresh(context.Background(), pair.Access)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.service.Refresh(context.Background(), "")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRefreshExpiredToken(t *testing.T) {
	f := setupTestFixture(t)

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token.NowTimeFunc = func() time.Time { return issuedAt }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })

	_, pair, err := f.service.Register(context.Background(), localRegistration())
	require.NoError(t, err)

	token.NowTimeFunc = func() time.Time { return issuedAt.Add(8 * 24 * time.Hour) }
	_, err = f.service.Refresh(context.Background(), pair.Refresh)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRefreshForDeletedSubject(t *testing.T) {
	f := setupTestFixture(t)

	issuer, err := token.NewIssuer(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	// Valid signature, but the subject does not exist in the store.
	refresh, err := issuer.RefreshToken(token.Principal{SubjectID: "ghost-user"})
	require.NoError(t, err)

	_, err = f.service.Refresh(context.Background(), refresh)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}
