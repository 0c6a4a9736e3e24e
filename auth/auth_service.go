// Package auth orchestrates registration, login, and token refresh.
// It owns no transport concerns: handlers decide how tokens travel
// (header vs. cookie); the service only validates, consults the
// credential store and hasher, and mints token pairs.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/autherr"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenPair is a freshly minted access/refresh pair. The refresh token
// must never appear in a response body; handlers move it into the
// httpOnly cookie.
type TokenPair struct {
	Access  string
	Refresh string
}

// Service implements the login/registration state machine:
// Unauthenticated -> CredentialsSubmitted -> {Authenticated | Rejected}.
type Service struct {
	repo     users.Repo
	hasher   *users.Hasher
	issuer   *token.Issuer
	verifier *token.Verifier
	log      zerolog.Logger
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = logger
	}
}

// NewService initializes a Service with required dependencies.
func NewService(repo users.Repo, hasher *users.Hasher, issuer *token.Issuer, verifier *token.Verifier, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewService] password hasher is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewService] token issuer is required")
	}
	if verifier == nil {
		return nil, errors.New("[NewService] token verifier is required")
	}

	service := &Service{
		repo:     repo,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		log:      zerolog.Nop(),
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Register validates the request, stores a new credential, and issues
// a token pair for the fresh account.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*users.Credential, TokenPair, error) {
	if err := params.Validate(); err != nil {
		return nil, TokenPair{}, err
	}

	credential := &users.Credential{
		ID:         uuid.New().String(),
		Email:      users.NormalizeEmail(params.Email),
		Name:       params.Name,
		Provider:   params.Provider,
		ProviderID: params.ProviderID,
		CreatedAt:  s.nowTime(),
		UpdatedAt:  s.nowTime(),
	}

	if params.Provider == users.ProviderLocal {
		hash, err := s.hasher.Hash(params.Password)
		if err != nil {
			return nil, TokenPair{}, errors.Wrap(err, "[Service.Register] hasher.Hash")
		}
		credential.PasswordHash = hash
	}

	if err := s.repo.Insert(ctx, credential); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			return nil, TokenPair{}, ErrAlreadyRegistered
		}
		return nil, TokenPair{}, autherr.Wrap(autherr.KindStore, err, "[Service.Register] repo.Insert")
	}

	pair, err := s.issuePair(credential)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return credential, pair, nil
}

// Login checks the submitted credentials and issues a token pair. All
// rejection paths after shape validation return ErrInvalidCredentials
// so responses do not reveal whether the email exists.
func (s *Service) Login(ctx context.Context, params LoginParams) (*users.Credential, TokenPair, error) {
	if err := params.Validate(); err != nil {
		return nil, TokenPair{}, err
	}

	credential, err := s.lookup(ctx, users.NormalizeEmail(params.Email), params.Provider)
	if err != nil {
		return nil, TokenPair{}, err
	}

	if !s.hasher.Verify(params.Password, credential.PasswordHash) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(credential)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return credential, pair, nil
}

// Refresh validates a refresh token and mints a new pair. The refresh
// token is rotated on every successful use: callers must overwrite the
// stored cookie with the new value so a captured old token's replay
// window closes at the next refresh.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (TokenPair, error) {
	principal, err := s.verifier.VerifyRefresh(rawRefreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	credential, err := s.repo.GetByID(ctx, principal.SubjectID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return TokenPair{}, token.ErrInvalidToken
		}
		return TokenPair{}, autherr.Wrap(autherr.KindStore, err, "[Service.Refresh] repo.GetByID")
	}

	return s.issuePair(credential)
}

// lookup finds the credential for (email, provider). Zero matches maps
// to the generic authentication failure; more than one match for the
// pair violates the uniqueness invariant and is logged as an integrity
// error, also surfaced generically.
func (s *Service) lookup(ctx context.Context, email string, provider users.Provider) (*users.Credential, error) {
	matches, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, autherr.Wrap(autherr.KindStore, err, "[Service.lookup] repo.FindByEmail")
	}

	found := make([]*users.Credential, 0, 1)
	for _, credential := range matches {
		if credential.Provider == provider {
			found = append(found, credential)
		}
	}

	switch len(found) {
	case 0:
		return nil, ErrInvalidCredentials
	case 1:
		return found[0], nil
	default:
		s.log.Error().
			Str("email", email).
			Str("provider", string(provider)).
			Int("matches", len(found)).
			Msg("credential uniqueness invariant violated")
		return nil, ErrDuplicateCredentials
	}
}

func (s *Service) issuePair(credential *users.Credential) (TokenPair, error) {
	principal := token.Principal{SubjectID: credential.ID, Email: credential.Email}

	access, err := s.issuer.AccessToken(principal)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "[Service.issuePair] issuer.AccessToken")
	}
	refresh, err := s.issuer.RefreshToken(principal)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "[Service.issuePair] issuer.RefreshToken")
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
