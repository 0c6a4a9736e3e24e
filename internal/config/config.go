package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds all process configuration. It is constructed once at
// startup and injected into every component; no package reads the
// environment after Load returns.
type Config struct {
	Env         string   `env:"ENV" envDefault:"DEV"`
	AppName     string   `env:"APP_NAME" envDefault:"Go Session Auth"`
	Addr        string   `env:"ADDR" envDefault:":8080"`
	DatabaseURL string   `env:"DATABASE_URL"`
	CorsOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	Auth  AuthConfig     `envPrefix:"AUTH_"`
	OAuth ProviderConfig `envPrefix:"OAUTH_"`
}

// AuthConfig carries the token secrets and lifetimes. Both secrets are
// required: startup fails fast if either is absent, there is no
// fallback value.
type AuthConfig struct {
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
}

// ProviderConfig holds OAuth provider credentials. The provider flows
// themselves are not implemented; the values feed the stub authorize
// endpoint only.
type ProviderConfig struct {
	RedirectURL        string `env:"REDIRECT_URL"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
}

// Load parses configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "[config.Load] env.Parse")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the invariants the token subsystem relies on.
func (c Config) Validate() error {
	if c.Auth.AccessTokenSecret == "" {
		return errors.New("[config.Validate] AUTH_ACCESS_TOKEN_SECRET is required")
	}
	if c.Auth.RefreshTokenSecret == "" {
		return errors.New("[config.Validate] AUTH_REFRESH_TOKEN_SECRET is required")
	}
	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		return errors.New("[config.Validate] access and refresh secrets must differ")
	}
	if c.Auth.AccessTokenExpiry <= 0 {
		return errors.New("[config.Validate] access token expiry must be positive")
	}
	if c.Auth.RefreshTokenExpiry <= c.Auth.AccessTokenExpiry {
		return errors.New("[config.Validate] refresh token expiry must exceed access token expiry")
	}
	return nil
}

// IsDev reports whether the process runs in the development environment.
func (c Config) IsDev() bool {
	return c.Env == "DEV"
}
