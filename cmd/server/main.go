package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/jrsteele09/go-session-auth/users/postgres"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running server: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	displayAppname(cfg.AppName)

	repo, cleanup, err := newUserRepo(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	issuer, err := token.NewIssuer(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.RefreshTokenExpiry)
	if err != nil {
		return err
	}
	verifier, err := token.NewVerifier(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(repo, users.NewHasher(cfg.Auth.BcryptCost), issuer, verifier, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, authService, verifier, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.Addr, Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// newUserRepo picks the credential store: Postgres when DATABASE_URL is
// set, otherwise the in-memory store for local development.
func newUserRepo(cfg config.Config, logger zerolog.Logger) (users.Repo, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory credential store")
		return fakeuserrepo.NewFakeUserRepo(), func() {}, nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	repo := postgres.NewRepo(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres.EnsureSchema: %w", err)
	}
	logger.Info().Msg("connected to postgres credential store")
	return repo, pool.Close, nil
}

func listenAndServe(server *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
