// Package postgres implements the credential store on PostgreSQL via
// pgx. The (email, provider) uniqueness invariant is enforced by a
// unique index so concurrent registrations cannot race past the
// service-level check.
package postgres

import (
	"context"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_credentials (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL,
	password_hash TEXT,
	provider      TEXT NOT NULL,
	provider_id   TEXT,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS user_credentials_email_provider
	ON user_credentials (email, provider);
`

var _ users.Repo = (*Repo)(nil)

// Repo is a pgx-backed credential store.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// EnsureSchema creates the credential table if it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "[Repo.EnsureSchema] exec schema")
	}
	return nil
}

func (r *Repo) Insert(ctx context.Context, credential *users.Credential) error {
	const query = `
		INSERT INTO user_credentials
			(id, email, name, password_hash, provider, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		credential.ID,
		credential.Email,
		credential.Name,
		credential.PasswordHash,
		string(credential.Provider),
		credential.ProviderID,
		credential.CreatedAt,
		credential.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return users.ErrDuplicate
		}
		return errors.Wrap(err, "[Repo.Insert] exec insert")
	}
	return nil
}

func (r *Repo) FindByEmail(ctx context.Context, email string) ([]*users.Credential, error) {
	const query = `
		SELECT id, email, name, COALESCE(password_hash, ''), provider, COALESCE(provider_id, ''), created_at, updated_at
		FROM user_credentials
		WHERE email = $1`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.FindByEmail] query")
	}
	defer rows.Close()

	matches := make([]*users.Credential, 0)
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[Repo.FindByEmail] scan")
		}
		matches = append(matches, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[Repo.FindByEmail] rows")
	}
	return matches, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.Credential, error) {
	const query = `
		SELECT id, email, name, COALESCE(password_hash, ''), provider, COALESCE(provider_id, ''), created_at, updated_at
		FROM user_credentials
		WHERE id = $1`

	credential, err := scanCredential(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Repo.GetByID] scan")
	}
	return credential, nil
}

func scanCredential(row pgx.Row) (*users.Credential, error) {
	var credential users.Credential
	var provider string
	err := row.Scan(
		&credential.ID,
		&credential.Email,
		&credential.Name,
		&credential.PasswordHash,
		&provider,
		&credential.ProviderID,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	credential.Provider = users.Provider(provider)
	return &credential, nil
}
