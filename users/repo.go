package users

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no credential matches the lookup key.
	ErrNotFound = errors.New("credential not found")
	// ErrDuplicate is returned when an insert would violate the
	// (email, provider) uniqueness invariant.
	ErrDuplicate = errors.New("credential already exists")
)

// Repo is the credential store collaborator: simple keyed lookup and
// insert, nothing more.
type Repo interface {
	// Insert stores a new credential. Returns ErrDuplicate when a
	// credential with the same (email, provider) already exists.
	Insert(ctx context.Context, credential *Credential) error
	// FindByEmail returns every credential stored for the email, across
	// providers. Callers detect integrity violations from the result.
	FindByEmail(ctx context.Context, email string) ([]*Credential, error)
	// GetByID returns the credential with the given ID or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Credential, error)
}
