package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory credential store for tests and local
// development.
type FakeUserRepo struct {
	credentials map[string]*users.Credential // keyed by ID
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		credentials: make(map[string]*users.Credential),
	}
}

func (ur *FakeUserRepo) Insert(_ context.Context, credential *users.Credential) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	for _, existing := range ur.credentials {
		if existing.Email == credential.Email && existing.Provider == credential.Provider {
			return users.ErrDuplicate
		}
	}

	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}
	stored := *credential
	ur.credentials[credential.ID] = &stored
	return nil
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) ([]*users.Credential, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	matches := make([]*users.Credential, 0)
	for _, credential := range ur.credentials {
		if credential.Email == email {
			copied := *credential
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.Credential, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	credential, ok := ur.credentials[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *credential
	return &copied, nil
}

// ForceInsert stores a credential without uniqueness checks. Tests use
// it to simulate integrity violations that the real store's unique
// index would normally prevent.
func (ur *FakeUserRepo) ForceInsert(credential *users.Credential) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}
	stored := *credential
	ur.credentials[credential.ID] = &stored
}
