// Package memory provides map-backed stores for development and tests.
// Data lives for the lifetime of the process.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

// CredentialStore is a concurrency-safe in-memory ports.CredentialStore.
type CredentialStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.User
	byName map[string]string
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		byID:   make(map[string]*domain.User),
		byName: make(map[string]string),
	}
}

// Create inserts user under a fresh ULID. The username check and insert
// happen under one lock, so concurrent duplicates see ErrUsernameTaken.
func (s *CredentialStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[user.Username]; taken {
		return nil, domain.ErrUsernameTaken
	}

	stored := *user
	stored.ID = ulid.Make().String()
	s.byID[stored.ID] = &stored
	s.byName[stored.Username] = stored.ID

	out := stored
	return &out, nil
}

func (s *CredentialStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *s.byID[id]
	return &out, nil
}

func (s *CredentialStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// Count returns the number of stored users.
func (s *CredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
