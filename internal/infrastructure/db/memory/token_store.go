package memory

import (
	"context"
	"sync"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

// TokenStore is a concurrency-safe in-memory ports.TokenStore. Expired
// tokens are not evicted; verification treats them as invalid.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]domain.AuthToken
}

var _ ports.TokenStore = (*TokenStore)(nil)

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]domain.AuthToken)}
}

func (s *TokenStore) Save(_ context.Context, token *domain.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token.Token]; exists {
		return domain.ErrTokenExists
	}
	s.tokens[token.Token] = *token
	return nil
}

func (s *TokenStore) FindByToken(_ context.Context, token string) (*domain.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return &t, nil
}
