package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

// expiredGrace keeps already-expired records around briefly so verification
// can still answer "Token expired" rather than "Invalid token".
const expiredGrace = time.Hour

// TokenStore implements ports.TokenStore on Redis.
// Key format: auth:token:<token>. Records expire from Redis one grace period
// after their expiresAt; tokens without expiry are kept indefinitely.
type TokenStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a TokenStore wrapping the given Redis client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client, now: time.Now}
}

type tokenRecord struct {
	UserID    string     `json:"user_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Save stores token atomically; an existing key yields domain.ErrTokenExists.
func (s *TokenStore) Save(ctx context.Context, token *domain.AuthToken) error {
	payload, err := json.Marshal(tokenRecord{
		UserID:    token.UserID,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	var ttl time.Duration
	if token.ExpiresAt != nil {
		ttl = token.ExpiresAt.Sub(s.now()) + expiredGrace
		if ttl < time.Second {
			ttl = time.Second
		}
	}

	ok, err := s.client.SetNX(ctx, s.key(token.Token), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if !ok {
		return domain.ErrTokenExists
	}
	return nil
}

func (s *TokenStore) FindByToken(ctx context.Context, token string) (*domain.AuthToken, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	var rec tokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &domain.AuthToken{
		Token:     token,
		UserID:    rec.UserID,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *TokenStore) key(token string) string {
	return "auth:token:" + token
}
