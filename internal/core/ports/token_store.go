package ports

import (
	"context"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// TokenStore persists issued tokens keyed by the token string.
// FindByToken returns domain.ErrTokenNotFound for unknown tokens; Save
// returns domain.ErrTokenExists if the token string is already taken.
type TokenStore interface {
	FindByToken(ctx context.Context, token string) (*domain.AuthToken, error)
	Save(ctx context.Context, token *domain.AuthToken) error
}
