package ports

import (
	"context"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// CredentialStore persists user records keyed by unique username.
//
// Create must fail atomically with domain.ErrUsernameTaken when the username
// already exists; the store's unique key is the source of truth for that
// invariant. Lookups return domain.ErrUserNotFound when nothing matches.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
