package ports

import (
	"context"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// Verifier answers whether a raw Authorization header value carries a valid
// token. A malformed header yields domain.ErrMalformedToken. Transport
// failures surface as errors; callers decide how to degrade.
type Verifier interface {
	Verify(ctx context.Context, authHeader string) (domain.Verification, error)
}
