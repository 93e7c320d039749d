package ports

import (
	"context"
	"time"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt *time.Time
	User      *domain.User
}

// RegisterResult reports a registration attempt. A taken username is a soft
// failure: Success=false with a message, not an error.
type RegisterResult struct {
	Success  bool
	UserID   string
	Username string
	Message  string
}

// AuthService owns token issuance and the authority to declare a token valid.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*RegisterResult, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Verify(ctx context.Context, token string) (domain.Verification, error)
	VerifyHeader(ctx context.Context, authHeader string) (domain.Verification, error)
}
