package ports

import (
	"context"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// AuthEventRepository persists entries of the authentication audit trail.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuthEventRecorder accepts audit events without blocking the caller.
type AuthEventRecorder interface {
	Record(event domain.AuthEvent)
}
