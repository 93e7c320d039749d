package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

// EventRepository implements ports.AuthEventRepository on the auth_events table.
type EventRepository struct {
	db *sql.DB
}

var _ ports.AuthEventRepository = (*EventRepository)(nil)

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertEvent appends an entry to the audit trail. Empty optional fields are
// stored as NULL.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	_, err := r.db.ExecContext(ctx,
		`insert into auth_events(id, kind, username, user_id, request_id, reason, occurred_at) values ($1, $2, $3, $4, $5, $6, $7)`,
		ulid.Make().String(), string(event.Kind), event.Username,
		nullable(event.UserID), nullable(event.RequestID), nullable(event.Reason),
		event.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
