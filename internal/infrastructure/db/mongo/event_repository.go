package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

// EventRepository implements ports.AuthEventRepository using MongoDB.
type EventRepository struct {
	coll *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) ports.AuthEventRepository {
	return &EventRepository{coll: db.Collection(eventsCollection)}
}

// InsertEvent appends an entry to the auth_events audit collection.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	doc := bson.M{
		"kind":         string(event.Kind),
		"username":     event.Username,
		"timestamp":    event.Timestamp.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
	}
	if event.RequestID != "" {
		doc["request_id"] = event.RequestID
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
