package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/99minutos/trustgate/internal/core/domain"
)

func TestCredentialStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewCredentialStore(mt.DB)

		created, err := store.Create(context.Background(), &domain.User{
			Username:     "alice",
			PasswordHash: "hash",
			Role:         domain.RoleUser,
			CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if len(created.ID) != 26 || created.Username != "alice" || created.Role != domain.RoleUser {
			t.Fatalf("unexpected user: %+v", created)
		}
	})

	mt.Run("duplicate username", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: trustgate.users index: uniq_username",
		}))
		store := NewCredentialStore(mt.DB)

		_, err := store.Create(context.Background(), &domain.User{Username: "alice"})
		if !errors.Is(err, domain.ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	mt.Run("find by username", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + usersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "01HZX3J5Q6V8K9M0N1P2R3S4T5"},
			{Key: "username", Value: "alice"},
			{Key: "password_hash", Value: "hash"},
			{Key: "role", Value: "ADMIN"},
		}))
		store := NewCredentialStore(mt.DB)

		u, err := store.FindByUsername(context.Background(), "alice")
		if err != nil {
			t.Fatalf("FindByUsername: %v", err)
		}
		if u.ID != "01HZX3J5Q6V8K9M0N1P2R3S4T5" || u.Role != "ADMIN" || u.PasswordHash != "hash" {
			t.Fatalf("unexpected user: %+v", u)
		}
	})

	mt.Run("not found", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + usersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		store := NewCredentialStore(mt.DB)

		if _, err := store.FindByID(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestEventRepository_InsertEvent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewEventRepository(mt.DB)

		err := repo.InsertEvent(context.Background(), &domain.AuthEvent{
			Kind:      domain.EventLoginFailed,
			Username:  "alice",
			RequestID: "req-1",
			Reason:    "bad password",
			Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	})
}
