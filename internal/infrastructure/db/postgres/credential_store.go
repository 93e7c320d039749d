package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

const uniqueViolation = "23505"

// CredentialStore implements ports.CredentialStore on the users table.
type CredentialStore struct {
	db *sql.DB
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.ID = ulid.Make().String()
	created.CreatedAt = user.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`insert into users(id, username, password_hash, role, created_at) values ($1, $2, $3, $4, $5)`,
		created.ID, created.Username, created.PasswordHash, created.Role, created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, `select id, username, password_hash, role, created_at from users where username = $1`, username)
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, `select id, username, password_hash, role, created_at from users where id = $1`, id)
}

func (s *CredentialStore) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
