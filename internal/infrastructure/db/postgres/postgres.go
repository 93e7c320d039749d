// Package postgres implements the credential store and the auth audit trail
// on PostgreSQL through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open returns a pooled handle for dsn. The connection is verified lazily.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

var schema = []string{
	`create table if not exists users (
	id            text primary key,
	username      text not null,
	password_hash text not null,
	role          text not null,
	created_at    timestamptz not null default now(),
	constraint users_username_key unique (username)
)`,
	`create table if not exists auth_events (
	id           text primary key,
	kind         text not null,
	username     text not null,
	user_id      text,
	request_id   text,
	reason       text,
	occurred_at  timestamptz not null,
	processed_at timestamptz not null default now()
)`,
	`create index if not exists auth_events_username_idx on auth_events (username, occurred_at)`,
}

// Migrate creates the users and auth_events tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// Pinger adapts a handle to the readiness probe.
type Pinger struct {
	db *sql.DB
}

func NewPinger(db *sql.DB) Pinger { return Pinger{db: db} }

func (p Pinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
