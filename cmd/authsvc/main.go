// Command authsvc runs the token service: registration, login and token
// verification.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/api"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/core/service"
	"github.com/99minutos/trustgate/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/trustgate/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/trustgate/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/trustgate/internal/infrastructure/db/redis"
	infrahttp "github.com/99minutos/trustgate/internal/infrastructure/http"
	"github.com/99minutos/trustgate/internal/infrastructure/http/handlers"
	"github.com/99minutos/trustgate/internal/infrastructure/queue"
	"github.com/99minutos/trustgate/internal/pkg/config"
	"github.com/99minutos/trustgate/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Pretty(), Service: "authsvc"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("authsvc failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pingers := map[string]handlers.Pinger{}
	opts := service.Options{
		TokenTTL:         cfg.Auth.TokenTTL,
		HideUnknownUsers: cfg.Auth.HideUnknownUsers,
		Log:              log,
	}

	// --- Credential store ---
	var (
		users  ports.CredentialStore
		events ports.AuthEventRepository
	)
	switch cfg.Auth.CredentialBackend {
	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		users = mongostore.NewCredentialStore(db)
		events = mongostore.NewEventRepository(db)
		pingers["mongodb"] = mongostore.NewPinger(db)
	case config.BackendPostgres:
		db, err := pgstore.Open(cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := pgstore.Migrate(ctx, db); err != nil {
			return err
		}
		users = pgstore.NewCredentialStore(db)
		events = pgstore.NewEventRepository(db)
		pingers["postgres"] = pgstore.NewPinger(db)
	default:
		users = memory.NewCredentialStore()
	}

	// --- Audit trail ---
	recorder, stopAudit := startAudit(ctx, events, cfg.Auth.AuditWorkers, log)
	defer stopAudit()
	if recorder == nil {
		log.Warn().Str("backend", cfg.Auth.CredentialBackend).Msg("audit trail disabled: credential backend has no event store")
	}
	opts.Events = recorder

	// --- Token store ---
	var tokens ports.TokenStore
	switch cfg.Auth.TokenBackend {
	case config.BackendRedis:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		tokens = redisstore.NewTokenStore(rdb)
		pingers["redis"] = redisstore.NewPinger(rdb)
	default:
		tokens = memory.NewTokenStore()
	}

	codec := service.NewTokenCodec(cfg.Auth.JWTSecret)
	if !codec.Signed() {
		log.Warn().Msg("JWT_SECRET not set, issuing unsigned opaque tokens")
	}
	authService := service.NewAuthService(users, tokens, codec, opts)

	e := api.NewAuthRouter(api.ServerDeps{Log: log, Pingers: pingers}, authService)
	return infrahttp.Run(ctx, e, ":"+cfg.Port, log)
}

// startAudit runs a dispatcher persisting to repo. It returns a nil recorder
// when there is no repository. stop cancels the workers and waits for them.
func startAudit(ctx context.Context, repo ports.AuthEventRepository, workers int, log zerolog.Logger) (ports.AuthEventRecorder, func()) {
	if repo == nil {
		return nil, func() {}
	}
	dispatcher := queue.NewDispatcher(workers, repo, log)
	auditCtx, cancel := context.WithCancel(ctx)
	dispatcher.Start(auditCtx)
	return dispatcher, func() {
		cancel()
		dispatcher.Wait()
	}
}
