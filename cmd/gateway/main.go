// Command gateway runs the edge: it authenticates requests against the
// token service and proxies them to the upstream services.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/api"
	"github.com/99minutos/trustgate/internal/api/middleware"
	"github.com/99minutos/trustgate/internal/infrastructure/client"
	infrahttp "github.com/99minutos/trustgate/internal/infrastructure/http"
	"github.com/99minutos/trustgate/internal/pkg/config"
	"github.com/99minutos/trustgate/internal/resilience"
	"github.com/99minutos/trustgate/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Pretty(), Service: "gateway"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("gateway failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rules, err := cfg.ResilienceRules()
	if err != nil {
		return err
	}
	policy, err := resilience.NewPolicy(rules, resilience.WithLogger(log))
	if err != nil {
		return err
	}
	routes, err := cfg.GatewayRoutes()
	if err != nil {
		return err
	}

	verifier := client.NewGuardedVerifier(client.NewHTTPVerifier(cfg.Edge.VerifyURL, nil), policy, cfg.Edge.VerifyTimeout)

	e, err := api.NewGatewayRouter(api.ServerDeps{Log: log}, middleware.EdgeConfig{
		Exempt:            middleware.NewExemptionMatcher(cfg.Edge.ExemptPaths),
		ProtectedPrefixes: cfg.Edge.ProtectedPrefixes,
		InternalOnly:      cfg.Edge.InternalOnly,
		InternalPrefixes:  cfg.Edge.InternalPrefixes,
		Verifier:          verifier,
		Timeout:           cfg.Edge.VerifyTimeout,
		Log:               log,
	}, routes)
	if err != nil {
		return err
	}

	for _, r := range routes {
		log.Info().Str("prefix", r.Prefix).Str("target", r.Target).Msg("gateway route")
	}
	return infrahttp.Run(ctx, e, ":"+cfg.Port, log)
}
