// Command sitesvc runs a downstream service behind the gateway. It trusts the
// identity headers set by the edge and falls back to verifying bearer tokens
// itself.
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
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Pretty(), Service: "sitesvc"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("sitesvc failed")
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

	verifier := client.NewGuardedVerifier(client.NewHTTPVerifier(cfg.Edge.VerifyURL, nil), policy, cfg.Edge.VerifyTimeout)
	engine := client.NewEngineClient(cfg.Engine.URL, nil, policy, cfg.Engine.Timeout)

	e := api.NewSiteRouter(api.ServerDeps{Log: log},
		middleware.TrustConfig{Verifier: verifier, Log: log}, policy, engine)
	return infrahttp.Run(ctx, e, ":"+cfg.Port, log)
}
