// Package http builds the echo server shared by every trustgate process:
// panic recovery, access logging, Prometheus metrics and health probes.
// Routers in internal/api add their own middleware and routes on top.
package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/infrastructure/http/handlers"
	"github.com/99minutos/trustgate/pkg/logger"
)

// ServerConfig describes the base server.
type ServerConfig struct {
	// Service names the process; it becomes the metrics subsystem.
	Service string
	Log     zerolog.Logger
	// ErrorHandler renders every error returned by handlers and middleware.
	ErrorHandler echo.HTTPErrorHandler
	Validator    echo.Validator
	// Pingers are checked by the readiness probe, keyed by dependency name.
	Pingers map[string]handlers.Pinger
	// Registerer and Gatherer default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewServer builds the Echo instance with the shared middleware and the
// /metrics, /health and /health/ready routes registered.
func NewServer(cfg ServerConfig) *echo.Echo {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.ErrorHandler != nil {
		e.HTTPErrorHandler = cfg.ErrorHandler
	}
	if cfg.Validator != nil {
		e.Validator = cfg.Validator
	}

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(accessLog(cfg.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  cfg.Service,
		Registerer: cfg.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: cfg.Gatherer,
	}))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(cfg.Pingers)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	return e
}

// accessLog writes one zerolog line per request through the request-scoped
// logger, so entries carry the request id once one has been assigned.
func accessLog(base zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l := logger.FromContext(c.Request().Context(), base)
			ev := l.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = l.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
