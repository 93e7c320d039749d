package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/trustgate/internal/api/docs"
	"github.com/99minutos/trustgate/internal/api/handler"
	"github.com/99minutos/trustgate/internal/api/middleware"
	"github.com/99minutos/trustgate/internal/core/ports"
	infrahttp "github.com/99minutos/trustgate/internal/infrastructure/http"
	"github.com/99minutos/trustgate/internal/infrastructure/http/handlers"
)

// ServerDeps are the pieces every router needs.
type ServerDeps struct {
	Log        zerolog.Logger
	Pingers    map[string]handlers.Pinger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

func (d ServerDeps) newServer(service string) *echo.Echo {
	e := infrahttp.NewServer(infrahttp.ServerConfig{
		Service:      service,
		Log:          d.Log,
		ErrorHandler: NewHTTPErrorHandler(d.Log),
		Validator:    handler.NewValidator(),
		Pingers:      d.Pingers,
		Registerer:   d.Registerer,
		Gatherer:     d.Gatherer,
	})
	e.Pre(middleware.RequestID(d.Log))
	return e
}

// NewAuthRouter builds the token service: register, login, verify and the
// API docs.
func NewAuthRouter(deps ServerDeps, authService ports.AuthService) *echo.Echo {
	e := deps.newServer("authsvc")

	authHandler := handler.NewAuthHandler(authService)

	// --- Auth routes ---
	auth := e.Group("/api/v1/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/verify", authHandler.Verify)

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
