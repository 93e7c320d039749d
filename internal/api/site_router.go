package api

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/api/handler"
	"github.com/99minutos/trustgate/internal/api/middleware"
	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/resilience"
)

// NewSiteRouter builds a downstream service behind the edge. Identity comes
// from the trust filter; flow rules apply per route.
func NewSiteRouter(deps ServerDeps, trust middleware.TrustConfig, policy *resilience.Policy, engine ports.SiteGenerator) *echo.Echo {
	e := deps.newServer("sitesvc")
	e.Use(middleware.Trust(trust))
	e.Use(middleware.FlowLimit(policy))

	principalHandler := handler.NewPrincipalHandler()
	generateHandler := handler.NewGenerateHandler(engine)

	v1 := e.Group("/api/v1")
	v1.GET("/me", principalHandler.Me, middleware.RequireAuthenticated())
	v1.GET("/admin/ping", principalHandler.AdminPing, middleware.RequireRole(domain.RoleAdmin))
	v1.POST("/generate/preview", generateHandler.Preview, middleware.InternalOnly())

	return e
}
