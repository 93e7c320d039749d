package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/resilience"
)

// FlowLimit applies the policy's flow rules before the handler runs. The
// resource name is "METHOD:route", e.g. "GET:/api/v1/templates". Routes
// without a flow rule are not limited.
func FlowLimit(policy *resilience.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			if !policy.Allow(c.Request().Method + ":" + route) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
