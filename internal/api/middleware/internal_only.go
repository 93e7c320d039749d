package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// InternalOnly rejects requests that did not come through the edge's
// internal zone, i.e. lack "X-Internal-Call: true", with 403.
func InternalOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.EqualFold(c.Request().Header.Get(domain.HeaderInternalCall), "true") {
				return echo.NewHTTPError(http.StatusForbidden, "internal access only")
			}
			return next(c)
		}
	}
}
