package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/api/middleware"
)

// PrincipalHandler exposes the identity established by the trust filter.
type PrincipalHandler struct{}

func NewPrincipalHandler() *PrincipalHandler {
	return &PrincipalHandler{}
}

// Me returns the authenticated principal.
//
// @Summary      Current principal
// @Tags         identity
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Principal
// @Failure      401  {object}  errorResponse
// @Router       /api/v1/me [get]
func (h *PrincipalHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, p)
}

// AdminPing is an admin-only liveness check.
//
// @Summary      Admin ping
// @Tags         identity
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  errorResponse
// @Router       /api/v1/admin/ping [get]
func (h *PrincipalHandler) AdminPing(c echo.Context) error {
	p, _ := middleware.PrincipalFrom(c)
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"user":   p.Username,
	})
}
