package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/core/ports"
)

const maxConfigBytes = 1 << 20

// GenerateHandler forwards preview requests to the rendering engine.
type GenerateHandler struct {
	engine ports.SiteGenerator
}

func NewGenerateHandler(engine ports.SiteGenerator) *GenerateHandler {
	return &GenerateHandler{engine: engine}
}

// Preview renders the posted site configuration. When the engine is degraded
// the placeholder is not served; the caller gets 503 SERVICE_UNAVAILABLE.
//
// @Summary      Preview a generated site
// @Tags         generate
// @Accept       json
// @Produce      html
// @Security     BearerAuth
// @Param        body  body      object  true  "Site configuration"
// @Success      200   {string}  string  "Rendered HTML"
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/v1/generate/preview [post]
func (h *GenerateHandler) Preview(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxConfigBytes))
	if err != nil || !json.Valid(body) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid site configuration")
	}

	html, err := h.engine.Generate(c.Request().Context(), body)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, html)
}
