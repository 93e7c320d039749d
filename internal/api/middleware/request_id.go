package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/pkg/logger"
)

// RequestID reuses a non-empty inbound X-Request-Id or mints a UUID. The id
// is written back onto the request so proxies and clients forward it, echoed
// on the response, and attached to a request-scoped logger.
func RequestID(base zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: domain.HeaderRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			req.Header.Set(domain.HeaderRequestID, id)
			c.SetRequest(req.WithContext(logger.WithRequest(req.Context(), base, id)))
		},
	})
}
