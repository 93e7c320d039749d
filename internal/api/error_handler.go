package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/pkg/logger"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Success   bool        `json:"success"`
	Code      domain.Code `json:"code"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders echo.HTTPErrors (middleware rejections, binding failures,
//     router 404/405) with a code derived from their status.
//   - Maps known domain errors to their HTTP status and machine code.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, msg := resolveError(err, log, c)
		resp := errorResponse{
			Success:   false,
			Code:      code,
			Message:   msg,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: requestID(c),
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, domain.Code, string) {
	// HTTPErrors first: their Internal cause must not override the status
	// chosen by the middleware that raised them.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, codeForStatus(he.Code), fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.CodeInvalidCredentials, "Invalid username or password"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, domain.CodeUserNotFound, "User not found"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, domain.CodeUsernameTaken, "Username already exists"
	case errors.Is(err, domain.ErrMalformedToken):
		return http.StatusBadRequest, domain.CodeMalformedToken, domain.MsgTokenFormat
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, domain.CodeInvalidRequest, "Invalid request"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, domain.CodeUnauthorized, "Authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.CodeForbidden, "Access forbidden"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, domain.CodeRateLimited, "Too many requests"
	case errors.Is(err, domain.ErrServiceUnavailable):
		logger.FromContext(c.Request().Context(), log).Warn().
			Err(err).
			Str("path", c.Path()).
			Msg("dependency unavailable")
		return http.StatusServiceUnavailable, domain.CodeServiceUnavailable, "Service temporarily unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	logger.FromContext(c.Request().Context(), log).Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, domain.CodeInternal, "An unexpected error occurred"
}

func codeForStatus(status int) domain.Code {
	switch {
	case status == http.StatusUnauthorized:
		return domain.CodeUnauthorized
	case status == http.StatusForbidden:
		return domain.CodeForbidden
	case status == http.StatusNotFound:
		return domain.CodeNotFound
	case status == http.StatusTooManyRequests:
		return domain.CodeRateLimited
	case status == http.StatusServiceUnavailable:
		return domain.CodeServiceUnavailable
	case status >= http.StatusInternalServerError:
		return domain.CodeInternal
	default:
		return domain.CodeInvalidRequest
	}
}

func requestID(c echo.Context) string {
	if id := logger.RequestID(c.Request().Context()); id != "" {
		return id
	}
	if id := c.Response().Header().Get(domain.HeaderRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(domain.HeaderRequestID)
}
