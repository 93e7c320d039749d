package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/pkg/metrics"
	"github.com/99minutos/trustgate/pkg/logger"
)

// TrustConfig configures the downstream trust filter.
type TrustConfig struct {
	// Verifier is consulted only when the edge headers are absent. It should
	// be guarded by the resilience wrapper.
	Verifier ports.Verifier
	Log      zerolog.Logger
}

// Trust establishes the caller's identity inside an internal service.
//
// A complete trust header bundle is accepted as is. Otherwise a bearer token
// is verified directly. The filter never rejects: failed or impossible
// verification leaves the request anonymous and route guards decide.
func Trust(cfg TrustConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			log := logger.FromContext(req.Context(), cfg.Log)

			id := strings.TrimSpace(req.Header.Get(domain.HeaderUserID))
			name := strings.TrimSpace(req.Header.Get(domain.HeaderUserName))
			role := strings.TrimSpace(req.Header.Get(domain.HeaderUserRole))
			if id != "" && name != "" && role != "" {
				SetPrincipal(c, domain.NewPrincipal(id, name, role))
				metrics.TrustPathTotal.WithLabelValues("fast").Inc()
				return next(c)
			}

			ClearPrincipal(c)

			authHeader := req.Header.Get(domain.HeaderAuthorization)
			if _, ok := domain.BearerToken(authHeader); !ok || cfg.Verifier == nil {
				metrics.TrustPathTotal.WithLabelValues("anonymous").Inc()
				return next(c)
			}

			v, err := cfg.Verifier.Verify(req.Context(), authHeader)
			if err != nil || !v.Valid {
				metrics.TrustPathTotal.WithLabelValues("slow_rejected").Inc()
				ev := log.Debug()
				if err != nil {
					ev = log.Warn().Err(err)
				}
				ev.Str("reason", v.Message).Msg("trust: proceeding unauthenticated")
				return next(c)
			}

			principalID := v.UserID
			if principalID == "" {
				principalID = v.Username
			}
			SetPrincipal(c, domain.NewPrincipal(principalID, v.Username, v.Role))
			metrics.TrustPathTotal.WithLabelValues("slow").Inc()
			log.Debug().Str("user_id", principalID).Msg("trust: token verified directly")
			return next(c)
		}
	}
}
