package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/pkg/metrics"
	"github.com/99minutos/trustgate/pkg/logger"
)

// DefaultVerifyTimeout bounds the edge's verification call when none is configured.
const DefaultVerifyTimeout = 3 * time.Second

// EdgeConfig configures the edge authentication filter.
type EdgeConfig struct {
	// Exempt lists paths that never require a token.
	Exempt *ExemptionMatcher
	// ProtectedPrefixes limits enforcement to paths under these prefixes.
	// Empty means every path is protected.
	ProtectedPrefixes []string
	// InternalOnly enables the X-Internal-Call marker for InternalPrefixes.
	InternalOnly     bool
	InternalPrefixes []string
	Verifier         ports.Verifier
	Timeout          time.Duration
	Log              zerolog.Logger
}

// Edge authenticates requests at the boundary. Register it with e.Pre after
// RequestID so it runs ahead of routing and every route-level middleware.
//
// Trust headers arriving from outside are always stripped. A request that
// needs authentication and carries no bearer token is rejected without a
// verification call. A verified request gets the trust header bundle; any
// other outcome is a 401 and the request never reaches an upstream.
func Edge(cfg EdgeConfig) echo.MiddlewareFunc {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultVerifyTimeout
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			for _, h := range domain.TrustHeaders {
				req.Header.Del(h)
			}

			log := logger.FromContext(req.Context(), cfg.Log)
			urlPath := req.URL.Path

			if !cfg.requiresAuth(req.Method, urlPath) {
				metrics.EdgeDecisionsTotal.WithLabelValues("exempt").Inc()
				log.Debug().Str("path", urlPath).Msg("edge: authentication not required")
				return next(c)
			}

			authHeader := req.Header.Get(domain.HeaderAuthorization)
			if _, ok := domain.BearerToken(authHeader); !ok {
				metrics.EdgeDecisionsTotal.WithLabelValues("missing_credentials").Inc()
				log.Info().Str("path", urlPath).Msg("edge: missing or malformed bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, domain.MsgMissingBearerHeader)
			}

			v, err := cfg.verify(req.Context(), authHeader)
			if err != nil {
				metrics.EdgeDecisionsTotal.WithLabelValues("unavailable").Inc()
				log.Warn().Err(err).Str("path", urlPath).Msg("edge: token verification failed")
				return echo.NewHTTPError(http.StatusUnauthorized, domain.MsgAuthUnavailable).SetInternal(err)
			}
			if !v.Valid {
				msg := v.Message
				if msg == "" {
					msg = domain.MsgTokenInvalid
				}
				metrics.EdgeDecisionsTotal.WithLabelValues("rejected").Inc()
				log.Info().Str("path", urlPath).Str("reason", msg).Msg("edge: token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, msg)
			}

			p := domain.NewPrincipal(v.UserID, v.Username, v.Role)
			req.Header.Set(domain.HeaderUserID, p.ID)
			req.Header.Set(domain.HeaderUserName, p.Username)
			req.Header.Set(domain.HeaderUserRole, p.Role)
			if cfg.InternalOnly && hasAnyPrefix(urlPath, cfg.InternalPrefixes) {
				req.Header.Set(domain.HeaderInternalCall, "true")
			}

			metrics.EdgeDecisionsTotal.WithLabelValues("authenticated").Inc()
			log.Debug().Str("user_id", p.ID).Str("role", p.Role).Msg("edge: request authenticated")
			return next(c)
		}
	}
}

func (cfg EdgeConfig) requiresAuth(method, urlPath string) bool {
	if method == http.MethodOptions {
		return false
	}
	if cfg.Exempt.Match(urlPath) {
		return false
	}
	return len(cfg.ProtectedPrefixes) == 0 || hasAnyPrefix(urlPath, cfg.ProtectedPrefixes)
}

func (cfg EdgeConfig) verify(ctx context.Context, authHeader string) (domain.Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	v, err := cfg.Verifier.Verify(ctx, authHeader)
	metrics.EdgeVerifyDuration.Observe(time.Since(start).Seconds())
	return v, err
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
