// Package client holds the outbound HTTP clients services use to reach each
// other: token verification and site rendering.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/resilience"
	"github.com/99minutos/trustgate/pkg/logger"
)

const maxVerifyBody = 64 << 10

// HTTPVerifier calls the token service's verification endpoint.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

var _ ports.Verifier = (*HTTPVerifier)(nil)

// NewHTTPVerifier targets url, e.g. http://authsvc:8081/api/v1/auth/verify.
// Deadlines come from the caller's context; a nil client uses a default one.
func NewHTTPVerifier(url string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPVerifier{url: url, client: client}
}

// Verify posts authHeader and decodes the answer. 200 and 400 carry a
// verification result; every other status is an error.
func (v *HTTPVerifier) Verify(ctx context.Context, authHeader string) (domain.Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, nil)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set(domain.HeaderAuthorization, authHeader)
	req.Header.Set("Content-Type", "application/json")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set(domain.HeaderRequestID, id)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxVerifyBody))
		return domain.Verification{}, fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}

	var out domain.Verification
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxVerifyBody)).Decode(&out); err != nil {
		return domain.Verification{}, fmt.Errorf("verify: decode response: %w", err)
	}
	return out, nil
}

// GuardedVerifier runs a Verifier under the auth-service resilience rules.
// Failures, open circuits and rate limiting all yield the fallback
// {valid:false, message:"service unavailable"} together with a
// *resilience.DegradedError.
type GuardedVerifier struct {
	next    ports.Verifier
	wrapper *resilience.Wrapper[domain.Verification]
}

var _ ports.Verifier = (*GuardedVerifier)(nil)

func NewGuardedVerifier(next ports.Verifier, policy *resilience.Policy, timeout time.Duration) *GuardedVerifier {
	return &GuardedVerifier{
		next:    next,
		wrapper: resilience.NewWrapper(resilience.ResourceAuthService, policy, timeout, verificationFallback),
	}
}

func (g *GuardedVerifier) Verify(ctx context.Context, authHeader string) (domain.Verification, error) {
	return g.wrapper.Do(ctx, func(ctx context.Context) (domain.Verification, error) {
		return g.next.Verify(ctx, authHeader)
	})
}

func verificationFallback(ctx context.Context, cause error) domain.Verification {
	logger.FromContext(ctx, zerolog.Nop()).Warn().Err(cause).Msg("token verification degraded")
	return domain.Verification{Valid: false, Message: domain.MsgServiceUnavailable}
}
