package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
	"github.com/99minutos/trustgate/internal/resilience"
	"github.com/99minutos/trustgate/pkg/logger"
)

// PlaceholderHTML is served in place of a rendered site while the engine is
// unavailable. It is an HTML comment so it can never pass for real content.
const PlaceholderHTML = "<!-- Service Unavailable: The rendering engine is currently down. " +
	"Please try again later. If the problem persists, contact support. -->"

const maxEngineBody = 8 << 20

var errEngineBodyTooLarge = errors.New("engine: response exceeds size limit")

// EngineClient calls the rendering engine's internal generate endpoint
// under the engine-service resilience rules.
type EngineClient struct {
	url     string
	client  *http.Client
	wrapper *resilience.Wrapper[string]
}

var _ ports.SiteGenerator = (*EngineClient)(nil)

// NewEngineClient targets baseURL, e.g. http://engine:8083.
func NewEngineClient(baseURL string, client *http.Client, policy *resilience.Policy, timeout time.Duration) *EngineClient {
	if client == nil {
		client = &http.Client{}
	}
	return &EngineClient{
		url:    strings.TrimRight(baseURL, "/") + "/api/v1/generate",
		client: client,
		wrapper: resilience.NewWrapper(resilience.ResourceEngineService, policy, timeout,
			func(context.Context, error) string { return PlaceholderHTML }),
	}
}

// Generate renders config. On failure it returns PlaceholderHTML and a
// *resilience.DegradedError.
func (e *EngineClient) Generate(ctx context.Context, config json.RawMessage) (string, error) {
	return e.wrapper.Do(ctx, func(ctx context.Context) (string, error) {
		return e.call(ctx, config)
	})
}

func (e *EngineClient) call(ctx context.Context, config json.RawMessage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(config))
	if err != nil {
		return "", fmt.Errorf("engine: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(domain.HeaderInternalCall, "true")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set(domain.HeaderRequestID, id)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("engine: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEngineBody+1))
	if err != nil {
		return "", fmt.Errorf("engine: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("engine: unexpected status %d", resp.StatusCode)
	}
	if len(body) > maxEngineBody {
		return "", errEngineBodyTooLarge
	}
	return string(body), nil
}
