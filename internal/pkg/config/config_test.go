package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/trustgate/internal/resilience"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.Port != "8080" || cfg.LogLevel != "info" {
		t.Errorf("unexpected http defaults: %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 8*time.Hour {
		t.Errorf("expected 8h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.CredentialBackend != BackendMemory || cfg.Auth.TokenBackend != BackendMemory {
		t.Errorf("expected memory backends, got %s/%s", cfg.Auth.CredentialBackend, cfg.Auth.TokenBackend)
	}
	if !cfg.Edge.InternalOnly || cfg.Edge.VerifyTimeout != 3*time.Second {
		t.Errorf("unexpected edge defaults: %+v", cfg.Edge)
	}
	if len(cfg.Edge.ExemptPaths) != len(DefaultExemptPaths) {
		t.Errorf("expected default exemptions, got %v", cfg.Edge.ExemptPaths)
	}
	if len(cfg.Edge.ProtectedPrefixes) != 1 || cfg.Edge.ProtectedPrefixes[0] != "/api/" {
		t.Errorf("unexpected protected prefixes %v", cfg.Edge.ProtectedPrefixes)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"TOKEN_TTL":          "30m",
		"CREDENTIAL_BACKEND": "postgres",
		"TOKEN_BACKEND":      "redis",
		"AUTH_EXEMPT_PATHS":  "/public/**,/status",
		"GATEWAY_ROUTES":     "/api/v1/auth/=http://authsvc:8081, /api/=http://sitesvc:8082",
	})
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if cfg.Auth.TokenTTL != 30*time.Minute {
		t.Errorf("expected 30m, got %s", cfg.Auth.TokenTTL)
	}
	if len(cfg.Edge.ExemptPaths) != 2 || cfg.Edge.ExemptPaths[1] != "/status" {
		t.Errorf("unexpected exemptions %v", cfg.Edge.ExemptPaths)
	}

	routes, err := cfg.GatewayRoutes()
	if err != nil {
		t.Fatalf("GatewayRoutes: %v", err)
	}
	want := []Route{
		{Prefix: "/api/v1/auth/", Target: "http://authsvc:8081"},
		{Prefix: "/api/", Target: "http://sitesvc:8082"},
	}
	if len(routes) != len(want) {
		t.Fatalf("expected %d routes, got %v", len(want), routes)
	}
	for i := range want {
		if routes[i] != want[i] {
			t.Errorf("route %d: expected %+v, got %+v", i, want[i], routes[i])
		}
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown credential backend": {"CREDENTIAL_BACKEND": "sqlite"},
		"unknown token backend":      {"TOKEN_BACKEND": "mongo"},
		"malformed route":            {"GATEWAY_ROUTES": "/api/"},
		"malformed duration":         {"TOKEN_TTL": "forever"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := load(t, env); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestResilienceRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := "degrade:\n  - resource: auth-service\n    threshold: 0.5\n    windowSeconds: 10\n    minSamples: 2\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	cfg, err := load(t, map[string]string{
		"RESILIENCE_RULES_FILE":    path,
		"RESILIENCE_DEGRADE_RULES": "engine-service|0.9|5|1",
		"RESILIENCE_FLOW_RULES":    "GET:/api/v1/me|5",
	})
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}

	rules, err := cfg.ResilienceRules()
	if err != nil {
		t.Fatalf("ResilienceRules: %v", err)
	}

	byResource := map[string]resilience.Rule{}
	for _, r := range rules.Degrade {
		byResource[r.Resource] = r
	}
	if r := byResource[resilience.ResourceAuthService]; r.Threshold != 0.5 || r.MinSamples != 2 {
		t.Errorf("file rule not applied: %+v", r)
	}
	if r := byResource[resilience.ResourceEngineService]; r.Threshold != 0.9 || r.WindowSeconds != 5 {
		t.Errorf("inline rule not applied: %+v", r)
	}

	foundFlow := false
	for _, r := range rules.Flow {
		if r.Resource == "GET:/api/v1/me" && r.Threshold == 5 {
			foundFlow = true
		}
	}
	if !foundFlow {
		t.Errorf("inline flow rule missing: %+v", rules.Flow)
	}
}

func TestResilienceRules_InvalidEntry(t *testing.T) {
	cfg, err := load(t, map[string]string{"RESILIENCE_DEGRADE_RULES": "auth-service|2"})
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if _, err := cfg.ResilienceRules(); err == nil {
		t.Fatal("expected threshold validation error")
	}
}
