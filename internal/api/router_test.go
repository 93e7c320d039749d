package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/api/middleware"
	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/service"
	"github.com/99minutos/trustgate/internal/infrastructure/client"
	"github.com/99minutos/trustgate/internal/infrastructure/db/memory"
	"github.com/99minutos/trustgate/internal/pkg/config"
	"github.com/99minutos/trustgate/internal/resilience"
)

func testDeps() ServerDeps {
	reg := prometheus.NewRegistry()
	return ServerDeps{Log: zerolog.Nop(), Registerer: reg, Gatherer: reg}
}

func newAuthService() *service.AuthService {
	return service.NewAuthService(memory.NewCredentialStore(), memory.NewTokenStore(), service.NewTokenCodec(""), service.Options{})
}

func newPolicy(t *testing.T) *resilience.Policy {
	t.Helper()
	p, err := resilience.NewPolicy(resilience.DefaultRules())
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

type stubEngine struct {
	html string
	err  error
}

func (s stubEngine) Generate(context.Context, json.RawMessage) (string, error) {
	return s.html, s.err
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func TestAuthRouter_RegisterLoginVerify(t *testing.T) {
	e := NewAuthRouter(testDeps(), newAuthService())
	creds := `{"username":"alice","password":"s3cret"}`

	rec := do(t, e, http.MethodPost, "/api/v1/auth/register", creds, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(domain.HeaderRequestID) == "" {
		t.Error("expected a correlation id on the response")
	}

	rec = do(t, e, http.MethodPost, "/api/v1/auth/login", creds, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)

	rec = do(t, e, http.MethodPost, "/api/v1/auth/verify", "", map[string]string{
		domain.HeaderAuthorization: "Bearer " + login.Token,
	})
	var v domain.Verification
	decodeBody(t, rec, &v)
	if rec.Code != http.StatusOK || !v.Valid || v.Username != "alice" || v.Role != "ROLE_USER" {
		t.Fatalf("verify: got %d %+v", rec.Code, v)
	}

	rec = do(t, e, http.MethodPost, "/api/v1/auth/verify", "", map[string]string{
		domain.HeaderAuthorization: "Basic abc",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("verify malformed: expected 400, got %d", rec.Code)
	}
}

func TestAuthRouter_ErrorEnvelope(t *testing.T) {
	e := NewAuthRouter(testDeps(), newAuthService())

	rec := do(t, e, http.MethodPost, "/api/v1/auth/login", `{"username":"ghost","password":"x"}`,
		map[string]string{domain.HeaderRequestID: "req-1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Success || body.Code != domain.CodeUserNotFound || body.RequestID != "req-1" {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestAuthRouter_Swagger(t *testing.T) {
	e := NewAuthRouter(testDeps(), newAuthService())

	rec := do(t, e, http.MethodGet, "/swagger/doc.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/v1/auth/verify") {
		t.Error("expected verify endpoint in the API document")
	}
}

func trusted(id, name, role string) map[string]string {
	return map[string]string{
		domain.HeaderUserID:   id,
		domain.HeaderUserName: name,
		domain.HeaderUserRole: role,
	}
}

func TestSiteRouter_Guards(t *testing.T) {
	e := NewSiteRouter(testDeps(), middleware.TrustConfig{Log: zerolog.Nop()}, newPolicy(t), stubEngine{html: "<h1>ok</h1>"})

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		headers map[string]string
		want    int
	}{
		{"me anonymous", http.MethodGet, "/api/v1/me", "", nil, http.StatusUnauthorized},
		{"me trusted", http.MethodGet, "/api/v1/me", "", trusted("u1", "alice", "USER"), http.StatusOK},
		{"admin as user", http.MethodGet, "/api/v1/admin/ping", "", trusted("u1", "alice", "USER"), http.StatusForbidden},
		{"admin as admin", http.MethodGet, "/api/v1/admin/ping", "", trusted("u2", "root", "ROLE_ADMIN"), http.StatusOK},
		{"preview external", http.MethodPost, "/api/v1/generate/preview", `{}`, nil, http.StatusForbidden},
		{"preview internal", http.MethodPost, "/api/v1/generate/preview", `{}`,
			map[string]string{domain.HeaderInternalCall: "true"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, e, tt.method, tt.target, tt.body, tt.headers)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSiteRouter_MeReturnsNormalizedPrincipal(t *testing.T) {
	e := NewSiteRouter(testDeps(), middleware.TrustConfig{Log: zerolog.Nop()}, newPolicy(t), stubEngine{})

	rec := do(t, e, http.MethodGet, "/api/v1/me", "", trusted("u1", "alice", "USER"))
	var p domain.Principal
	decodeBody(t, rec, &p)
	if p != (domain.Principal{ID: "u1", Username: "alice", Role: "ROLE_USER"}) {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestSiteRouter_DegradedEngine(t *testing.T) {
	engine := stubEngine{
		html: client.PlaceholderHTML,
		err:  &resilience.DegradedError{Resource: resilience.ResourceEngineService, Reason: resilience.ReasonOpen, Cause: resilience.ErrCircuitOpen},
	}
	e := NewSiteRouter(testDeps(), middleware.TrustConfig{Log: zerolog.Nop()}, newPolicy(t), engine)

	rec := do(t, e, http.MethodPost, "/api/v1/generate/preview", `{}`, map[string]string{domain.HeaderInternalCall: "true"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Code != domain.CodeServiceUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %s", body.Code)
	}
}

func TestGatewayRouter_InvalidRoute(t *testing.T) {
	edge := middleware.EdgeConfig{Log: zerolog.Nop()}
	if _, err := NewGatewayRouter(testDeps(), edge, []config.Route{{Prefix: "/api/", Target: "not a url"}}); err == nil {
		t.Fatal("expected error for an invalid target")
	}
	if _, err := NewGatewayRouter(testDeps(), edge, []config.Route{{Prefix: "/", Target: "http://x"}}); err == nil {
		t.Fatal("expected error for a root prefix")
	}
}

// stack runs the three services the way they are deployed: the gateway in
// front of the token service and a downstream site service.
type stack struct {
	gateway http.Handler
	auth    *httptest.Server
	site    *httptest.Server
	policy  *resilience.Policy
}

func newStack(t *testing.T) *stack {
	t.Helper()
	policy := newPolicy(t)

	auth := httptest.NewServer(NewAuthRouter(testDeps(), newAuthService()))
	t.Cleanup(auth.Close)

	site := httptest.NewServer(NewSiteRouter(testDeps(), middleware.TrustConfig{Log: zerolog.Nop()}, policy,
		stubEngine{html: "<h1>preview</h1>"}))
	t.Cleanup(site.Close)

	verifier := client.NewGuardedVerifier(client.NewHTTPVerifier(auth.URL+"/api/v1/auth/verify", nil), policy, 2*time.Second)
	gateway, err := NewGatewayRouter(testDeps(), middleware.EdgeConfig{
		Exempt:            middleware.NewExemptionMatcher(config.DefaultExemptPaths),
		ProtectedPrefixes: []string{"/api/"},
		InternalOnly:      true,
		InternalPrefixes:  []string{"/api/v1/generate/"},
		Verifier:          verifier,
		Timeout:           3 * time.Second,
		Log:               zerolog.Nop(),
	}, []config.Route{
		{Prefix: "/api/v1/auth/", Target: auth.URL},
		{Prefix: "/api/", Target: site.URL},
	})
	if err != nil {
		t.Fatalf("NewGatewayRouter: %v", err)
	}
	return &stack{gateway: gateway, auth: auth, site: site, policy: policy}
}

func (s *stack) login(t *testing.T) string {
	t.Helper()
	creds := `{"username":"alice","password":"s3cret"}`
	if rec := do(t, s.gateway, http.MethodPost, "/api/v1/auth/register", creds, nil); rec.Code != http.StatusOK {
		t.Fatalf("register through gateway: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s.gateway, http.MethodPost, "/api/v1/auth/login", creds, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login through gateway: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &out)
	return out.Token
}

func TestStack_AuthenticatedRequestReachesDownstream(t *testing.T) {
	s := newStack(t)
	token := s.login(t)

	rec := do(t, s.gateway, http.MethodGet, "/api/v1/me", "", map[string]string{
		domain.HeaderAuthorization: "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var p domain.Principal
	decodeBody(t, rec, &p)
	if p.Username != "alice" || p.Role != "ROLE_USER" || p.ID == "" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestStack_MissingTokenRejectedAtEdge(t *testing.T) {
	s := newStack(t)

	rec := do(t, s.gateway, http.MethodGet, "/api/v1/me", "", trusted("u-admin", "root", "ROLE_ADMIN"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Message != domain.MsgMissingBearerHeader || body.RequestID == "" {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestStack_InvalidTokenRejectedAtEdge(t *testing.T) {
	s := newStack(t)

	rec := do(t, s.gateway, http.MethodGet, "/api/v1/me", "", map[string]string{
		domain.HeaderAuthorization: "Bearer nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStack_RoleEnforcedDownstream(t *testing.T) {
	s := newStack(t)
	token := s.login(t)

	rec := do(t, s.gateway, http.MethodGet, "/api/v1/admin/ping", "", map[string]string{
		domain.HeaderAuthorization: "Bearer " + token,
		domain.HeaderUserRole:      "ROLE_ADMIN",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("spoofed role must not grant access: got %d", rec.Code)
	}
}

func TestStack_InternalPrefixMarkedByEdge(t *testing.T) {
	s := newStack(t)
	token := s.login(t)

	rec := do(t, s.gateway, http.MethodPost, "/api/v1/generate/preview", `{"title":"x"}`, map[string]string{
		domain.HeaderAuthorization: "Bearer " + token,
	})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "preview") {
		t.Fatalf("expected rendered preview, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStack_TokenServiceDown(t *testing.T) {
	s := newStack(t)
	token := s.login(t)
	s.auth.Close()

	rec := do(t, s.gateway, http.MethodGet, "/api/v1/me", "", map[string]string{
		domain.HeaderAuthorization: "Bearer " + token,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Message != domain.MsgAuthUnavailable {
		t.Fatalf("unexpected message %q", body.Message)
	}
}
