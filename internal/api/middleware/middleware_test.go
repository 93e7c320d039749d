package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/core/domain"
)

// stubVerifier answers verification calls from a function and counts them.
type stubVerifier struct {
	calls atomic.Int32
	fn    func(ctx context.Context, authHeader string) (domain.Verification, error)
}

func (s *stubVerifier) Verify(ctx context.Context, authHeader string) (domain.Verification, error) {
	s.calls.Add(1)
	return s.fn(ctx, authHeader)
}

func validFor(id, username, role string) *stubVerifier {
	return &stubVerifier{fn: func(context.Context, string) (domain.Verification, error) {
		return domain.Verification{Valid: true, Message: domain.MsgTokenValid, UserID: id, Username: username, Role: role}, nil
	}}
}

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }
