package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/resilience"
)

func renderError(t *testing.T, err error) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set(domain.HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if jerr := json.Unmarshal(rec.Body.Bytes(), &body); jerr != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), jerr)
	}
	return rec, body
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   domain.Code
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, domain.CodeUserNotFound},
		{"malformed token", domain.ErrMalformedToken, http.StatusBadRequest, domain.CodeMalformedToken},
		{"invalid input", fmt.Errorf("register: %w", domain.ErrInvalidInput), http.StatusBadRequest, domain.CodeInvalidRequest},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, domain.CodeForbidden},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, domain.CodeRateLimited},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, domain.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := renderError(t, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if body.Success || body.Code != tt.code {
				t.Errorf("body = %+v, want code %s", body, tt.code)
			}
			if body.Timestamp == "" || body.RequestID != "req-42" {
				t.Errorf("missing timestamp or request id: %+v", body)
			}
		})
	}
}

func TestHTTPErrorHandler_HidesInternalDetail(t *testing.T) {
	_, body := renderError(t, errors.New("pq: password authentication failed for user root"))
	if body.Message != "An unexpected error occurred" {
		t.Errorf("internal detail leaked: %q", body.Message)
	}
}

func TestHTTPErrorHandler_Degraded(t *testing.T) {
	err := &resilience.DegradedError{Resource: "engine-service", Reason: resilience.ReasonOpen, Cause: resilience.ErrCircuitOpen}
	rec, body := renderError(t, err)
	if rec.Code != http.StatusServiceUnavailable || body.Code != domain.CodeServiceUnavailable {
		t.Fatalf("got %d %+v", rec.Code, body)
	}
}

func TestHTTPErrorHandler_HTTPErrorKeepsStatus(t *testing.T) {
	// An edge rejection caused by an unavailable dependency is still a 401.
	err := echo.NewHTTPError(http.StatusUnauthorized, domain.MsgAuthUnavailable).SetInternal(domain.ErrServiceUnavailable)
	rec, body := renderError(t, err)
	if rec.Code != http.StatusUnauthorized || body.Code != domain.CodeUnauthorized || body.Message != domain.MsgAuthUnavailable {
		t.Fatalf("got %d %+v", rec.Code, body)
	}

	rec, body = renderError(t, echo.ErrNotFound)
	if rec.Code != http.StatusNotFound || body.Code != domain.CodeNotFound {
		t.Fatalf("got %d %+v", rec.Code, body)
	}
}
