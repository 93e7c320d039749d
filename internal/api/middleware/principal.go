package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/core/domain"
)

const principalKey = "principal"

// SetPrincipal marks the request as authenticated as p.
func SetPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// ClearPrincipal drops any authenticated state from the request.
func ClearPrincipal(c echo.Context) {
	c.Set(principalKey, nil)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}
