package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/99minutos/trustgate/internal/api/middleware"
	"github.com/99minutos/trustgate/internal/pkg/config"
)

// NewGatewayRouter builds the edge: every request gets a correlation id and
// passes the edge filter before being proxied to the upstream owning the
// longest matching prefix.
func NewGatewayRouter(deps ServerDeps, edge middleware.EdgeConfig, routes []config.Route) (*echo.Echo, error) {
	e := deps.newServer("gateway")
	e.Pre(middleware.Edge(edge))

	for _, r := range routes {
		target, err := url.Parse(r.Target)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway route %s: invalid target %q", r.Prefix, r.Target)
		}

		prefix := strings.TrimSuffix(r.Prefix, "/")
		if prefix == "" {
			return nil, fmt.Errorf("gateway route %q: prefix must not be the root", r.Prefix)
		}
		e.Group(prefix, echomw.ProxyWithConfig(echomw.ProxyConfig{
			Balancer: echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{Name: r.Prefix, URL: target}}),
		}))
	}

	return e, nil
}
