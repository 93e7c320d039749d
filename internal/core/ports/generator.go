package ports

import (
	"context"
	"encoding/json"
)

// SiteGenerator renders a site configuration to HTML on the engine service.
type SiteGenerator interface {
	Generate(ctx context.Context, config json.RawMessage) (string, error)
}
