package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nateberkopec/busysim/internal/assets"
)

// ErrInvalidCatalog marks a config.json that decodes but cannot be used.
var ErrInvalidCatalog = errors.New("invalid app catalog")

// App is one fake messaging application as listed in config.json. Fields
// beyond these are tolerated and dropped.
type App struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Sound string `json:"sound"`
}

// Parse decodes the flat JSON list of apps, keeping its order.
func Parse(r io.Reader) ([]App, error) {
	var apps []App
	if err := json.NewDecoder(r).Decode(&apps); err != nil {
		return nil, fmt.Errorf("failed to decode app catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(apps))
	for i, app := range apps {
		if app.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := seen[app.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, app.ID)
		}
		seen[app.ID] = struct{}{}
	}
	if apps == nil {
		apps = []App{}
	}
	return apps, nil
}

// Load fetches config.json under the resolver's prefix and parses it.
func Load(ctx context.Context, store assets.Store, resolver assets.Resolver) ([]App, error) {
	rc, err := store.Open(ctx, resolver.Config())
	if err != nil {
		return nil, fmt.Errorf("failed to open app catalog: %w", err)
	}
	defer rc.Close()
	return Parse(rc)
}
