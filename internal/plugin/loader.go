package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourorg/payment-gateways/internal/settings"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

// Loader builds gateway plugins from a configuration store.
type Loader struct {
	store settings.Store
	opts  Options
}

// NewLoader creates a Loader applying opts to every plugin it builds.
func NewLoader(store settings.Store, opts Options) *Loader {
	return &Loader{store: store, opts: opts}
}

// Load binds def to its stored configuration. A plugin seen for the first time
// is stored with its schema defaults and starts inactive.
func (l *Loader) Load(ctx context.Context, def Definition) (*GatewayPlugin, error) {
	stored, err := l.store.Load(ctx, def.ID)
	switch {
	case errors.Is(err, settings.ErrNotFound):
		stored = settings.Configuration{Active: false, Values: def.Schema.Defaults()}
		if err := l.store.Save(ctx, def.ID, stored); err != nil {
			return nil, fmt.Errorf("plugin: seed %s configuration: %w", def.ID, err)
		}
		logger.Info("stored default plugin configuration", map[string]interface{}{"plugin": def.ID})
	case err != nil:
		return nil, fmt.Errorf("plugin: load %s configuration: %w", def.ID, err)
	}

	p, err := New(def, stored, l.opts)
	if err != nil {
		return nil, fmt.Errorf("plugin: bind %s: %w", def.ID, err)
	}
	return p, nil
}

// LoadAll loads defs in order and stops at the first failure.
func (l *Loader) LoadAll(ctx context.Context, defs ...Definition) ([]*GatewayPlugin, error) {
	out := make([]*GatewayPlugin, 0, len(defs))
	for _, def := range defs {
		p, err := l.Load(ctx, def)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
