// ABOUTME: Backend selection for the credential store from configuration
// ABOUTME: Wraps the chosen backend in the configured key namespace

package store

import (
	"context"
	"fmt"

	"github.com/2389/press-gateway/internal/config"
)

// Open creates the store named by cfg.Driver and applies cfg.Namespace.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case "memory":
		s = NewMemoryStore()
	case DriverModernc, DriverCGO:
		s, err = NewSQLiteStore(cfg.Path, cfg.Driver)
	case "postgres":
		s, err = NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return Namespaced(s, cfg.Namespace), nil
}
