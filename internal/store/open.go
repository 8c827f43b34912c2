package store

import (
	"context"
	"fmt"

	"github.com/yolodolo42/sitepilot/internal/config"
)

// Open constructs the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Repository, error) {
	var (
		repo Repository
		err  error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverSQLite:
		repo, err = NewSQLite(ctx, cfg.DSN)
	case config.DriverPostgres:
		repo, err = NewPostgres(ctx, cfg.DSN)
	case config.DriverMongo:
		repo, err = NewMongo(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return repo, nil
}
