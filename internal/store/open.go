package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sudo-init-do/brandwacht/internal/config"
	"github.com/sudo-init-do/brandwacht/internal/db"
)

// Open connects the store selected by cfg.StoreDriver and brings its schema
// up to date. The returned func releases the connection.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return NewPostgres(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
