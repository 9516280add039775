package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/campus/internal/platform/db"
	"github.com/odyssey-erp/campus/internal/store"
	"github.com/odyssey-erp/campus/internal/store/migrations"
	"github.com/odyssey-erp/campus/internal/store/postgres"
	"github.com/odyssey-erp/campus/internal/store/sqlite"
)

// OpenStore connects the configured backend and applies pending migrations.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("store ready", slog.String("driver", DriverSQLite), slog.String("path", cfg.SQLitePath))
		return st, nil
	case DriverPostgres:
		if err := migrations.UpPostgres(cfg.PGDSN); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnLifetime: time.Hour})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Info("store ready", slog.String("driver", DriverPostgres), slog.Int("max_conns", int(cfg.PGMaxConns)))
		return postgres.New(pool), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
