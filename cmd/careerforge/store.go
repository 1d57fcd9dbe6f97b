package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/CareerForge/internal/adapter/postgres"
	"github.com/Strob0t/CareerForge/internal/adapter/sqlite"
	"github.com/Strob0t/CareerForge/internal/config"
	"github.com/Strob0t/CareerForge/internal/port/database"
)

// openStore connects the configured database, applies migrations and returns
// the store with its cleanup function.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		slog.Info("sqlite opened", "path", cfg.SQLite.Path)
		return sqlite.NewStore(db), func() { _ = db.Close() }, nil

	default:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("postgres connected")

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		if v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN); err == nil {
			slog.Info("migrations applied", "version", v)
		}
		return postgres.NewStore(pool), pool.Close, nil
	}
}
