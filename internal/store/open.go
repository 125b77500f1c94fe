package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/pairs-data/internal/config"
	"github.com/rickgao/pairs-data/internal/database"
)

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil

	case "sqlite", "":
		db, err := database.OpenSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLiteStore(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("using sqlite store", "path", cfg.SQLite.Path)
		return s, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s, err := NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("using postgres store", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)
		return s, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
