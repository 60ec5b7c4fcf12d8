package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"clipforge/internal/config"
	"clipforge/internal/ports"
)

// Open returns the job store selected by cfg.Driver and a func releasing it.
func Open(ctx context.Context, cfg config.Store) (ports.JobStore, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := NewPGJobRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	case "sqlite":
		repo, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown job store driver: %s", cfg.Driver)
	}
}
