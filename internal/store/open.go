package store

import (
	"context"
	"fmt"

	"github.com/printqa/backend/internal/db"
	"github.com/printqa/backend/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open returns the store named by kind ("postgres" or "memory") and a
// function that releases it. For postgres, pending migrations are applied
// first when migrate is set.
func Open(ctx context.Context, kind, databaseURL string, migrate bool) (ResultStore, func(), error) {
	switch kind {
	case "memory":
		logger.Warn("[Store] Using in-memory result store, results are lost on restart")
		return NewMemoryStore(), func() {}, nil
	case "postgres", "":
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}

	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	if migrate {
		if err := db.Migrate(databaseURL); err != nil {
			return nil, nil, err
		}
		logger.Info("[Store] Database migrations applied")
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	return NewPostgresStore(conn), conn.Close, nil
}
