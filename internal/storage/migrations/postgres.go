package migrations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-winrate/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order,
// each in its own transaction. Migrations are idempotent, so the whole set
// runs on every start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *zap.Logger) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.name, err)
		}
		logger.Debug("applied migration", zap.String("database", "postgres"), zap.String("file", m.name))
	}

	return nil
}
