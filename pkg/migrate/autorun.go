package migrate

import (
	"context"
	"fmt"

	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date at boot. SQLite databases are
// always migrated; Postgres only in dev with PERFUMERY_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	dialect := client.Dialect()
	if dialect != db.DialectSQLite && !(cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	pool, err := client.SQL()
	if err != nil {
		return err
	}
	runner, err := NewEmbedded(pool, dialect)
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"dialect": dialect, "applied": len(applied)})
	for _, m := range applied {
		logg.Debug(logg.WithFields(ctx, map[string]any{"version": m.Version, "file": m.File}), "migration applied")
	}
	logg.Info(ctx, "schema up to date")
	return nil
}
