package migrate

import (
	"context"
	"fmt"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/config"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/db/models"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
)

// MaybeRunDev prepares the schema for local runs. sqlite databases are
// auto-migrated from the models; Postgres runs goose up only in dev with the
// auto-migrate flag set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.Driver == db.DriverSQLite {
		ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)
		if err := AutoMigrate(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "migrate.sqlite_schema_ready")
		return nil
	}

	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	if err := Run(ctx, sqlDB, DefaultDir, "up", logg); err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}
	logg.Info(ctx, "migrate.dev_autorun_done")
	return nil
}

// AutoMigrate creates or updates every table from the gorm models.
func AutoMigrate(ctx context.Context, client *db.Client) error {
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}
