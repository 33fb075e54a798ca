package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/avillareal/marketpay-backend/pkg/config"
	"github.com/avillareal/marketpay-backend/pkg/db"
	"github.com/avillareal/marketpay-backend/pkg/db/models"
	"github.com/avillareal/marketpay-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev
// mode and the feature flag is enabled. SQLite deployments skip goose (the
// shipped migrations are Postgres DDL) and build the schema through GORM
// auto-migration instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "running GORM auto-migration (sqlite)")
		if err := AutoMigrateModels(client.DB()); err != nil {
			return fmt.Errorf("running gorm auto-migration: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates or updates the full schema through GORM.
func AutoMigrateModels(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.Order{},
		&models.PaymentIntent{},
		&models.PaymentEvent{},
		&models.Notification{},
	)
}
