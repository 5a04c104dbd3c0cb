package migration

import (
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Migrate),
)

// Migrate prepares the host schema. Postgres uses the versioned SQL files,
// other dialects fall back to gorm AutoMigrate.
func Migrate(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		log.Info("schema migration disabled")
		return nil
	}

	if db.IsPostgres(cfg) {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}
