package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		switch conn.Dialector.Name() {
		case "postgres":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		case "sqlite":
			return ApplySQLite(conn)
		default:
			log.Warn("no bundled migrations for dialect, schema must be managed externally",
				zap.String("dialect", conn.Dialector.Name()))
			return nil
		}
	}),
)
