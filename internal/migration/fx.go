package migration

import (
	recorddomain "github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/config"
	entitydomain "github.com/stayops/revaudit/internal/entity/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// mysql and sqlite deployments rely on gorm's schema sync; the
			// versioned SQL below is written against postgres.
			return conn.AutoMigrate(&recorddomain.AuditRecord{}, &entitydomain.Entity{})
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
