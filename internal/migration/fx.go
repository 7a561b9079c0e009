package migration

import (
	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	"github.com/ferrolab/certline/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		// Versioned migrations target postgres; the sqlite and mysql dev
		// setups derive the schema from the models instead.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&lotdomain.Lot{},
				&lotdomain.QCCheck{},
				&auditdomain.AuditEntry{},
				&seed.Actor{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultAdmin(conn)
	}),
)
