package db

import (
	"time"

	"github.com/ferrolab/certline/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func Open(cfg config.Config) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DB.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConn)
	}
	if cfg.DB.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConn)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.ConnMaxLifetime) * time.Second)
	}

	return conn, nil
}

var Module = fx.Module("db",
	fx.Provide(Open),
)
