// Package db opens the gorm handle every repository runs through.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/homewardlabs/homeward/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormprom "gorm.io/plugin/prometheus"
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// Open connects to the configured database. TranslateError is load-bearing:
// unique-index conflicts must surface as gorm.ErrDuplicatedKey on postgres,
// mysql and sqlite alike, because cycle materialization keys its idempotent
// replay off that error.
func Open(p Params) (*gorm.DB, error) {
	dial, err := dialectorFor(p.Cfg.Database)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName("homeward"))); err != nil {
		return nil, fmt.Errorf("install otelgorm: %w", err)
	}
	if err := conn.Use(gormprom.New(gormprom.Config{
		DBName:          "homeward",
		RefreshInterval: 15,
	})); err != nil {
		return nil, fmt.Errorf("install db metrics: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if p.Cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(p.Cfg.Database.MaxOpenConns)
	}
	if p.Cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(p.Cfg.Database.MaxIdleConns)
	}
	if p.Cfg.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.Cfg.Database.ConnMaxLifetime)
	}

	p.Log.Named("db").Info("database connected", zap.String("driver", p.Cfg.Database.Driver))
	return conn, nil
}

func dialectorFor(c config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "", "postgres":
		return postgres.Open(c.DSN), nil
	case "mysql":
		return mysql.Open(c.DSN), nil
	case "sqlite":
		return sqlite.Open(c.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}
