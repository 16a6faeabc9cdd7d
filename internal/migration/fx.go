package migration

import (
	"strings"

	"github.com/homewardlabs/homeward/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run applies the schema for the configured driver: versioned SQL on
// postgres, AutoMigrate everywhere else.
func Run(conn *gorm.DB, cfg config.Config) error {
	switch strings.ToLower(cfg.Database.Driver) {
	case "", "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		return RunAutoMigrate(conn)
	}
}
