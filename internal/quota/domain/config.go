package domain

import (
	"github.com/homewardlabs/homeward/internal/config"
)

type Config struct {
	// Enabled gates ceiling evaluation only. Inactive households are
	// rejected regardless, so disabling quota cannot resurrect a
	// deactivated tenant.
	Enabled bool
}

func FromAppConfig(cfg config.Config) *Config {
	return &Config{
		Enabled: cfg.Quota.Enabled,
	}
}
