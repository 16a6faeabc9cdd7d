package domain_test

import (
	"testing"

	"github.com/homewardlabs/homeward/internal/config"
	"github.com/homewardlabs/homeward/internal/quota/domain"
	"github.com/stretchr/testify/assert"
)

func TestFromAppConfig(t *testing.T) {
	cfg := domain.FromAppConfig(config.Config{
		Quota: config.QuotaConfig{Enabled: true},
	})
	assert.True(t, cfg.Enabled)

	cfg = domain.FromAppConfig(config.Config{
		Quota: config.QuotaConfig{Enabled: false},
	})
	assert.False(t, cfg.Enabled)
}
