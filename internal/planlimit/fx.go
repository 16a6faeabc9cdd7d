package planlimit

import (
	"github.com/homewardlabs/homeward/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("planlimit",
	fx.Provide(NewRegistry),
	fx.Invoke(Watch),
)

// Watch re-applies limit overrides whenever the config file changes, so
// tier ceilings can be tuned without a restart.
func Watch(r *Registry) {
	config.OnChange(func(cfg config.Config) {
		r.Apply(cfg)
	})
}
