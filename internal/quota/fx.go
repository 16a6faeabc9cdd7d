package quota

import (
	"github.com/homewardlabs/homeward/internal/quota/domain"
	"github.com/homewardlabs/homeward/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		domain.FromAppConfig,
		service.NewService,
	),
)
