package household

import (
	"github.com/homewardlabs/homeward/internal/household/repository"
	"github.com/homewardlabs/homeward/internal/household/service"
	"go.uber.org/fx"
)

var Module = fx.Module("household.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
