package chore

import (
	"github.com/homewardlabs/homeward/internal/chore/repository"
	"github.com/homewardlabs/homeward/internal/chore/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chore.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
