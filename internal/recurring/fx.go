package recurring

import (
	"github.com/homewardlabs/homeward/internal/recurring/repository"
	"github.com/homewardlabs/homeward/internal/recurring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recurring.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
