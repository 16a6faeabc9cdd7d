package ledger

import (
	"github.com/homewardlabs/homeward/internal/ledger/repository"
	"github.com/homewardlabs/homeward/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
