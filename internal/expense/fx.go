package expense

import (
	"github.com/homewardlabs/homeward/internal/expense/repository"
	"github.com/homewardlabs/homeward/internal/expense/service"
	"go.uber.org/fx"
)

var Module = fx.Module("expense.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
