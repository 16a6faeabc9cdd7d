package bootstrap

import (
	"context"

	"go.uber.org/fx"
)

// EnforceSchemaGate fails startup when the schema was never activated or
// does not match the migrations compiled into this binary.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return gate.MustBeActive(ctx)
		},
	})
}
