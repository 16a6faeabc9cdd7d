// @title           Homeward API
// @version         1.0
// @description     Household obligations, quotas and shared expense tracking.

// @contact.name   API Support
// @contact.email  support@homeward.dev

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/audit"
	"github.com/homewardlabs/homeward/internal/bootstrap"
	"github.com/homewardlabs/homeward/internal/chore"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	"github.com/homewardlabs/homeward/internal/expense"
	"github.com/homewardlabs/homeward/internal/household"
	"github.com/homewardlabs/homeward/internal/ledger"
	"github.com/homewardlabs/homeward/internal/migration"
	"github.com/homewardlabs/homeward/internal/observability"
	"github.com/homewardlabs/homeward/internal/planlimit"
	"github.com/homewardlabs/homeward/internal/quota"
	"github.com/homewardlabs/homeward/internal/ratelimit"
	"github.com/homewardlabs/homeward/internal/recurring"
	"github.com/homewardlabs/homeward/internal/redis"
	"github.com/homewardlabs/homeward/internal/scheduler"
	"github.com/homewardlabs/homeward/internal/seed"
	"github.com/homewardlabs/homeward/internal/server"
	"github.com/homewardlabs/homeward/internal/statement"
	"github.com/homewardlabs/homeward/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "homeward",
		Short:   "Homeward CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newSeedCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with the in-process scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run background scheduler workers only",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the demo household for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		fx.Invoke(bootstrap.EnsureDefaultHousehold),

		household.Module,
		ledger.Module,
		planlimit.Module,
		quota.Module,
		recurring.Module,
		chore.Module,
		expense.Module,
		statement.Module,
		audit.Module,
		ratelimit.Module,

		scheduler.Module,
		server.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		scheduler.Module,
		recurring.Module,
		audit.Module,

		// Pulled in by the recurring service
		household.Module,
		ledger.Module,
		quota.Module,
		planlimit.Module,
		expense.Module,

		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runSeed() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			return seed.EnsureDemoHousehold(conn)
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
