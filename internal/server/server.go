// Package server exposes the engine over HTTP: gin routing, bearer API
// key auth, rate limiting, and the sentinel-to-status error mapping.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	"github.com/homewardlabs/homeward/internal/ratelimit"
	"github.com/homewardlabs/homeward/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"

	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	statementdomain "github.com/homewardlabs/homeward/internal/statement/domain"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

type EngineParam struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Tracer trace.TracerProvider `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware stack.
// Route registration happens separately so tests can mount a subset.
func NewEngine(p EngineParam) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(RequestID())
	engine.Use(RequestLogger(p.Log))
	engine.Use(gin.Recovery())
	if p.Cfg.Observability.OTLPEndpoint != "" && p.Tracer != nil {
		engine.Use(otelgin.Middleware(serviceName(p.Cfg), otelgin.WithTracerProvider(p.Tracer)))
	}
	return engine
}

func serviceName(cfg config.Config) string {
	if cfg.Observability.ServiceName != "" {
		return cfg.Observability.ServiceName
	}
	return "homeward"
}

type ServerParam struct {
	fx.In

	Engine   *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Clock    clock.Clock
	Registry *prometheus.Registry
	Limiter  *ratelimit.Limiter

	HouseholdSvc householddomain.Service
	LedgerSvc    ledgerdomain.Service
	QuotaSvc     quotadomain.Service
	PlanSvc      recurringdomain.Service
	ChoreSvc     choredomain.Service
	ExpenseSvc   expensedomain.Service
	StatementSvc statementdomain.Service
	AuditSvc     auditdomain.Service       `optional:"true"`
	ExportSvc    auditdomain.ExportService `optional:"true"`
	Scheduler    *scheduler.Scheduler      `optional:"true"`
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	clock    clock.Clock
	registry *prometheus.Registry
	limiter  *ratelimit.Limiter

	householdSvc householddomain.Service
	ledgerSvc    ledgerdomain.Service
	quotaSvc     quotadomain.Service
	planSvc      recurringdomain.Service
	choreSvc     choredomain.Service
	expenseSvc   expensedomain.Service
	statementSvc statementdomain.Service
	auditSvc     auditdomain.Service
	exportSvc    auditdomain.ExportService
	scheduler    *scheduler.Scheduler
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		db:           p.DB,
		clock:        p.Clock,
		registry:     p.Registry,
		limiter:      p.Limiter,
		householdSvc: p.HouseholdSvc,
		ledgerSvc:    p.LedgerSvc,
		quotaSvc:     p.QuotaSvc,
		planSvc:      p.PlanSvc,
		choreSvc:     p.ChoreSvc,
		expenseSvc:   p.ExpenseSvc,
		statementSvc: p.StatementSvc,
		auditSvc:     p.AuditSvc,
		exportSvc:    p.ExportSvc,
		scheduler:    p.Scheduler,
	}
}

// RegisterRoutes mounts every endpoint. Health and metrics stay outside
// the authenticated group so probes need no key.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)
	s.engine.GET("/metrics", s.Metrics())

	// The limiter sits behind auth so windows key on the caller identity,
	// not the shared NAT address.
	v1 := s.engine.Group("/v1", s.APIKeyRequired(), s.limiter.Middleware())

	households := v1.Group("/households")
	{
		households.POST("", s.CreateHousehold)
		households.GET("", s.ListHouseholds)
		households.GET("/:id", s.GetHousehold)
		households.POST("/:id/activate", s.ActivateHousehold)
		households.POST("/:id/deactivate", s.DeactivateHousehold)
		households.POST("/:id/tier", s.ChangeHouseholdTier)

		households.POST("/:id/members", s.AddMember)
		households.GET("/:id/members", s.ListMembers)
		households.DELETE("/:id/members/:memberID", s.RemoveMember)

		households.GET("/:id/ledger", s.GetLedger)
		households.POST("/:id/ledger/apply", s.ApplyLedger)
		households.POST("/:id/quota/check", s.CheckQuota)
		households.GET("/:id/usage", s.GetUsage)

		households.POST("/:id/plans", s.CreatePlan)
		households.GET("/:id/plans", s.ListPlans)
		households.GET("/:id/plans/:planID", s.GetPlan)
		households.POST("/:id/plans/:planID/terminate", s.TerminatePlan)
		households.POST("/:id/plans/:planID/materialize", s.MaterializePlan)

		households.POST("/:id/chores", s.CreateChore)
		households.GET("/:id/chores", s.ListChores)
		households.GET("/:id/chores/:choreID", s.GetChore)
		households.POST("/:id/chores/:choreID/activate", s.ActivateChore)
		households.POST("/:id/chores/:choreID/complete", s.CompleteChore)
		households.POST("/:id/chores/:choreID/cancel", s.CancelChore)
		households.POST("/:id/chores/:choreID/photos", s.AttachChorePhoto)
		households.DELETE("/:id/chores/:choreID/photos/:photoID", s.RemoveChorePhoto)

		households.POST("/:id/expenses", s.CreateExpense)
		households.GET("/:id/expenses", s.ListExpenses)
		households.GET("/:id/expenses/:expenseID", s.GetExpense)
		households.POST("/:id/expenses/:expenseID/shares/:shareID/settle", s.SettleExpenseShare)

		households.GET("/:id/statements/:month", s.GetStatement)

		households.GET("/:id/audit-logs", s.ListAuditLogs)
		households.GET("/:id/audit-logs/export", s.ExportAuditLogs)
	}

	admin := v1.Group("/admin")
	{
		admin.POST("/scheduler/run-due-cycles", s.RunDueCycles)
	}
}

// RunHTTP starts the HTTP listener on the fx lifecycle and drains it on
// shutdown.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: engine}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := cfg.HTTP.ShutdownTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}
