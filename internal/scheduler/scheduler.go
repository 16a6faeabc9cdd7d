// Package scheduler owns the background jobs: walking due recurring plans
// forward and pruning aged history. Jobs are safe to run from several
// processes at once; plan claiming uses skip-locked row locks so workers
// never block each other.
package scheduler

import (
	"context"
	"time"

	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobDueCycles    = "due_cycles"
	jobPruneHistory = "prune_history"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
)

type Param struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Registry *prometheus.Registry

	Recurring recurringdomain.Service
	AuditRepo auditdomain.Repository
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cfg       config.SchedulerConfig
	recurring recurringdomain.Service
	auditRepo auditdomain.Repository

	cyclesCreated prometheus.Counter
	plansFailed   prometheus.Counter
	jobRuns       *prometheus.CounterVec
}

func New(p Param) *Scheduler {
	metrics := promauto.With(p.Registry)
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler"),
		clock:     p.Clock,
		cfg:       p.Cfg.Scheduler,
		recurring: p.Recurring,
		auditRepo: p.AuditRepo,
		cyclesCreated: metrics.NewCounter(prometheus.CounterOpts{
			Namespace: "homeward",
			Subsystem: "scheduler",
			Name:      "cycles_created_total",
			Help:      "Expense cycles materialized by the due cycle job.",
		}),
		plansFailed: metrics.NewCounter(prometheus.CounterOpts{
			Namespace: "homeward",
			Subsystem: "scheduler",
			Name:      "plans_failed_total",
			Help:      "Plans whose advance attempt returned an error.",
		}),
		jobRuns: metrics.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homeward",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Completed scheduler job runs by job and status.",
		}, []string{"job", "status"}),
	}
}

// RunForever drives the job loop until the context ends. One due cycle
// pass runs immediately on startup so a process that was down over a due
// window catches up without waiting a full interval.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	s.log.Info("scheduler loop started", zap.Duration("interval", interval))

	if _, err := s.RunDueCycles(ctx); err != nil {
		s.log.Error("due cycle pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	prune := time.NewTicker(24 * time.Hour)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler loop stopped")
			return
		case <-ticker.C:
			if _, err := s.RunDueCycles(ctx); err != nil {
				s.log.Error("due cycle pass failed", zap.Error(err))
			}
		case <-prune.C:
			if err := s.PruneJobHistory(ctx); err != nil {
				s.log.Error("history prune failed", zap.Error(err))
			}
		}
	}
}

// ensureJobRun returns the run already attached to the context, or opens
// and records a fresh one. Only the opener (owner) writes start and
// finish bookkeeping, so nested jobs share the outer run.
func (s *Scheduler) ensureJobRun(ctx context.Context, name string) (context.Context, *JobRun, bool) {
	if run, ok := ctx.Value(jobRunKey{}).(*JobRun); ok {
		return ctx, run, false
	}
	run := &JobRun{
		ID:        ulid.Make().String(),
		JobName:   name,
		Status:    JobStatusRunning,
		StartedAt: s.clock.Now(ctx),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.log.Warn("job run bookkeeping unavailable", zap.String("job", name), zap.Error(err))
	}
	return context.WithValue(ctx, jobRunKey{}, run), run, true
}

type jobRunKey struct{}

func (s *Scheduler) logJobStart(_ context.Context, run *JobRun) {
	s.log.Info("job started",
		zap.String("job", run.JobName),
		zap.String("run_id", run.ID),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *JobRun) {
	now := s.clock.Now(ctx)
	run.FinishedAt = &now
	if run.Status == JobStatusRunning {
		if run.Failed > 0 {
			run.Status = JobStatusFailed
		} else {
			run.Status = JobStatusSucceeded
		}
	}

	err := s.db.WithContext(ctx).
		Model(&JobRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":      run.Status,
			"finished_at": run.FinishedAt,
			"processed":   run.Processed,
			"failed":      run.Failed,
			"last_error":  run.LastError,
		}).Error
	if err != nil {
		s.log.Warn("job run bookkeeping unavailable", zap.String("job", run.JobName), zap.Error(err))
	}

	s.jobRuns.WithLabelValues(run.JobName, string(run.Status)).Inc()
	s.log.Info("job finished",
		zap.String("job", run.JobName),
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("processed", run.Processed),
		zap.Int("failed", run.Failed),
		zap.Duration("took", now.Sub(run.StartedAt)),
	)
}

func (s *Scheduler) logSchedulerError(_ context.Context, run *JobRun, code string, err error) {
	run.AddFailed(1)
	run.LastError = err.Error()
	s.log.Error("job step failed",
		zap.String("job", run.JobName),
		zap.String("run_id", run.ID),
		zap.String("code", code),
		zap.Error(err),
	)
}
