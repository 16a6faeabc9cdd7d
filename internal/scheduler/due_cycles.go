package scheduler

import (
	"context"
	"time"

	"github.com/homewardlabs/homeward/internal/cadence"
	"go.uber.org/zap"
)

// DueCycleReport summarizes one pass of the due cycle job.
type DueCycleReport struct {
	RunID         string    `json:"run_id"`
	AsOf          time.Time `json:"as_of"`
	PlansSeen     int       `json:"plans_seen"`
	PlansAdvanced int       `json:"plans_advanced"`
	PlansSkipped  int       `json:"plans_skipped"`
	PlansFailed   int       `json:"plans_failed"`
	CyclesCreated int       `json:"cycles_created"`
}

// RunDueCycles walks every plan whose next due date has arrived and
// materializes the owed cycles. Work is bounded twice: per plan, so one
// long-dormant plan cannot monopolize a pass, and globally across the
// pass. A plan that fails is logged and skipped; the rest of the backlog
// still runs. Plans claimed by a concurrent worker count as skipped, not
// failed.
func (s *Scheduler) RunDueCycles(ctx context.Context) (*DueCycleReport, error) {
	ctx, run, owner := s.ensureJobRun(ctx, jobDueCycles)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	globalCap := s.cfg.GlobalCycleCap
	if globalCap <= 0 {
		globalCap = 500
	}
	perPlanCap := s.cfg.PerPlanCycleCap
	if perPlanCap <= 0 {
		perPlanCap = 31
	}

	asOf := cadence.DateOf(s.clock.Now(ctx))
	report := &DueCycleReport{RunID: run.ID, AsOf: asOf}

	ids, err := s.recurring.DuePlanIDs(ctx, asOf, globalCap)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.due_cycles.query", err)
		return nil, err
	}
	report.PlansSeen = len(ids)

	budget := globalCap
	for _, id := range ids {
		if budget <= 0 {
			s.log.Warn("global cycle budget exhausted, leaving backlog for next pass",
				zap.String("run_id", run.ID),
				zap.Int("plans_seen", report.PlansSeen),
			)
			break
		}
		maxCycles := perPlanCap
		if budget < maxCycles {
			maxCycles = budget
		}

		res, err := s.recurring.AdvancePlan(ctx, id, asOf, maxCycles)
		if err != nil {
			report.PlansFailed++
			s.plansFailed.Inc()
			s.logSchedulerError(ctx, run, "scheduler.due_cycles.advance", err)
			continue
		}
		if !res.Claimed {
			report.PlansSkipped++
			continue
		}

		report.PlansAdvanced++
		report.CyclesCreated += res.Created
		budget -= res.Cycles
		run.AddProcessed(res.Cycles)
		s.cyclesCreated.Add(float64(res.Created))
	}

	s.log.Info("due cycle pass complete",
		zap.String("run_id", run.ID),
		zap.Time("as_of", asOf),
		zap.Int("plans_seen", report.PlansSeen),
		zap.Int("plans_advanced", report.PlansAdvanced),
		zap.Int("plans_skipped", report.PlansSkipped),
		zap.Int("plans_failed", report.PlansFailed),
		zap.Int("cycles_created", report.CyclesCreated),
	)
	return report, nil
}
