package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// PruneJobHistory trims aged scheduler bookkeeping and audit trail rows.
// A retention of zero or less disables that class of cleanup.
func (s *Scheduler) PruneJobHistory(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobPruneHistory)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	now := s.clock.Now(ctx)

	if days := s.cfg.JobRunRetention; days > 0 {
		cutoff := now.AddDate(0, 0, -days)
		res := s.db.WithContext(ctx).
			Delete(&JobRun{}, "started_at < ? AND id <> ?", cutoff, run.ID)
		if res.Error != nil {
			s.logSchedulerError(ctx, run, "scheduler.prune.job_runs", res.Error)
			return res.Error
		}
		run.AddProcessed(int(res.RowsAffected))
		s.log.Info("pruned job runs",
			zap.Int64("deleted", res.RowsAffected),
			zap.Time("cutoff", cutoff),
		)
	} else {
		s.log.Info("job run retention disabled", zap.Int("days", days))
	}

	if days := s.cfg.RetentionDays; days > 0 {
		cutoff := now.AddDate(0, 0, -days)
		deleted, err := s.auditRepo.DeleteBefore(ctx, s.db, cutoff)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.prune.audit", err)
			return err
		}
		run.AddProcessed(int(deleted))
		s.log.Info("pruned audit trail",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	} else {
		s.log.Info("audit retention disabled", zap.Int("days", days))
	}

	return nil
}
