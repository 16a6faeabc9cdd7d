// Package planlimit maps (tier, metric) pairs to the ceilings quota
// enforcement reads. A pair with no registered ceiling is unlimited.
package planlimit

import (
	"sync/atomic"

	"github.com/homewardlabs/homeward/internal/config"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"go.uber.org/zap"
)

type snapshot map[householddomain.Tier]map[ledgerdomain.Metric]int64

// Registry holds an immutable limits snapshot behind an atomic pointer, so
// readers on the hot quota path never take a lock and config reloads swap
// the whole table at once.
type Registry struct {
	log     *zap.Logger
	current atomic.Pointer[snapshot]
}

func NewRegistry(cfg config.Config, log *zap.Logger) *Registry {
	r := &Registry{log: log.Named("planlimit")}
	r.Apply(cfg)
	return r
}

// Limit returns the ceiling for the pair. ok=false means unlimited.
func (r *Registry) Limit(tier householddomain.Tier, metric ledgerdomain.Metric) (int64, bool) {
	snap := r.current.Load()
	if snap == nil {
		return 0, false
	}
	tierLimits, ok := (*snap)[tier]
	if !ok {
		return 0, false
	}
	limit, ok := tierLimits[metric]
	return limit, ok
}

// Apply rebuilds the snapshot from compiled-in defaults plus the config
// overrides. A negative override removes the ceiling for that pair.
func (r *Registry) Apply(cfg config.Config) {
	snap := defaults()
	for tierName, metrics := range cfg.Quota.Limits {
		tier, ok := householddomain.ParseTier(tierName)
		if !ok {
			r.log.Warn("ignoring limit override for unknown tier", zap.String("tier", tierName))
			continue
		}
		for metricName, limit := range metrics {
			metric, ok := ledgerdomain.ParseMetric(metricName)
			if !ok {
				r.log.Warn("ignoring limit override for unknown metric",
					zap.String("tier", tierName),
					zap.String("metric", metricName),
				)
				continue
			}
			if _, exists := snap[tier]; !exists {
				snap[tier] = make(map[ledgerdomain.Metric]int64)
			}
			if limit < 0 {
				delete(snap[tier], metric)
				continue
			}
			snap[tier][metric] = limit
		}
	}
	r.current.Store(&snap)
}

func defaults() snapshot {
	return snapshot{
		householddomain.TierFree: {
			ledgerdomain.MetricActiveChores:   50,
			ledgerdomain.MetricChorePhotos:    100,
			ledgerdomain.MetricActiveMembers:  8,
			ledgerdomain.MetricActiveExpenses: 10,
			ledgerdomain.MetricItemPhotos:     100,
		},
		householddomain.TierPlus: {
			ledgerdomain.MetricActiveChores:   200,
			ledgerdomain.MetricChorePhotos:    500,
			ledgerdomain.MetricActiveMembers:  12,
			ledgerdomain.MetricActiveExpenses: 50,
			ledgerdomain.MetricItemPhotos:     500,
		},
	}
}
