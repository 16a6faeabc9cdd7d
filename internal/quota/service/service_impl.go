package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"github.com/homewardlabs/homeward/internal/planlimit"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Config        *quotadomain.Config
	Limits        *planlimit.Registry
	HouseholdRepo householddomain.Repository
	LedgerRepo    ledgerdomain.Repository
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           *quotadomain.Config
	limits        *planlimit.Registry
	householdRepo householddomain.Repository
	ledgerRepo    ledgerdomain.Repository
}

func NewService(p ServiceParam) quotadomain.Service {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("quota.service"),
		cfg:           p.Config,
		limits:        p.Limits,
		householdRepo: p.HouseholdRepo,
		ledgerRepo:    p.LedgerRepo,
	}
}

func (s *service) Assert(ctx context.Context, db *gorm.DB, householdID snowflake.ID, deltas ledgerdomain.Deltas) error {
	if householdID == 0 {
		return ledgerdomain.ErrHouseholdIDRequired
	}
	for m := range deltas {
		if _, ok := ledgerdomain.ParseMetric(string(m)); !ok {
			return ledgerdomain.ErrUnknownMetric
		}
	}

	h, err := s.householdRepo.FindByIDForUpdate(ctx, db, householdID)
	if err != nil {
		return err
	}
	if h == nil {
		return householddomain.ErrHouseholdNotFound
	}
	if !h.Active {
		return householddomain.ErrHouseholdInactive
	}
	if h.Tier.Unrestricted() {
		return nil
	}
	if !s.cfg.Enabled {
		return nil
	}

	// The household lock above serializes every writer, so a plain read of
	// the counters is consistent for the rest of this transaction.
	row, err := s.ledgerRepo.Find(ctx, db, householdID)
	if err != nil {
		return err
	}
	if row == nil {
		row = &ledgerdomain.UsageLedger{HouseholdID: householdID}
	}

	for _, m := range ledgerdomain.AllMetrics() {
		delta, ok := deltas[m]
		if !ok || delta <= 0 {
			continue
		}
		limit, limited := s.limits.Limit(h.Tier, m)
		if !limited {
			continue
		}
		current := row.Value(m)
		projected := current + delta
		if projected < 0 {
			projected = 0
		}
		if projected > limit {
			s.log.Info("quota assertion rejected",
				zap.String("household_id", householdID.String()),
				zap.String("metric", string(m)),
				zap.Int64("current", current),
				zap.Int64("limit", limit),
				zap.Int64("projected", projected),
			)
			return &quotadomain.QuotaError{
				Metric:    m,
				Current:   current,
				Limit:     limit,
				Projected: projected,
			}
		}
	}
	return nil
}

func (s *service) Usage(ctx context.Context, householdID snowflake.ID) ([]quotadomain.MetricUsage, error) {
	h, err := s.householdRepo.FindByID(ctx, s.db, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, householddomain.ErrHouseholdNotFound
	}

	row, err := s.ledgerRepo.Find(ctx, s.db, householdID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &ledgerdomain.UsageLedger{HouseholdID: householdID}
	}

	report := make([]quotadomain.MetricUsage, 0, len(ledgerdomain.AllMetrics()))
	for _, m := range ledgerdomain.AllMetrics() {
		usage := quotadomain.MetricUsage{
			Metric: m,
			Used:   row.Value(m),
		}
		if !h.Tier.Unrestricted() {
			if limit, ok := s.limits.Limit(h.Tier, m); ok {
				remaining := limit - usage.Used
				if remaining < 0 {
					remaining = 0
				}
				usage.Limit = &limit
				usage.Remaining = &remaining
			}
		}
		report = append(report, usage)
	}
	return report, nil
}
