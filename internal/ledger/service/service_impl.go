package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/clock"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  ledgerdomain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  ledgerdomain.Repository
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Apply folds deltas into the household's counters. It runs on the handle
// the caller passes, which must be the transaction in which the caller
// already locked the household row.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, householdID snowflake.ID, deltas ledgerdomain.Deltas) (*ledgerdomain.UsageLedger, error) {
	if householdID == 0 {
		return nil, ledgerdomain.ErrHouseholdIDRequired
	}
	if len(deltas) == 0 {
		return nil, ledgerdomain.ErrEmptyDeltas
	}
	for m := range deltas {
		if _, ok := ledgerdomain.ParseMetric(string(m)); !ok {
			return nil, ledgerdomain.ErrUnknownMetric
		}
	}

	if err := s.repo.EnsureRow(ctx, tx, householdID); err != nil {
		return nil, err
	}
	row, err := s.repo.FindForUpdate(ctx, tx, householdID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		// EnsureRow just inserted or found it; a miss here means the
		// surrounding transaction is broken.
		return nil, gorm.ErrRecordNotFound
	}

	for _, m := range ledgerdomain.AllMetrics() {
		delta, ok := deltas[m]
		if !ok || delta == 0 {
			continue
		}
		row.Add(m, delta)
	}
	row.UpdatedAt = s.clock.Now(ctx)

	if err := s.repo.Save(ctx, tx, row); err != nil {
		return nil, err
	}

	s.log.Debug("ledger updated",
		zap.String("household_id", householdID.String()),
		zap.Any("deltas", deltas),
	)
	return row, nil
}

// Get returns a snapshot of the counters. A household without a row reads
// as all zeroes; the row is created lazily on first mutation.
func (s *service) Get(ctx context.Context, householdID snowflake.ID) (*ledgerdomain.UsageLedger, error) {
	if householdID == 0 {
		return nil, ledgerdomain.ErrHouseholdIDRequired
	}
	row, err := s.repo.Find(ctx, s.db, householdID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &ledgerdomain.UsageLedger{HouseholdID: householdID}, nil
	}
	return row, nil
}
