package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/homewardlabs/homeward/internal/clock"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         householddomain.Repository
	LedgerSvc    ledgerdomain.Service
	QuotaSvc     quotadomain.Service
	RecurringSvc recurringdomain.Service
}

type service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         householddomain.Repository
	ledgerSvc    ledgerdomain.Service
	quotaSvc     quotadomain.Service
	recurringSvc recurringdomain.Service
}

func NewService(p ServiceParam) householddomain.Service {
	return &service{
		db:           p.DB,
		log:          p.Log.Named("household.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		ledgerSvc:    p.LedgerSvc,
		quotaSvc:     p.QuotaSvc,
		recurringSvc: p.RecurringSvc,
	}
}

// Create inserts the household together with its owner member. The owner
// bypasses the member quota: a household always starts with one seat.
func (s *service) Create(ctx context.Context, req householddomain.CreateHouseholdRequest) (*householddomain.Household, *householddomain.Member, error) {
	name := strings.TrimSpace(req.Name)
	ownerName := strings.TrimSpace(req.OwnerName)
	if name == "" || ownerName == "" {
		return nil, nil, householddomain.ErrNameRequired
	}

	tier := req.Tier
	if tier == "" {
		tier = householddomain.TierFree
	}
	if _, ok := householddomain.ParseTier(string(tier)); !ok {
		return nil, nil, householddomain.ErrInvalidTier
	}

	now := s.clock.Now(ctx)
	h := &householddomain.Household{
		ID:        s.genID.Generate(),
		Slug:      s.uniqueSlug(ctx, name),
		Name:      name,
		Tier:      tier,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &householddomain.Member{
		ID:          s.genID.Generate(),
		HouseholdID: h.ID,
		Name:        ownerName,
		Role:        householddomain.RoleOwner,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, h); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return householddomain.ErrSlugAlreadyExists
			}
			return err
		}
		if err := s.repo.InsertMember(ctx, tx, owner); err != nil {
			return err
		}
		_, err := s.ledgerSvc.Apply(ctx, tx, h.ID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveMembers: 1,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("household created",
		zap.String("household_id", h.ID.String()),
		zap.String("slug", h.Slug),
		zap.String("tier", string(h.Tier)),
	)
	return h, owner, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*householddomain.Household, error) {
	h, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, householddomain.ErrHouseholdNotFound
	}
	return h, nil
}

func (s *service) List(ctx context.Context, page pagination.Pagination) ([]*householddomain.Household, error) {
	return s.repo.List(ctx, s.db, page)
}

func (s *service) SetActive(ctx context.Context, id snowflake.ID, active bool) (*householddomain.Household, error) {
	var h *householddomain.Household
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		h, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if h == nil {
			return householddomain.ErrHouseholdNotFound
		}
		if h.Active == active {
			return nil
		}
		h.Active = active
		h.UpdatedAt = s.clock.Now(ctx)
		return s.repo.Update(ctx, tx, h)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("household active flag set",
		zap.String("household_id", id.String()),
		zap.Bool("active", active),
	)
	return h, nil
}

func (s *service) ChangeTier(ctx context.Context, id snowflake.ID, tier householddomain.Tier) (*householddomain.Household, error) {
	if _, ok := householddomain.ParseTier(string(tier)); !ok {
		return nil, householddomain.ErrInvalidTier
	}

	var h *householddomain.Household
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		h, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if h == nil {
			return householddomain.ErrHouseholdNotFound
		}
		h.Tier = tier
		h.UpdatedAt = s.clock.Now(ctx)
		return s.repo.Update(ctx, tx, h)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("household tier changed",
		zap.String("household_id", id.String()),
		zap.String("tier", string(tier)),
	)
	return h, nil
}

func (s *service) AddMember(ctx context.Context, req householddomain.AddMemberRequest) (*householddomain.Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, householddomain.ErrNameRequired
	}
	role := req.Role
	if role == "" {
		role = householddomain.RoleAdult
	}
	if _, ok := householddomain.ParseMemberRole(string(role)); !ok {
		return nil, householddomain.ErrInvalidRole
	}

	now := s.clock.Now(ctx)
	m := &householddomain.Member{
		ID:          s.genID.Generate(),
		HouseholdID: req.HouseholdID,
		Name:        name,
		Role:        role,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The assertion takes the household lock, so the ceiling check and
		// the insert below see the same counters.
		if err := s.quotaSvc.Assert(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveMembers: 1,
		}); err != nil {
			return err
		}
		if err := s.repo.InsertMember(ctx, tx, m); err != nil {
			return err
		}
		_, err := s.ledgerSvc.Apply(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveMembers: 1,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member added",
		zap.String("household_id", req.HouseholdID.String()),
		zap.String("member_id", m.ID.String()),
	)
	return m, nil
}

func (s *service) ListMembers(ctx context.Context, householdID snowflake.ID) ([]*householddomain.Member, error) {
	h, err := s.repo.FindByID(ctx, s.db, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, householddomain.ErrHouseholdNotFound
	}
	return s.repo.ListMembers(ctx, s.db, householdID, false)
}

// RemoveMember deactivates the member and cascades: every active recurring
// plan the member owns or participates in terminates in the same
// transaction, then the member's ledger slot is released. Lock order is
// household, member, plans, ledger.
func (s *service) RemoveMember(ctx context.Context, householdID, memberID snowflake.ID) (*householddomain.RemoveMemberResult, error) {
	var result *householddomain.RemoveMemberResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.repo.FindByIDForUpdate(ctx, tx, householdID)
		if err != nil {
			return err
		}
		if h == nil {
			return householddomain.ErrHouseholdNotFound
		}
		if !h.Active {
			return householddomain.ErrHouseholdInactive
		}

		m, err := s.repo.FindMemberByIDForUpdate(ctx, tx, householdID, memberID)
		if err != nil {
			return err
		}
		if m == nil {
			return householddomain.ErrMemberNotFound
		}
		if !m.Active {
			result = &householddomain.RemoveMemberResult{Member: m, AlreadyRemoved: true}
			return nil
		}
		if m.Role == householddomain.RoleOwner {
			return householddomain.ErrCannotRemoveOwner
		}

		now := s.clock.Now(ctx)
		m.Active = false
		m.RemovedAt = &now
		m.UpdatedAt = now
		if err := s.repo.UpdateMember(ctx, tx, m); err != nil {
			return err
		}

		terminated, err := s.recurringSvc.TerminateForMember(ctx, tx, householdID, memberID)
		if err != nil {
			return err
		}

		if _, err := s.ledgerSvc.Apply(ctx, tx, householdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveMembers: -1,
		}); err != nil {
			return err
		}

		result = &householddomain.RemoveMemberResult{Member: m, TerminatedPlans: terminated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyRemoved {
		s.log.Info("member removed",
			zap.String("household_id", householdID.String()),
			zap.String("member_id", memberID.String()),
			zap.Int("terminated_plans", len(result.TerminatedPlans)),
		)
	}
	return result, nil
}

func (s *service) uniqueSlug(ctx context.Context, name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "household"
	}
	existing, err := s.repo.FindBySlug(ctx, s.db, base)
	if err == nil && existing == nil {
		return base
	}
	suffix := strings.ToLower(s.genID.Generate().Base36())
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("%s-%s", base, suffix)
}
