package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
	"github.com/homewardlabs/homeward/internal/clock"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock

	repo          recurringdomain.Repository
	expenseRepo   expensedomain.Repository
	householdRepo householddomain.Repository
	ledgerSvc     ledgerdomain.Service
	quotaSvc      quotadomain.Service
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo          recurringdomain.Repository
	ExpenseRepo   expensedomain.Repository
	HouseholdRepo householddomain.Repository
	LedgerSvc     ledgerdomain.Service
	QuotaSvc      quotadomain.Service
}

const defaultCurrency = "USD"

func NewService(p ServiceParam) recurringdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("recurring.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:          p.Repo,
		expenseRepo:   p.ExpenseRepo,
		householdRepo: p.HouseholdRepo,
		ledgerSvc:     p.LedgerSvc,
		quotaSvc:      p.QuotaSvc,
	}
}

// Create validates the cadence and the share split, then in one
// transaction reserves a quota slot, inserts the plan, and materializes
// the first cycle at the start date itself. The stored next due date
// always points one interval past the start.
func (s *Service) Create(ctx context.Context, req recurringdomain.CreatePlanRequest) (*recurringdomain.Plan, *recurringdomain.MaterializeResult, error) {
	if req.HouseholdID == 0 {
		return nil, nil, householddomain.ErrHouseholdNotFound
	}
	if req.Every < 1 {
		return nil, nil, recurringdomain.ErrInvalidInterval
	}
	if !req.Unit.Valid() {
		return nil, nil, recurringdomain.ErrInvalidUnit
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, nil, expensedomain.ErrDescriptionRequired
	}
	if err := validateShares(req.OwnerMemberID, req.AmountCents, req.Shares); err != nil {
		return nil, nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	var (
		plan  *recurringdomain.Plan
		first *recurringdomain.MaterializeResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockHousehold(ctx, tx, req.HouseholdID); err != nil {
			return err
		}
		memberIDs := append([]snowflake.ID{req.OwnerMemberID}, shareMemberIDs(req.Shares)...)
		if err := s.ensureActiveMembers(ctx, tx, req.HouseholdID, memberIDs); err != nil {
			return err
		}
		// The first cycle occupies one expense slot; later cycles ride on
		// this activation-time check.
		if err := s.quotaSvc.Assert(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveExpenses: 1,
		}); err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		start := cadence.DateOf(req.StartDate)
		if req.StartDate.IsZero() {
			start = cadence.DateOf(now)
		}

		p := &recurringdomain.Plan{
			ID:            s.genID.Generate(),
			HouseholdID:   req.HouseholdID,
			OwnerMemberID: req.OwnerMemberID,
			Description:   description,
			AmountCents:   req.AmountCents,
			Currency:      currency,
			Every:         req.Every,
			Unit:          req.Unit,
			StartDate:     start,
			NextDueDate:   cadence.Next(start, req.Every, req.Unit, 1),
			Status:        recurringdomain.PlanStatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Insert(ctx, tx, p); err != nil {
			return err
		}

		shares := make([]recurringdomain.PlanShare, 0, len(req.Shares))
		for _, in := range req.Shares {
			shares = append(shares, recurringdomain.PlanShare{
				ID:          s.genID.Generate(),
				PlanID:      p.ID,
				MemberID:    in.MemberID,
				AmountCents: in.AmountCents,
				CreatedAt:   now,
			})
		}
		if err := s.repo.InsertShares(ctx, tx, shares); err != nil {
			return err
		}

		res, err := s.materializeCycle(ctx, tx, p, start, now)
		if err != nil {
			return err
		}

		plan = p
		first = res
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("recurring plan created",
		zap.String("household_id", plan.HouseholdID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("every", plan.Every),
		zap.String("unit", string(plan.Unit)),
		zap.Time("next_due_date", plan.NextDueDate),
	)
	return plan, first, nil
}

func (s *Service) Get(ctx context.Context, householdID, planID snowflake.ID) (*recurringdomain.Plan, []recurringdomain.PlanShare, error) {
	p, err := s.repo.FindByID(ctx, s.db, householdID, planID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, recurringdomain.ErrPlanNotFound
	}
	shares, err := s.repo.ListShares(ctx, s.db, planID)
	if err != nil {
		return nil, nil, err
	}
	return p, shares, nil
}

func (s *Service) List(ctx context.Context, householdID snowflake.ID, page pagination.Pagination) ([]*recurringdomain.Plan, *pagination.PageInfo, error) {
	page = page.Normalize()
	plans, err := s.repo.List(ctx, s.db, householdID, page)
	if err != nil {
		return nil, nil, err
	}
	lastID := ""
	if len(plans) > 0 {
		lastID = plans[len(plans)-1].ID.String()
	}
	info := pagination.NewPageInfo(len(plans), page.Limit, lastID)
	if info.HasMore {
		plans = plans[:page.Limit]
		cursor := plans[len(plans)-1].ID.String()
		info.NextCursor = &cursor
	}
	return plans, info, nil
}

// Terminate stops the plan. Only the owner may call it; repeating the call
// on a terminated plan reports the current state instead of failing.
func (s *Service) Terminate(ctx context.Context, householdID, planID, actorMemberID snowflake.ID) (*recurringdomain.TerminateResult, error) {
	var result *recurringdomain.TerminateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		p, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, planID)
		if err != nil {
			return err
		}
		if p == nil {
			return recurringdomain.ErrPlanNotFound
		}
		if p.OwnerMemberID != actorMemberID {
			return recurringdomain.ErrNotPlanOwner
		}
		if p.Status == recurringdomain.PlanStatusTerminated {
			result = &recurringdomain.TerminateResult{Plan: p, AlreadyTerminated: true}
			return nil
		}

		now := s.clock.Now(ctx)
		p.Status = recurringdomain.PlanStatusTerminated
		p.TerminatedAt = &now
		p.UpdatedAt = now
		if err := s.repo.UpdateLifecycle(ctx, tx, p); err != nil {
			return err
		}
		result = &recurringdomain.TerminateResult{Plan: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyTerminated {
		s.log.Info("recurring plan terminated",
			zap.String("household_id", householdID.String()),
			zap.String("plan_id", planID.String()),
		)
	}
	return result, nil
}

func (s *Service) Materialize(ctx context.Context, householdID, planID snowflake.ID, dueDate time.Time) (*recurringdomain.MaterializeResult, error) {
	if dueDate.IsZero() {
		return nil, recurringdomain.ErrInvalidDueDate
	}

	var result *recurringdomain.MaterializeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		p, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, planID)
		if err != nil {
			return err
		}
		if p == nil {
			return recurringdomain.ErrPlanNotFound
		}
		if p.Status != recurringdomain.PlanStatusActive {
			return recurringdomain.ErrPlanNotActive
		}

		result, err = s.materializeCycle(ctx, tx, p, dueDate, s.clock.Now(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TerminateForMember runs inside the caller's transaction; the caller
// already holds the household lock.
func (s *Service) TerminateForMember(ctx context.Context, tx *gorm.DB, householdID, memberID snowflake.ID) ([]snowflake.ID, error) {
	plans, err := s.repo.ListActiveForMemberForUpdate(ctx, tx, householdID, memberID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}

	ids := make([]snowflake.ID, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	now := s.clock.Now(ctx)
	if err := s.repo.TerminateAll(ctx, tx, ids, now); err != nil {
		return nil, err
	}

	s.log.Info("terminated plans for departed member",
		zap.String("household_id", householdID.String()),
		zap.String("member_id", memberID.String()),
		zap.Int("plans", len(ids)),
	)
	return ids, nil
}

// AdvancePlan claims the plan and materializes every cycle due on or
// before asOf. The cap bounds a long-dormant plan; the remaining backlog
// is picked up by the next run via the persisted next due date.
func (s *Service) AdvancePlan(ctx context.Context, planID snowflake.ID, asOf time.Time, maxCycles int) (*recurringdomain.AdvanceResult, error) {
	result := &recurringdomain.AdvanceResult{PlanID: planID}
	if maxCycles <= 0 {
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Peek without a lock to learn the household, then take locks in
		// protocol order: household first, plan second.
		peek, err := s.repo.FindAnyByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if peek == nil {
			return nil
		}
		h, err := s.householdRepo.FindByIDForUpdate(ctx, tx, peek.HouseholdID)
		if err != nil {
			return err
		}
		if h == nil || !h.Active {
			return nil
		}

		p, err := s.repo.ClaimByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		result.Claimed = true
		if p.Status != recurringdomain.PlanStatusActive {
			return nil
		}

		start := cadence.DateOf(p.StartDate)
		today := cadence.DateOf(asOf)
		due := cadence.DateOf(p.NextDueDate)
		result.NextDueDate = due
		if due.After(today) {
			return nil
		}

		// Find the step index of the stored due date, then walk the grid.
		k := 0
		d := start
		for d.Before(due) {
			k++
			d = cadence.Next(start, p.Every, p.Unit, k)
		}

		now := s.clock.Now(ctx)
		for !d.After(today) && result.Cycles < maxCycles {
			res, err := s.materializeCycle(ctx, tx, p, d, now)
			if err != nil {
				return err
			}
			result.Cycles++
			if res.Created {
				result.Created++
			}
			k++
			d = cadence.Next(start, p.Every, p.Unit, k)
		}

		p.NextDueDate = d
		p.UpdatedAt = now
		if err := s.repo.UpdateSchedule(ctx, tx, p); err != nil {
			return err
		}
		result.NextDueDate = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) DuePlanIDs(ctx context.Context, asOf time.Time, limit int) ([]snowflake.ID, error) {
	return s.repo.DuePlanIDs(ctx, s.db, cadence.DateOf(asOf), limit)
}

// materializeCycle stamps one instance from the plan template. The caller
// holds the household and plan locks. A (plan, due date) pair that already
// exists converges on the stored row; the ledger moves only on genuine
// creation.
func (s *Service) materializeCycle(ctx context.Context, tx *gorm.DB, p *recurringdomain.Plan, dueDate time.Time, now time.Time) (*recurringdomain.MaterializeResult, error) {
	due := cadence.DateOf(dueDate)
	e := &expensedomain.Expense{
		ID:            s.genID.Generate(),
		HouseholdID:   p.HouseholdID,
		PlanID:        &p.ID,
		DueDate:       &due,
		PayerMemberID: p.OwnerMemberID,
		Description:   p.Description,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		Status:        expensedomain.ExpenseStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.expenseRepo.InsertInstance(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := s.expenseRepo.FindByPlanDue(ctx, tx, p.ID, due)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, expensedomain.ErrExpenseNotFound
		}
		shares, err := s.expenseRepo.ListShares(ctx, tx, existing.ID)
		if err != nil {
			return nil, err
		}
		return &recurringdomain.MaterializeResult{Expense: existing, Shares: shares, Created: false}, nil
	}

	planShares, err := s.repo.ListShares(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}
	shares := make([]expensedomain.ExpenseShare, 0, len(planShares))
	for _, ps := range planShares {
		share := expensedomain.ExpenseShare{
			ID:          s.genID.Generate(),
			ExpenseID:   e.ID,
			MemberID:    ps.MemberID,
			AmountCents: ps.AmountCents,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if ps.MemberID == p.OwnerMemberID {
			// The owner fronts the cost, so their own slice starts settled.
			settledAt := now
			share.Settled = true
			share.SettledAt = &settledAt
		}
		shares = append(shares, share)
	}
	if err := s.expenseRepo.InsertShares(ctx, tx, shares); err != nil {
		return nil, err
	}

	if _, err := s.ledgerSvc.Apply(ctx, tx, p.HouseholdID, ledgerdomain.Deltas{
		ledgerdomain.MetricActiveExpenses: 1,
	}); err != nil {
		return nil, err
	}

	return &recurringdomain.MaterializeResult{Expense: e, Shares: shares, Created: true}, nil
}

func (s *Service) lockHousehold(ctx context.Context, tx *gorm.DB, householdID snowflake.ID) (*householddomain.Household, error) {
	h, err := s.householdRepo.FindByIDForUpdate(ctx, tx, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, householddomain.ErrHouseholdNotFound
	}
	if !h.Active {
		return nil, householddomain.ErrHouseholdInactive
	}
	return h, nil
}

func (s *Service) ensureActiveMembers(ctx context.Context, tx *gorm.DB, householdID snowflake.ID, memberIDs []snowflake.ID) error {
	members, err := s.householdRepo.ListMembers(ctx, tx, householdID, true)
	if err != nil {
		return err
	}
	active := make(map[snowflake.ID]struct{}, len(members))
	for _, m := range members {
		active[m.ID] = struct{}{}
	}
	for _, id := range memberIDs {
		if _, ok := active[id]; !ok {
			return expensedomain.ErrNotHouseholdMember
		}
	}
	return nil
}

func validateShares(ownerMemberID snowflake.ID, amountCents int64, shares []expensedomain.ShareInput) error {
	if amountCents <= 0 {
		return expensedomain.ErrInvalidAmount
	}
	if len(shares) == 0 {
		return expensedomain.ErrMissingShares
	}

	var sum int64
	seen := make(map[snowflake.ID]struct{}, len(shares))
	nonOwner := 0
	for _, in := range shares {
		if in.AmountCents <= 0 {
			return expensedomain.ErrInvalidAmount
		}
		if _, dup := seen[in.MemberID]; dup {
			return expensedomain.ErrDuplicateShare
		}
		seen[in.MemberID] = struct{}{}
		if in.MemberID != ownerMemberID {
			nonOwner++
		}
		sum += in.AmountCents
	}
	if sum != amountCents {
		return expensedomain.ErrShareSumMismatch
	}
	if nonOwner == 0 {
		return expensedomain.ErrPayerOnlyShare
	}
	return nil
}

func shareMemberIDs(shares []expensedomain.ShareInput) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(shares))
	for _, in := range shares {
		ids = append(ids, in.MemberID)
	}
	return ids
}
