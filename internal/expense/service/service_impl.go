package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
	"github.com/homewardlabs/homeward/internal/clock"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo          expensedomain.Repository
	HouseholdRepo householddomain.Repository
	LedgerSvc     ledgerdomain.Service
	QuotaSvc      quotadomain.Service
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          expensedomain.Repository
	householdRepo householddomain.Repository
	ledgerSvc     ledgerdomain.Service
	quotaSvc      quotadomain.Service
}

const defaultCurrency = "USD"

func NewService(p ServiceParam) expensedomain.Service {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("expense.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		householdRepo: p.HouseholdRepo,
		ledgerSvc:     p.LedgerSvc,
		quotaSvc:      p.QuotaSvc,
	}
}

// Create records a one-off shared expense. The payer's slice starts
// settled; everyone else owes theirs until settled individually.
func (s *service) Create(ctx context.Context, req expensedomain.CreateExpenseRequest) (*expensedomain.Expense, []expensedomain.ExpenseShare, error) {
	if req.HouseholdID == 0 {
		return nil, nil, householddomain.ErrHouseholdNotFound
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, nil, expensedomain.ErrDescriptionRequired
	}
	if err := validateShares(req.PayerMemberID, req.AmountCents, req.Shares); err != nil {
		return nil, nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	var (
		expense *expensedomain.Expense
		shares  []expensedomain.ExpenseShare
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, req.HouseholdID); err != nil {
			return err
		}
		memberIDs := append([]snowflake.ID{req.PayerMemberID}, shareMemberIDs(req.Shares)...)
		if err := s.ensureActiveMembers(ctx, tx, req.HouseholdID, memberIDs); err != nil {
			return err
		}
		if err := s.quotaSvc.Assert(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveExpenses: 1,
		}); err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		e := &expensedomain.Expense{
			ID:            s.genID.Generate(),
			HouseholdID:   req.HouseholdID,
			PayerMemberID: req.PayerMemberID,
			Description:   description,
			AmountCents:   req.AmountCents,
			Currency:      currency,
			Status:        expensedomain.ExpenseStatusOpen,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if req.DueDate != nil {
			due := cadence.DateOf(*req.DueDate)
			e.DueDate = &due
		}
		if err := s.repo.Insert(ctx, tx, e); err != nil {
			return err
		}

		rows := make([]expensedomain.ExpenseShare, 0, len(req.Shares))
		for _, in := range req.Shares {
			share := expensedomain.ExpenseShare{
				ID:          s.genID.Generate(),
				ExpenseID:   e.ID,
				MemberID:    in.MemberID,
				AmountCents: in.AmountCents,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if in.MemberID == req.PayerMemberID {
				settledAt := now
				share.Settled = true
				share.SettledAt = &settledAt
			}
			rows = append(rows, share)
		}
		if err := s.repo.InsertShares(ctx, tx, rows); err != nil {
			return err
		}

		if _, err := s.ledgerSvc.Apply(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveExpenses: 1,
		}); err != nil {
			return err
		}

		expense = e
		shares = rows
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("expense created",
		zap.String("household_id", expense.HouseholdID.String()),
		zap.String("expense_id", expense.ID.String()),
		zap.Int64("amount_cents", expense.AmountCents),
	)
	return expense, shares, nil
}

func (s *service) Get(ctx context.Context, householdID, id snowflake.ID) (*expensedomain.Expense, []expensedomain.ExpenseShare, error) {
	e, err := s.repo.FindByID(ctx, s.db, householdID, id)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, expensedomain.ErrExpenseNotFound
	}
	shares, err := s.repo.ListShares(ctx, s.db, e.ID)
	if err != nil {
		return nil, nil, err
	}
	return e, shares, nil
}

func (s *service) List(ctx context.Context, householdID snowflake.ID, filter expensedomain.ListExpenseFilter, page pagination.Pagination) ([]*expensedomain.Expense, *pagination.PageInfo, error) {
	page = page.Normalize()
	items, err := s.repo.List(ctx, s.db, householdID, filter, page)
	if err != nil {
		return nil, nil, err
	}
	lastID := ""
	if len(items) > 0 {
		lastID = items[len(items)-1].ID.String()
	}
	info := pagination.NewPageInfo(len(items), page.Limit, lastID)
	if info.HasMore {
		items = items[:page.Limit]
		cursor := items[len(items)-1].ID.String()
		info.NextCursor = &cursor
	}
	return items, info, nil
}

// SettleShare marks one slice paid. The expense flips to settled and
// releases its ledger slot when the last open slice settles, whether the
// expense is one-off or plan-backed.
func (s *service) SettleShare(ctx context.Context, householdID, expenseID, shareID snowflake.ID) (*expensedomain.SettleShareResult, error) {
	var result *expensedomain.SettleShareResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		e, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, expenseID)
		if err != nil {
			return err
		}
		if e == nil {
			return expensedomain.ErrExpenseNotFound
		}
		share, err := s.repo.FindShareByID(ctx, tx, expenseID, shareID)
		if err != nil {
			return err
		}
		if share == nil {
			return expensedomain.ErrShareNotFound
		}
		if share.Settled {
			result = &expensedomain.SettleShareResult{Expense: e, Share: share, AlreadySettled: true}
			return nil
		}

		now := s.clock.Now(ctx)
		settledAt := now
		share.Settled = true
		share.SettledAt = &settledAt
		share.UpdatedAt = now
		if err := s.repo.UpdateShare(ctx, tx, share); err != nil {
			return err
		}

		result = &expensedomain.SettleShareResult{Expense: e, Share: share}

		open, err := s.repo.CountUnsettledShares(ctx, tx, expenseID)
		if err != nil {
			return err
		}
		if open > 0 {
			return nil
		}

		e.Status = expensedomain.ExpenseStatusSettled
		e.SettledAt = &settledAt
		e.UpdatedAt = now
		if err := s.repo.UpdateLifecycle(ctx, tx, e); err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Apply(ctx, tx, householdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveExpenses: -1,
		}); err != nil {
			return err
		}
		result.ExpenseSettled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.ExpenseSettled {
		s.log.Info("expense fully settled",
			zap.String("household_id", householdID.String()),
			zap.String("expense_id", expenseID.String()),
		)
	}
	return result, nil
}

func (s *service) lockHousehold(ctx context.Context, tx *gorm.DB, householdID snowflake.ID) error {
	h, err := s.householdRepo.FindByIDForUpdate(ctx, tx, householdID)
	if err != nil {
		return err
	}
	if h == nil {
		return householddomain.ErrHouseholdNotFound
	}
	if !h.Active {
		return householddomain.ErrHouseholdInactive
	}
	return nil
}

func (s *service) ensureActiveMembers(ctx context.Context, tx *gorm.DB, householdID snowflake.ID, memberIDs []snowflake.ID) error {
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

func validateShares(payerMemberID snowflake.ID, amountCents int64, shares []expensedomain.ShareInput) error {
	if amountCents <= 0 {
		return expensedomain.ErrInvalidAmount
	}
	if len(shares) == 0 {
		return expensedomain.ErrMissingShares
	}

	var sum int64
	seen := make(map[snowflake.ID]struct{}, len(shares))
	nonPayer := 0
	for _, in := range shares {
		if in.AmountCents <= 0 {
			return expensedomain.ErrInvalidAmount
		}
		if _, dup := seen[in.MemberID]; dup {
			return expensedomain.ErrDuplicateShare
		}
		seen[in.MemberID] = struct{}{}
		if in.MemberID != payerMemberID {
			nonPayer++
		}
		sum += in.AmountCents
	}
	if sum != amountCents {
		return expensedomain.ErrShareSumMismatch
	}
	if nonPayer == 0 {
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
