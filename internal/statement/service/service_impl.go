package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
	"github.com/homewardlabs/homeward/internal/clock"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	statementdomain "github.com/homewardlabs/homeward/internal/statement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "USD"

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock

	HouseholdRepo householddomain.Repository
	ExpenseRepo   expensedomain.Repository
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	householdRepo householddomain.Repository
	expenseRepo   expensedomain.Repository
}

func NewService(p ServiceParam) statementdomain.Service {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("statement.service"),
		clock:         p.Clock,
		householdRepo: p.HouseholdRepo,
		expenseRepo:   p.ExpenseRepo,
	}
}

func (s *service) Statement(ctx context.Context, householdID snowflake.ID, month string) (*statementdomain.Statement, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, statementdomain.ErrInvalidMonth
	}
	end := start.AddDate(0, 1, 0)

	h, err := s.householdRepo.FindByID(ctx, s.db, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, householddomain.ErrHouseholdNotFound
	}

	expenses, err := s.expenseRepo.ListForPeriod(ctx, s.db, householdID, start, end)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(expenses))
	for _, e := range expenses {
		ids = append(ids, e.ID)
	}
	shares, err := s.expenseRepo.ListSharesForExpenses(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	members, err := s.householdRepo.ListMembers(ctx, s.db, householdID, false)
	if err != nil {
		return nil, err
	}

	st := &statementdomain.Statement{
		HouseholdID:   householdID,
		HouseholdName: h.Name,
		Month:         month,
		PeriodStart:   start,
		PeriodEnd:     end,
		Currency:      defaultCurrency,
		ExpenseCount:  len(expenses),
		GeneratedAt:   s.clock.Now(ctx),
	}
	if len(expenses) > 0 {
		st.Currency = expenses[0].Currency
	}

	for _, e := range expenses {
		lineDate := cadence.DateOf(e.CreatedAt)
		if e.DueDate != nil {
			lineDate = *e.DueDate
		}
		st.Expenses = append(st.Expenses, statementdomain.ExpenseLine{
			ExpenseID:   e.ID,
			Date:        lineDate,
			Description: e.Description,
			Recurring:   e.Recurring(),
			Status:      e.Status,
			AmountCents: e.AmountCents,
			Currency:    e.Currency,
		})
		st.TotalCents += e.AmountCents
	}

	owed := make(map[snowflake.ID]int64)
	settled := make(map[snowflake.ID]int64)
	for _, share := range shares {
		owed[share.MemberID] += share.AmountCents
		if share.Settled {
			settled[share.MemberID] += share.AmountCents
			st.SettledCents += share.AmountCents
		}
	}
	st.OutstandingCents = st.TotalCents - st.SettledCents

	for _, m := range members {
		if owed[m.ID] == 0 {
			continue
		}
		st.Members = append(st.Members, statementdomain.MemberLine{
			MemberID:     m.ID,
			MemberName:   m.Name,
			OwedCents:    owed[m.ID],
			SettledCents: settled[m.ID],
		})
	}

	return st, nil
}

func (s *service) RenderPDF(ctx context.Context, householdID snowflake.ID, month string) ([]byte, *statementdomain.Statement, error) {
	st, err := s.Statement(ctx, householdID, month)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := renderPDF(st)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("statement rendered",
		zap.String("household_id", householdID.String()),
		zap.String("month", month),
		zap.Int("expenses", st.ExpenseCount),
		zap.Int("bytes", len(pdf)),
	)
	return pdf, st, nil
}
