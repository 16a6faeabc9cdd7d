package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	expenserepo "github.com/homewardlabs/homeward/internal/expense/repository"
	expenseservice "github.com/homewardlabs/homeward/internal/expense/service"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	householdrepo "github.com/homewardlabs/homeward/internal/household/repository"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	ledgerrepo "github.com/homewardlabs/homeward/internal/ledger/repository"
	ledgerservice "github.com/homewardlabs/homeward/internal/ledger/service"
	"github.com/homewardlabs/homeward/internal/planlimit"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	quotaservice "github.com/homewardlabs/homeward/internal/quota/service"
	statementdomain "github.com/homewardlabs/homeward/internal/statement/domain"
	statementservice "github.com/homewardlabs/homeward/internal/statement/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	expenseSvc expensedomain.Service
	svc        statementdomain.Service
	hid        snowflake.ID
	owner      snowflake.ID
	adult      snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&householddomain.Household{},
		&householddomain.Member{},
		&ledgerdomain.UsageLedger{},
		&expensedomain.Expense{},
		&expensedomain.ExpenseShare{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.SystemClock{}
	householdRepo := householdrepo.Provide()
	ledgerRepo := ledgerrepo.Provide()
	expenseRepo := expenserepo.Provide()

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:    db,
		Log:   log,
		Clock: clk,
		Repo:  ledgerRepo,
	})
	quotaSvc := quotaservice.NewService(quotaservice.ServiceParam{
		DB:            db,
		Log:           log,
		Config:        &quotadomain.Config{Enabled: true},
		Limits:        planlimit.NewRegistry(config.Config{}, log),
		HouseholdRepo: householdRepo,
		LedgerRepo:    ledgerRepo,
	})
	expenseSvc := expenseservice.NewService(expenseservice.ServiceParam{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Repo:          expenseRepo,
		HouseholdRepo: householdRepo,
		LedgerSvc:     ledgerSvc,
		QuotaSvc:      quotaSvc,
	})
	svc := statementservice.NewService(statementservice.ServiceParam{
		DB:            db,
		Log:           log,
		Clock:         clk,
		HouseholdRepo: householdRepo,
		ExpenseRepo:   expenseRepo,
	})

	f := &fixture{db: db, node: node, expenseSvc: expenseSvc, svc: svc}

	f.hid = node.Generate()
	require.NoError(t, db.Create(&householddomain.Household{
		ID:     f.hid,
		Slug:   fmt.Sprintf("home-%s", f.hid),
		Name:   "Maple Street",
		Tier:   householddomain.TierFree,
		Active: true,
	}).Error)
	f.owner = node.Generate()
	require.NoError(t, db.Create(&householddomain.Member{
		ID: f.owner, HouseholdID: f.hid, Name: "Alex", Role: householddomain.RoleOwner, Active: true,
	}).Error)
	f.adult = node.Generate()
	require.NoError(t, db.Create(&householddomain.Member{
		ID: f.adult, HouseholdID: f.hid, Name: "Sam", Role: householddomain.RoleAdult, Active: true,
	}).Error)
	return f
}

func at(y int, m time.Month, d int) context.Context {
	return clock.WithFrozen(context.Background(), time.Date(y, m, d, 12, 0, 0, 0, time.UTC))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedInstance stamps a plan-backed expense row the way the materializer
// writes them: due date set, payer share pre-settled.
func (f *fixture) seedInstance(t *testing.T, due time.Time, amount int64) {
	t.Helper()
	pid := f.node.Generate()
	eid := f.node.Generate()
	require.NoError(t, f.db.Create(&expensedomain.Expense{
		ID:            eid,
		HouseholdID:   f.hid,
		PlanID:        &pid,
		DueDate:       &due,
		PayerMemberID: f.owner,
		Description:   "Rent",
		AmountCents:   amount,
		Currency:      "USD",
		Status:        expensedomain.ExpenseStatusOpen,
		CreatedAt:     due,
		UpdatedAt:     due,
	}).Error)
	settledAt := due
	require.NoError(t, f.db.Create(&expensedomain.ExpenseShare{
		ID: f.node.Generate(), ExpenseID: eid, MemberID: f.owner,
		AmountCents: amount / 2, Settled: true, SettledAt: &settledAt,
	}).Error)
	require.NoError(t, f.db.Create(&expensedomain.ExpenseShare{
		ID: f.node.Generate(), ExpenseID: eid, MemberID: f.adult,
		AmountCents: amount / 2,
	}).Error)
}

func TestStatementAggregatesMonth(t *testing.T) {
	f := newFixture(t)

	// Plan instance due Feb 1: owner's 3000 settled, Sam's 3000 open.
	f.seedInstance(t, date(2024, time.February, 1), 6000)

	// One-off groceries in February, fully settled once Sam pays up.
	expense, shares, err := f.expenseSvc.Create(at(2024, time.February, 10), expensedomain.CreateExpenseRequest{
		HouseholdID:   f.hid,
		PayerMemberID: f.owner,
		Description:   "Groceries",
		AmountCents:   4000,
		Shares: []expensedomain.ShareInput{
			{MemberID: f.owner, AmountCents: 1000},
			{MemberID: f.adult, AmountCents: 3000},
		},
	})
	require.NoError(t, err)
	for _, share := range shares {
		if share.MemberID == f.adult {
			_, err = f.expenseSvc.SettleShare(at(2024, time.February, 12), f.hid, expense.ID, share.ID)
			require.NoError(t, err)
		}
	}

	// January noise that must stay off the February statement.
	_, _, err = f.expenseSvc.Create(at(2024, time.January, 5), expensedomain.CreateExpenseRequest{
		HouseholdID:   f.hid,
		PayerMemberID: f.owner,
		Description:   "Firewood",
		AmountCents:   2500,
		Shares: []expensedomain.ShareInput{
			{MemberID: f.owner, AmountCents: 500},
			{MemberID: f.adult, AmountCents: 2000},
		},
	})
	require.NoError(t, err)

	st, err := f.svc.Statement(context.Background(), f.hid, "2024-02")
	require.NoError(t, err)

	assert.Equal(t, "Maple Street", st.HouseholdName)
	assert.Equal(t, date(2024, time.February, 1), st.PeriodStart)
	assert.Equal(t, 2, st.ExpenseCount)
	assert.Equal(t, int64(10000), st.TotalCents)
	assert.Equal(t, int64(7000), st.SettledCents)
	assert.Equal(t, int64(3000), st.OutstandingCents)

	require.Len(t, st.Members, 2)
	byName := map[string]statementdomain.MemberLine{}
	for _, m := range st.Members {
		byName[m.MemberName] = m
	}
	assert.Equal(t, int64(4000), byName["Alex"].OwedCents)
	assert.Equal(t, int64(4000), byName["Alex"].SettledCents)
	assert.Equal(t, int64(6000), byName["Sam"].OwedCents)
	assert.Equal(t, int64(3000), byName["Sam"].SettledCents)
	assert.Equal(t, int64(3000), byName["Sam"].OutstandingCents())
}

func TestStatementEmptyMonth(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.Statement(context.Background(), f.hid, "2030-06")
	require.NoError(t, err)
	assert.Zero(t, st.ExpenseCount)
	assert.Zero(t, st.TotalCents)
	assert.Empty(t, st.Members)
}

func TestStatementValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Statement(context.Background(), f.hid, "February 2024")
	assert.ErrorIs(t, err, statementdomain.ErrInvalidMonth)

	_, err = f.svc.Statement(context.Background(), f.node.Generate(), "2024-02")
	assert.ErrorIs(t, err, householddomain.ErrHouseholdNotFound)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t)
	f.seedInstance(t, date(2024, time.February, 1), 6000)

	pdf, st, err := f.svc.RenderPDF(context.Background(), f.hid, "2024-02")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.ExpenseCount)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Greater(t, len(pdf), 1000)
}
