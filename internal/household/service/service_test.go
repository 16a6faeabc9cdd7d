package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	expenserepo "github.com/homewardlabs/homeward/internal/expense/repository"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	householdrepo "github.com/homewardlabs/homeward/internal/household/repository"
	householdservice "github.com/homewardlabs/homeward/internal/household/service"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	ledgerrepo "github.com/homewardlabs/homeward/internal/ledger/repository"
	ledgerservice "github.com/homewardlabs/homeward/internal/ledger/service"
	"github.com/homewardlabs/homeward/internal/planlimit"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	quotaservice "github.com/homewardlabs/homeward/internal/quota/service"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	recurringrepo "github.com/homewardlabs/homeward/internal/recurring/repository"
	recurringservice "github.com/homewardlabs/homeward/internal/recurring/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	svc householddomain.Service
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
		&recurringdomain.Plan{},
		&recurringdomain.PlanShare{},
		&expensedomain.Expense{},
		&expensedomain.ExpenseShare{},
	))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	fixed := clock.Fixed{T: time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)}
	log := zap.NewNop()
	householdRepo := householdrepo.Provide()
	ledgerRepo := ledgerrepo.Provide()

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:    db,
		Log:   log,
		Clock: fixed,
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
	recurringSvc := recurringservice.NewService(recurringservice.ServiceParam{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         fixed,
		Repo:          recurringrepo.Provide(),
		ExpenseRepo:   expenserepo.Provide(),
		HouseholdRepo: householdRepo,
		LedgerSvc:     ledgerSvc,
		QuotaSvc:      quotaSvc,
	})
	svc := householdservice.NewService(householdservice.ServiceParam{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        fixed,
		Repo:         householdRepo,
		LedgerSvc:    ledgerSvc,
		QuotaSvc:     quotaSvc,
		RecurringSvc: recurringSvc,
	})

	return &fixture{db: db, svc: svc}
}

func (f *fixture) create(t *testing.T, name string) (*householddomain.Household, *householddomain.Member) {
	t.Helper()
	h, owner, err := f.svc.Create(context.Background(), householddomain.CreateHouseholdRequest{
		Name:      name,
		OwnerName: "Pat",
	})
	require.NoError(t, err)
	return h, owner
}

func (f *fixture) activeMembers(t *testing.T, hid snowflake.ID) int64 {
	t.Helper()
	var row ledgerdomain.UsageLedger
	require.NoError(t, f.db.Where("household_id = ?", hid).Limit(1).Find(&row).Error)
	return row.ActiveMembers
}

func TestCreateSeedsOwnerSeat(t *testing.T) {
	f := newFixture(t)

	h, owner := f.create(t, "The Nest")

	// An omitted tier lands on free.
	assert.Equal(t, householddomain.TierFree, h.Tier)
	assert.True(t, h.Active)
	assert.Equal(t, "the-nest", h.Slug)

	assert.Equal(t, h.ID, owner.HouseholdID)
	assert.Equal(t, householddomain.RoleOwner, owner.Role)
	assert.True(t, owner.Active)

	// The owner seat is counted but never quota-checked.
	assert.Equal(t, int64(1), f.activeMembers(t, h.ID))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, householddomain.CreateHouseholdRequest{Name: "  ", OwnerName: "Pat"})
	assert.ErrorIs(t, err, householddomain.ErrNameRequired)

	_, _, err = f.svc.Create(ctx, householddomain.CreateHouseholdRequest{Name: "Nest", OwnerName: ""})
	assert.ErrorIs(t, err, householddomain.ErrNameRequired)

	_, _, err = f.svc.Create(ctx, householddomain.CreateHouseholdRequest{
		Name:      "Nest",
		OwnerName: "Pat",
		Tier:      householddomain.Tier("platinum"),
	})
	assert.ErrorIs(t, err, householddomain.ErrInvalidTier)
}

func TestCreateSlugDedupes(t *testing.T) {
	f := newFixture(t)

	first, _ := f.create(t, "The Nest")
	second, _ := f.create(t, "The Nest")

	assert.Equal(t, "the-nest", first.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "the-nest-"))
	assert.NotEqual(t, first.Slug, second.Slug)

	// A name with nothing sluggable falls back to a stable base.
	fallback, _ := f.create(t, "!!!")
	assert.Equal(t, "household", fallback.Slug)
}

func TestAddMemberSeatCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.create(t, "Nest")

	// Free tier caps active_members at 8; the owner already holds one seat.
	for i := 0; i < 7; i++ {
		m, err := f.svc.AddMember(ctx, householddomain.AddMemberRequest{
			HouseholdID: h.ID,
			Name:        fmt.Sprintf("Adult %d", i),
		})
		require.NoError(t, err)
		assert.Equal(t, householddomain.RoleAdult, m.Role)
	}
	require.Equal(t, int64(8), f.activeMembers(t, h.ID))

	_, err := f.svc.AddMember(ctx, householddomain.AddMemberRequest{
		HouseholdID: h.ID,
		Name:        "One Too Many",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, quotadomain.ErrQuotaExceeded)

	var qerr *quotadomain.QuotaError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, ledgerdomain.MetricActiveMembers, qerr.Metric)
	assert.Equal(t, int64(8), qerr.Current)
	assert.Equal(t, int64(8), qerr.Limit)
	assert.Equal(t, int64(9), qerr.Projected)

	assert.Equal(t, int64(8), f.activeMembers(t, h.ID))
}

func TestAddMemberInactiveHousehold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.create(t, "Nest")

	_, err := f.svc.SetActive(ctx, h.ID, false)
	require.NoError(t, err)

	_, err = f.svc.AddMember(ctx, householddomain.AddMemberRequest{
		HouseholdID: h.ID,
		Name:        "Late Arrival",
	})
	assert.ErrorIs(t, err, householddomain.ErrHouseholdInactive)
}

func TestSetActiveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.create(t, "Nest")

	frozen, err := f.svc.SetActive(ctx, h.ID, false)
	require.NoError(t, err)
	assert.False(t, frozen.Active)

	// Replaying the same flag is a no-op, not an error.
	frozen, err = f.svc.SetActive(ctx, h.ID, false)
	require.NoError(t, err)
	assert.False(t, frozen.Active)

	thawed, err := f.svc.SetActive(ctx, h.ID, true)
	require.NoError(t, err)
	assert.True(t, thawed.Active)
}

func TestChangeTierKeepsOverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, _ := f.create(t, "Nest")

	_, err := f.svc.ChangeTier(ctx, h.ID, householddomain.TierPlus)
	require.NoError(t, err)

	// Grow to nine seats on plus, one past the free ceiling of eight.
	for i := 0; i < 8; i++ {
		_, err := f.svc.AddMember(ctx, householddomain.AddMemberRequest{
			HouseholdID: h.ID,
			Name:        fmt.Sprintf("Adult %d", i),
		})
		require.NoError(t, err)
	}
	require.Equal(t, int64(9), f.activeMembers(t, h.ID))

	// Downgrading keeps the overage; only new growth is refused.
	downgraded, err := f.svc.ChangeTier(ctx, h.ID, householddomain.TierFree)
	require.NoError(t, err)
	assert.Equal(t, householddomain.TierFree, downgraded.Tier)

	_, err = f.svc.AddMember(ctx, householddomain.AddMemberRequest{
		HouseholdID: h.ID,
		Name:        "Tenth",
	})
	require.Error(t, err)

	var qerr *quotadomain.QuotaError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, int64(9), qerr.Current)
	assert.Equal(t, int64(8), qerr.Limit)
	assert.Equal(t, int64(10), qerr.Projected)
}

func TestRemoveMemberGuardsAndReleasesSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, owner := f.create(t, "Nest")

	adult, err := f.svc.AddMember(ctx, householddomain.AddMemberRequest{
		HouseholdID: h.ID,
		Name:        "Alex",
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), f.activeMembers(t, h.ID))

	_, err = f.svc.RemoveMember(ctx, h.ID, owner.ID)
	assert.ErrorIs(t, err, householddomain.ErrCannotRemoveOwner)

	_, err = f.svc.RemoveMember(ctx, h.ID, adult.ID+1)
	assert.ErrorIs(t, err, householddomain.ErrMemberNotFound)

	result, err := f.svc.RemoveMember(ctx, h.ID, adult.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyRemoved)
	assert.False(t, result.Member.Active)
	assert.NotNil(t, result.Member.RemovedAt)
	assert.Empty(t, result.TerminatedPlans)
	assert.Equal(t, int64(1), f.activeMembers(t, h.ID))

	// Replay reports the prior removal and releases nothing twice.
	replay, err := f.svc.RemoveMember(ctx, h.ID, adult.ID)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyRemoved)
	assert.Equal(t, int64(1), f.activeMembers(t, h.ID))

	members, err := f.svc.ListMembers(ctx, h.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
