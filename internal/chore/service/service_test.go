package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/homewardlabs/homeward/internal/cadence"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	chorerepo "github.com/homewardlabs/homeward/internal/chore/repository"
	choreservice "github.com/homewardlabs/homeward/internal/chore/service"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	householdrepo "github.com/homewardlabs/homeward/internal/household/repository"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	ledgerrepo "github.com/homewardlabs/homeward/internal/ledger/repository"
	ledgerservice "github.com/homewardlabs/homeward/internal/ledger/service"
	"github.com/homewardlabs/homeward/internal/planlimit"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	quotaservice "github.com/homewardlabs/homeward/internal/quota/service"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   choredomain.Service
	hid   snowflake.ID
	owner snowflake.ID
	adult snowflake.ID
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
		&choredomain.Chore{},
		&choredomain.ChorePhoto{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	log := zap.NewNop()
	householdRepo := householdrepo.Provide()
	ledgerRepo := ledgerrepo.Provide()

	// SystemClock reads the frozen time each test pins on its context, so
	// a single fixture can create in January and complete in March.
	clk := clock.SystemClock{}

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
	svc := choreservice.NewService(choreservice.ServiceParam{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Repo:          chorerepo.Provide(),
		HouseholdRepo: householdRepo,
		LedgerSvc:     ledgerSvc,
		QuotaSvc:      quotaSvc,
	})

	f := &fixture{db: db, node: node, svc: svc}
	f.hid = f.seedHousehold(t, householddomain.TierFree, true)
	f.owner = f.seedMember(t, f.hid, householddomain.RoleOwner, true)
	f.adult = f.seedMember(t, f.hid, householddomain.RoleAdult, true)
	return f
}

func (f *fixture) seedHousehold(t *testing.T, tier householddomain.Tier, active bool) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&householddomain.Household{
		ID:     id,
		Slug:   fmt.Sprintf("home-%s", id),
		Name:   "Test Home",
		Tier:   tier,
		Active: active,
	}).Error)
	return id
}

func (f *fixture) seedMember(t *testing.T, hid snowflake.ID, role householddomain.MemberRole, active bool) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&householddomain.Member{
		ID:          id,
		HouseholdID: hid,
		Name:        fmt.Sprintf("member-%s", id),
		Role:        role,
		Active:      active,
	}).Error)
	return id
}

func (f *fixture) seedLedger(t *testing.T, metric ledgerdomain.Metric, used int64) {
	t.Helper()
	row := &ledgerdomain.UsageLedger{HouseholdID: f.hid}
	row.Add(metric, used)
	require.NoError(t, f.db.Create(row).Error)
}

func (f *fixture) activeChores(t *testing.T) int64 {
	t.Helper()
	var row ledgerdomain.UsageLedger
	require.NoError(t, f.db.Where("household_id = ?", f.hid).Limit(1).Find(&row).Error)
	return row.ActiveChores
}

func (f *fixture) chorePhotos(t *testing.T) int64 {
	t.Helper()
	var row ledgerdomain.UsageLedger
	require.NoError(t, f.db.Where("household_id = ?", f.hid).Limit(1).Find(&row).Error)
	return row.ChorePhotos
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *choredomain.Chore {
	t.Helper()
	var c choredomain.Chore
	require.NoError(t, f.db.Where("id = ?", id).First(&c).Error)
	return &c
}

// at pins the clock to a calendar date for one call.
func at(y int, m time.Month, d int) context.Context {
	return clock.WithFrozen(context.Background(), time.Date(y, m, d, 9, 0, 0, 0, time.UTC))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateDraftHoldsNoSlot(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(at(2024, time.January, 10), choredomain.CreateChoreRequest{
		HouseholdID:      f.hid,
		AssigneeMemberID: &f.adult,
		Title:            "  Take out trash  ",
		Every:            1,
		Unit:             cadence.UnitWeek,
		StartDate:        date(2024, time.January, 15),
	})
	require.NoError(t, err)

	assert.Equal(t, choredomain.ChoreStatusDraft, c.Status)
	assert.Equal(t, "Take out trash", c.Title)
	assert.True(t, c.Recurring())
	assert.Equal(t, date(2024, time.January, 15), c.StartDate)
	assert.Equal(t, date(2024, time.January, 15), c.NextDueDate)
	assert.Equal(t, int64(0), f.activeChores(t))
}

func TestCreateOneOffDefaultsStartToToday(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(at(2024, time.March, 3), choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "Fix the gate",
	})
	require.NoError(t, err)

	assert.False(t, c.Recurring())
	assert.Empty(t, string(c.Unit))
	assert.Equal(t, date(2024, time.March, 3), c.StartDate)
	assert.Equal(t, date(2024, time.March, 3), c.NextDueDate)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	stranger := f.node.Generate()
	retired := f.seedMember(t, f.hid, householddomain.RoleAdult, false)

	base := func() choredomain.CreateChoreRequest {
		return choredomain.CreateChoreRequest{
			HouseholdID: f.hid,
			Title:       "Dishes",
			Every:       1,
			Unit:        cadence.UnitDay,
			StartDate:   date(2024, time.January, 1),
		}
	}

	cases := []struct {
		name    string
		mutate  func(*choredomain.CreateChoreRequest)
		wantErr error
	}{
		{"blank title", func(r *choredomain.CreateChoreRequest) { r.Title = "   " }, choredomain.ErrTitleRequired},
		{"negative interval", func(r *choredomain.CreateChoreRequest) { r.Every = -1 }, choredomain.ErrInvalidInterval},
		{"unknown unit", func(r *choredomain.CreateChoreRequest) { r.Unit = "fortnight" }, choredomain.ErrInvalidUnit},
		{"unknown assignee", func(r *choredomain.CreateChoreRequest) { r.AssigneeMemberID = &stranger }, householddomain.ErrMemberNotFound},
		{"inactive assignee", func(r *choredomain.CreateChoreRequest) { r.AssigneeMemberID = &retired }, householddomain.ErrMemberInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base()
			tc.mutate(&req)
			_, err := f.svc.Create(at(2024, time.January, 1), req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&choredomain.Chore{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestActivateTakesOneSlot(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.January, 10)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "Water plants",
		Every:       3,
		Unit:        cadence.UnitDay,
		StartDate:   date(2024, time.January, 10),
	})
	require.NoError(t, err)

	activated, err := f.svc.Activate(ctx, f.hid, c.ID)
	require.NoError(t, err)
	assert.Equal(t, choredomain.ChoreStatusActive, activated.Status)
	assert.Equal(t, int64(1), f.activeChores(t))

	// Only drafts activate; a second call must not take another slot.
	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	assert.ErrorIs(t, err, choredomain.ErrChoreNotDraft)
	assert.Equal(t, int64(1), f.activeChores(t))
}

func TestActivateRejectedOverQuota(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.January, 10)

	// Free tier caps active_chores at 50.
	f.seedLedger(t, ledgerdomain.MetricActiveChores, 50)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "One too many",
	})
	require.NoError(t, err)

	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	assert.ErrorIs(t, err, quotadomain.ErrQuotaExceeded)

	assert.Equal(t, choredomain.ChoreStatusDraft, f.reload(t, c.ID).Status)
	assert.Equal(t, int64(50), f.activeChores(t))
}

func TestCompleteAdvancesMonthEndCursor(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(at(2024, time.January, 31), choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "Pay allowances",
		Every:       1,
		Unit:        cadence.UnitMonth,
		StartDate:   date(2024, time.January, 31),
	})
	require.NoError(t, err)
	_, err = f.svc.Activate(at(2024, time.January, 31), f.hid, c.ID)
	require.NoError(t, err)

	// The cursor sits at Jan 31 and today is Mar 15. The grid runs
	// Jan 31, Feb 29, Mar 31: two steps, landing back on the 31st.
	res, err := f.svc.Complete(at(2024, time.March, 15), f.hid, c.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCurrent)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, date(2024, time.March, 31), res.Cursor)
	assert.Equal(t, date(2024, time.March, 31), f.reload(t, c.ID).NextDueDate)

	// Completing a recurring chore keeps its slot.
	assert.Equal(t, int64(1), f.activeChores(t))
}

func TestCompleteAlreadyCurrentKeepsCursor(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.February, 5)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "Vacuum",
		Every:       2,
		Unit:        cadence.UnitWeek,
		StartDate:   date(2024, time.February, 5),
	})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	require.NoError(t, err)

	first, err := f.svc.Complete(ctx, f.hid, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Steps)
	assert.Equal(t, date(2024, time.February, 19), first.Cursor)

	// The cursor is already past today, so a repeat completion moves
	// nothing and says so.
	again, err := f.svc.Complete(ctx, f.hid, c.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCurrent)
	assert.Zero(t, again.Steps)
	assert.Equal(t, date(2024, time.February, 19), again.Cursor)
	assert.Equal(t, date(2024, time.February, 19), f.reload(t, c.ID).NextDueDate)

	// Completing on a due day steps over it; the cursor only ever moves
	// forward and always lands strictly past today.
	later, err := f.svc.Complete(at(2024, time.March, 4), f.hid, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, later.Steps)
	assert.Equal(t, date(2024, time.March, 18), later.Cursor)
	assert.True(t, later.Cursor.After(first.Cursor))
}

func TestCompleteOneOffIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.April, 2)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "Assemble shelf",
	})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.activeChores(t))

	res, err := f.svc.Complete(ctx, f.hid, c.ID)
	require.NoError(t, err)
	assert.Equal(t, choredomain.ChoreStatusCompleted, res.Chore.Status)
	require.NotNil(t, res.Chore.CompletedAt)
	assert.Equal(t, int64(0), f.activeChores(t))

	// Completion is terminal; the slot releases exactly once.
	_, err = f.svc.Complete(ctx, f.hid, c.ID)
	assert.ErrorIs(t, err, choredomain.ErrChoreNotActive)
	_, err = f.svc.Cancel(ctx, f.hid, c.ID)
	assert.ErrorIs(t, err, choredomain.ErrChoreNotActive)
	assert.Equal(t, int64(0), f.activeChores(t))
}

func TestCompleteRequiresActive(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.April, 2)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{
		HouseholdID: f.hid,
		Title:       "Still a draft",
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, f.hid, c.ID)
	assert.ErrorIs(t, err, choredomain.ErrChoreNotActive)

	_, err = f.svc.Complete(ctx, f.hid, f.node.Generate())
	assert.ErrorIs(t, err, choredomain.ErrChoreNotFound)
}

func TestCancelReleasesActiveSlotOnly(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.May, 1)

	draft, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "Draft chore"})
	require.NoError(t, err)
	active, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "Active chore"})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.hid, active.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.activeChores(t))

	// A draft never held a slot, so cancelling it leaves the ledger alone.
	cancelled, err := f.svc.Cancel(ctx, f.hid, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, choredomain.ChoreStatusCancelled, cancelled.Status)
	assert.Equal(t, int64(1), f.activeChores(t))

	cancelled, err = f.svc.Cancel(ctx, f.hid, active.ID)
	require.NoError(t, err)
	assert.Equal(t, choredomain.ChoreStatusCancelled, cancelled.Status)
	assert.Equal(t, int64(0), f.activeChores(t))

	_, err = f.svc.Cancel(ctx, f.hid, active.ID)
	assert.ErrorIs(t, err, choredomain.ErrChoreNotActive)
	assert.Equal(t, int64(0), f.activeChores(t))
}

func TestAttachPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.June, 10)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "Clean garage"})
	require.NoError(t, err)

	// Drafts have nothing to document yet.
	_, err = f.svc.AttachPhoto(ctx, choredomain.AttachPhotoRequest{
		HouseholdID: f.hid, ChoreID: c.ID, MemberID: f.adult, URL: "https://img.test/1.jpg",
	})
	assert.ErrorIs(t, err, choredomain.ErrChoreNotActive)

	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	require.NoError(t, err)

	_, err = f.svc.AttachPhoto(ctx, choredomain.AttachPhotoRequest{
		HouseholdID: f.hid, ChoreID: c.ID, MemberID: f.adult, URL: "   ",
	})
	assert.ErrorIs(t, err, choredomain.ErrPhotoURLMissing)

	photo, err := f.svc.AttachPhoto(ctx, choredomain.AttachPhotoRequest{
		HouseholdID: f.hid, ChoreID: c.ID, MemberID: f.adult,
		URL: "https://img.test/1.jpg", Caption: "before",
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, photo.ChoreID)
	assert.Equal(t, int64(1), f.chorePhotos(t))

	_, photos, err := f.svc.Get(ctx, f.hid, c.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "before", photos[0].Caption)
}

func TestAttachPhotoRejectedOverQuota(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.June, 10)

	// Free tier caps chore_photos at 100.
	f.seedLedger(t, ledgerdomain.MetricChorePhotos, 100)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "Clean garage"})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	require.NoError(t, err)

	_, err = f.svc.AttachPhoto(ctx, choredomain.AttachPhotoRequest{
		HouseholdID: f.hid, ChoreID: c.ID, MemberID: f.adult, URL: "https://img.test/1.jpg",
	})
	assert.ErrorIs(t, err, quotadomain.ErrQuotaExceeded)
	assert.Equal(t, int64(100), f.chorePhotos(t))
}

func TestRemovePhotoReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.June, 10)

	c, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "Clean garage"})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.hid, c.ID)
	require.NoError(t, err)

	photo, err := f.svc.AttachPhoto(ctx, choredomain.AttachPhotoRequest{
		HouseholdID: f.hid, ChoreID: c.ID, MemberID: f.adult, URL: "https://img.test/1.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), f.chorePhotos(t))

	require.NoError(t, f.svc.RemovePhoto(ctx, f.hid, c.ID, photo.ID))
	assert.Equal(t, int64(0), f.chorePhotos(t))

	err = f.svc.RemovePhoto(ctx, f.hid, c.ID, photo.ID)
	assert.ErrorIs(t, err, choredomain.ErrPhotoNotFound)
	assert.Equal(t, int64(0), f.chorePhotos(t))
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := at(2024, time.July, 1)

	first, err := f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "First"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, choredomain.CreateChoreRequest{HouseholdID: f.hid, Title: "Second"})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, f.hid, first.ID)
	require.NoError(t, err)

	active, info, err := f.svc.List(ctx, f.hid, choredomain.ListChoreFilter{
		Status: choredomain.ChoreStatusActive,
	}, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)
	assert.False(t, info.HasMore)

	all, _, err := f.svc.List(ctx, f.hid, choredomain.ListChoreFilter{}, pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
