package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	auditrepo "github.com/homewardlabs/homeward/internal/audit/repository"
	"github.com/homewardlabs/homeward/internal/cadence"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/internal/config"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	expenserepo "github.com/homewardlabs/homeward/internal/expense/repository"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	householdrepo "github.com/homewardlabs/homeward/internal/household/repository"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	ledgerrepo "github.com/homewardlabs/homeward/internal/ledger/repository"
	ledgerservice "github.com/homewardlabs/homeward/internal/ledger/service"
	"github.com/homewardlabs/homeward/internal/planlimit"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	quotaservice "github.com/homewardlabs/homeward/internal/quota/service"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	recurringrepo "github.com/homewardlabs/homeward/internal/recurring/repository"
	recurringservice "github.com/homewardlabs/homeward/internal/recurring/service"
	"github.com/homewardlabs/homeward/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  recurringdomain.Service
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
		&auditdomain.AuditLog{},
		&scheduler.JobRun{},
	))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.SystemClock{}
	householdRepo := householdrepo.Provide()
	ledgerRepo := ledgerrepo.Provide()

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
	svc := recurringservice.NewService(recurringservice.ServiceParam{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Repo:          recurringrepo.Provide(),
		ExpenseRepo:   expenserepo.Provide(),
		HouseholdRepo: householdRepo,
		LedgerSvc:     ledgerSvc,
		QuotaSvc:      quotaSvc,
	})

	return &fixture{db: db, node: node, svc: svc}
}

func (f *fixture) newScheduler(cfg config.SchedulerConfig) *scheduler.Scheduler {
	return scheduler.New(scheduler.Param{
		DB:        f.db,
		Log:       zap.NewNop(),
		Clock:     clock.SystemClock{},
		Cfg:       config.Config{Scheduler: cfg},
		Registry:  prometheus.NewRegistry(),
		Recurring: f.svc,
		AuditRepo: auditrepo.Provide(),
	})
}

func (f *fixture) seedHousehold(t *testing.T) (snowflake.ID, snowflake.ID, snowflake.ID) {
	t.Helper()
	hid := f.node.Generate()
	require.NoError(t, f.db.Create(&householddomain.Household{
		ID:     hid,
		Slug:   fmt.Sprintf("home-%s", hid),
		Name:   "Test Home",
		Tier:   householddomain.TierPremium,
		Active: true,
	}).Error)

	owner := f.node.Generate()
	require.NoError(t, f.db.Create(&householddomain.Member{
		ID: owner, HouseholdID: hid, Name: "owner", Role: householddomain.RoleOwner, Active: true,
	}).Error)
	adult := f.node.Generate()
	require.NoError(t, f.db.Create(&householddomain.Member{
		ID: adult, HouseholdID: hid, Name: "adult", Role: householddomain.RoleAdult, Active: true,
	}).Error)
	return hid, owner, adult
}

func (f *fixture) createPlan(t *testing.T, ctx context.Context, hid, owner, adult snowflake.ID, every int, unit cadence.Unit, start time.Time) *recurringdomain.Plan {
	t.Helper()
	plan, _, err := f.svc.Create(ctx, recurringdomain.CreatePlanRequest{
		HouseholdID:   hid,
		OwnerMemberID: owner,
		Description:   "Rent",
		AmountCents:   6000,
		Every:         every,
		Unit:          unit,
		StartDate:     start,
		Shares: []expensedomain.ShareInput{
			{MemberID: owner, AmountCents: 3000},
			{MemberID: adult, AmountCents: 3000},
		},
	})
	require.NoError(t, err)
	return plan
}

func (f *fixture) reloadPlan(t *testing.T, id snowflake.ID) *recurringdomain.Plan {
	t.Helper()
	var p recurringdomain.Plan
	require.NoError(t, f.db.Where("id = ?", id).First(&p).Error)
	return &p
}

func (f *fixture) countInstances(t *testing.T, planID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&expensedomain.Expense{}).Where("plan_id = ?", planID).Count(&count).Error)
	return count
}

func at(y int, m time.Month, d int) context.Context {
	return clock.WithFrozen(context.Background(), time.Date(y, m, d, 3, 0, 0, 0, time.UTC))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunDueCyclesBackfills(t *testing.T) {
	f := newFixture(t)
	s := f.newScheduler(config.SchedulerConfig{GlobalCycleCap: 500, PerPlanCycleCap: 31})
	hid, owner, adult := f.seedHousehold(t)

	plan := f.createPlan(t, at(2024, time.January, 1), hid, owner, adult, 2, cadence.UnitWeek, date(2024, time.January, 1))

	report, err := s.RunDueCycles(at(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.PlansSeen)
	assert.Equal(t, 1, report.PlansAdvanced)
	assert.Equal(t, 0, report.PlansFailed)
	assert.Equal(t, 2, report.CyclesCreated)

	// Jan 1 came from plan creation; the pass owes Jan 15 and Jan 29 and
	// leaves the cursor on Feb 12.
	assert.Equal(t, int64(3), f.countInstances(t, plan.ID))
	assert.Equal(t, date(2024, time.February, 12), f.reloadPlan(t, plan.ID).NextDueDate)

	// Nothing is due anymore, so a second pass finds no work.
	report, err = s.RunDueCycles(at(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, report.PlansSeen)
	assert.Equal(t, int64(3), f.countInstances(t, plan.ID))

	var runs []scheduler.JobRun
	require.NoError(t, f.db.Order("started_at ASC").Find(&runs).Error)
	require.Len(t, runs, 2)
	assert.Equal(t, scheduler.JobStatusSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].Processed)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestRunDueCyclesIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	s := f.newScheduler(config.SchedulerConfig{GlobalCycleCap: 500, PerPlanCycleCap: 31})

	hid1, owner1, adult1 := f.seedHousehold(t)
	hid2, owner2, adult2 := f.seedHousehold(t)

	healthy := f.createPlan(t, at(2024, time.January, 1), hid1, owner1, adult1, 1, cadence.UnitWeek, date(2024, time.January, 1))
	broken := f.createPlan(t, at(2024, time.January, 1), hid2, owner2, adult2, 1, cadence.UnitWeek, date(2024, time.January, 1))

	// Deactivating the second household poisons its plan's advance.
	require.NoError(t, f.db.Model(&householddomain.Household{}).
		Where("id = ?", hid2).Update("active", false).Error)

	report, err := s.RunDueCycles(at(2024, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, report.PlansSeen)
	assert.Equal(t, 1, report.PlansAdvanced)
	assert.Equal(t, 1, report.PlansFailed)

	assert.Equal(t, date(2024, time.January, 22), f.reloadPlan(t, healthy.ID).NextDueDate)
	assert.Equal(t, date(2024, time.January, 8), f.reloadPlan(t, broken.ID).NextDueDate)
	assert.Equal(t, int64(1), f.countInstances(t, broken.ID))

	var run scheduler.JobRun
	require.NoError(t, f.db.First(&run).Error)
	assert.Equal(t, scheduler.JobStatusFailed, run.Status)
	assert.Equal(t, 1, run.Failed)
	assert.NotEmpty(t, run.LastError)
}

func TestRunDueCyclesHonorsPerPlanCap(t *testing.T) {
	f := newFixture(t)
	s := f.newScheduler(config.SchedulerConfig{GlobalCycleCap: 500, PerPlanCycleCap: 5})
	hid, owner, adult := f.seedHousehold(t)

	plan := f.createPlan(t, at(2024, time.January, 1), hid, owner, adult, 1, cadence.UnitDay, date(2024, time.January, 1))

	report, err := s.RunDueCycles(at(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, report.CyclesCreated)

	// Creation covered Jan 1; the capped pass added Jan 2 through Jan 6.
	assert.Equal(t, int64(6), f.countInstances(t, plan.ID))
	assert.Equal(t, date(2024, time.January, 7), f.reloadPlan(t, plan.ID).NextDueDate)

	// The next pass picks up where the cap stopped.
	report, err = s.RunDueCycles(at(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, report.CyclesCreated)
	assert.Equal(t, int64(11), f.countInstances(t, plan.ID))
}

func TestRunDueCyclesHonorsGlobalCap(t *testing.T) {
	f := newFixture(t)
	s := f.newScheduler(config.SchedulerConfig{GlobalCycleCap: 3, PerPlanCycleCap: 31})
	hid, owner, adult := f.seedHousehold(t)

	plan := f.createPlan(t, at(2024, time.January, 1), hid, owner, adult, 1, cadence.UnitDay, date(2024, time.January, 1))

	report, err := s.RunDueCycles(at(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, report.CyclesCreated)
	assert.Equal(t, int64(4), f.countInstances(t, plan.ID))
	assert.Equal(t, date(2024, time.January, 5), f.reloadPlan(t, plan.ID).NextDueDate)
}

func TestPruneJobHistory(t *testing.T) {
	f := newFixture(t)
	s := f.newScheduler(config.SchedulerConfig{RetentionDays: 90, JobRunRetention: 30})

	now := time.Date(2024, time.June, 1, 3, 0, 0, 0, time.UTC)
	ctx := clock.WithFrozen(context.Background(), now)

	require.NoError(t, f.db.Create(&scheduler.JobRun{
		ID: "01OLDRUN00000000000000RUN1", JobName: "due_cycles",
		Status: scheduler.JobStatusSucceeded, StartedAt: now.AddDate(0, 0, -100),
	}).Error)
	require.NoError(t, f.db.Create(&scheduler.JobRun{
		ID: "01NEWRUN00000000000000RUN2", JobName: "due_cycles",
		Status: scheduler.JobStatusSucceeded, StartedAt: now.AddDate(0, 0, -1),
	}).Error)

	require.NoError(t, f.db.Create(&auditdomain.AuditLog{
		ID: f.node.Generate(), ActorType: "system", Action: "stale.entry",
		CreatedAt: now.AddDate(0, 0, -120),
	}).Error)
	require.NoError(t, f.db.Create(&auditdomain.AuditLog{
		ID: f.node.Generate(), ActorType: "system", Action: "fresh.entry",
		CreatedAt: now.AddDate(0, 0, -5),
	}).Error)

	require.NoError(t, s.PruneJobHistory(ctx))

	var runs []scheduler.JobRun
	require.NoError(t, f.db.Find(&runs).Error)
	// The stale run is gone; the recent one and the prune's own run stay.
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.NotEqual(t, "01OLDRUN00000000000000RUN1", run.ID)
	}

	var entries []auditdomain.AuditLog
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh.entry", entries[0].Action)
}
