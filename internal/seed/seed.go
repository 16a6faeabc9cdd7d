// Package seed writes a small demo dataset for local development: one
// premium household with members, a recurring rent plan, an active chore
// and an open grocery expense. Every helper is idempotent on a natural
// key so repeated runs converge.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/homewardlabs/homeward/internal/cadence"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"gorm.io/gorm"
)

const (
	demoHouseholdName = "The Harbor"
	demoOwnerName     = "Alex"
	demoAdultName     = "Sam"
	demoKidName       = "Riley"
)

// EnsureDemoHousehold seeds the demo household. Rows are written directly
// so the dataset lands in one transaction; the ledger is set to match what
// the services would have counted for the same rows.
func EnsureDemoHousehold(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		household, created, err := ensureHousehold(ctx, tx, node)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		owner, err := ensureMember(ctx, tx, node, household.ID, demoOwnerName, householddomain.RoleOwner)
		if err != nil {
			return err
		}
		adult, err := ensureMember(ctx, tx, node, household.ID, demoAdultName, householddomain.RoleAdult)
		if err != nil {
			return err
		}
		kid, err := ensureMember(ctx, tx, node, household.ID, demoKidName, householddomain.RoleKid)
		if err != nil {
			return err
		}

		if err := ensureRentPlan(ctx, tx, node, household.ID, owner.ID, adult.ID); err != nil {
			return err
		}
		if err := ensureDishesChore(ctx, tx, node, household.ID, kid.ID); err != nil {
			return err
		}
		if err := ensureGroceryExpense(ctx, tx, node, household.ID, adult.ID, owner.ID); err != nil {
			return err
		}

		// Three active members, one active chore, and two open expenses
		// (the rent cycle and the groceries).
		ledger := ledgerdomain.UsageLedger{
			HouseholdID:    household.ID,
			ActiveChores:   1,
			ActiveMembers:  3,
			ActiveExpenses: 2,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&ledger).Error
	})
}

func ensureHousehold(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*householddomain.Household, bool, error) {
	demoSlug := slug.Make(demoHouseholdName)

	var existing householddomain.Household
	err := tx.WithContext(ctx).Where("slug = ?", demoSlug).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	household := householddomain.Household{
		ID:        node.Generate(),
		Slug:      demoSlug,
		Name:      demoHouseholdName,
		Tier:      householddomain.TierPremium,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&household).Error; err != nil {
		return nil, false, err
	}
	return &household, true, nil
}

func ensureMember(ctx context.Context, tx *gorm.DB, node *snowflake.Node, householdID snowflake.ID, name string, role householddomain.MemberRole) (*householddomain.Member, error) {
	var existing householddomain.Member
	err := tx.WithContext(ctx).
		Where("household_id = ? AND name = ?", householdID, name).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	member := householddomain.Member{
		ID:          node.Generate(),
		HouseholdID: householdID,
		Name:        name,
		Role:        role,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func ensureRentPlan(ctx context.Context, tx *gorm.DB, node *snowflake.Node, householdID, ownerID, adultID snowflake.ID) error {
	now := time.Now().UTC()
	start := cadence.DateOf(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))

	plan := recurringdomain.Plan{
		ID:            node.Generate(),
		HouseholdID:   householdID,
		OwnerMemberID: ownerID,
		Description:   "Rent",
		AmountCents:   180000,
		Currency:      "USD",
		Every:         1,
		Unit:          cadence.UnitMonth,
		StartDate:     start,
		NextDueDate:   cadence.Next(start, 1, cadence.UnitMonth, 1),
		Status:        recurringdomain.PlanStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
		return err
	}

	shares := []recurringdomain.PlanShare{
		{ID: node.Generate(), PlanID: plan.ID, MemberID: ownerID, AmountCents: 90000, CreatedAt: now},
		{ID: node.Generate(), PlanID: plan.ID, MemberID: adultID, AmountCents: 90000, CreatedAt: now},
	}
	if err := tx.WithContext(ctx).Create(&shares).Error; err != nil {
		return err
	}

	// First cycle, materialized at the start date. The owner share starts
	// settled, the adult share stays owed.
	due := start
	cycle := expensedomain.Expense{
		ID:            node.Generate(),
		HouseholdID:   householdID,
		PlanID:        &plan.ID,
		DueDate:       &due,
		PayerMemberID: ownerID,
		Description:   "Rent",
		AmountCents:   180000,
		Currency:      "USD",
		Status:        expensedomain.ExpenseStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&cycle).Error; err != nil {
		return err
	}

	settledAt := now
	cycleShares := []expensedomain.ExpenseShare{
		{ID: node.Generate(), ExpenseID: cycle.ID, MemberID: ownerID, AmountCents: 90000, Settled: true, SettledAt: &settledAt, CreatedAt: now, UpdatedAt: now},
		{ID: node.Generate(), ExpenseID: cycle.ID, MemberID: adultID, AmountCents: 90000, CreatedAt: now, UpdatedAt: now},
	}
	return tx.WithContext(ctx).Create(&cycleShares).Error
}

func ensureDishesChore(ctx context.Context, tx *gorm.DB, node *snowflake.Node, householdID, assigneeID snowflake.ID) error {
	now := time.Now().UTC()
	today := cadence.DateOf(now)

	chore := choredomain.Chore{
		ID:               node.Generate(),
		HouseholdID:      householdID,
		AssigneeMemberID: &assigneeID,
		Title:            "Do the dishes",
		Notes:            "Load and run the dishwasher after dinner.",
		Every:            1,
		Unit:             cadence.UnitDay,
		StartDate:        today,
		NextDueDate:      today,
		Status:           choredomain.ChoreStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return tx.WithContext(ctx).Create(&chore).Error
}

func ensureGroceryExpense(ctx context.Context, tx *gorm.DB, node *snowflake.Node, householdID, payerID, otherID snowflake.ID) error {
	now := time.Now().UTC()

	expense := expensedomain.Expense{
		ID:            node.Generate(),
		HouseholdID:   householdID,
		PayerMemberID: payerID,
		Description:   "Groceries",
		AmountCents:   8450,
		Currency:      "USD",
		Status:        expensedomain.ExpenseStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&expense).Error; err != nil {
		return err
	}

	settledAt := now
	shares := []expensedomain.ExpenseShare{
		{ID: node.Generate(), ExpenseID: expense.ID, MemberID: payerID, AmountCents: 4225, Settled: true, SettledAt: &settledAt, CreatedAt: now, UpdatedAt: now},
		{ID: node.Generate(), ExpenseID: expense.ID, MemberID: otherID, AmountCents: 4225, CreatedAt: now, UpdatedAt: now},
	}
	return tx.WithContext(ctx).Create(&shares).Error
}
