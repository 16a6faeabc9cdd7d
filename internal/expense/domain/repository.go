package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListExpenseFilter struct {
	Status  ExpenseStatus
	PlanID  snowflake.ID
	DueFrom *time.Time
	DueTo   *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, e *Expense) error
	// InsertInstance writes a plan-backed instance, skipping the write
	// when its (plan_id, due_date) pair already exists. The flag reports
	// whether a row was created. Skipping instead of erroring keeps the
	// enclosing transaction usable on every dialect.
	InsertInstance(ctx context.Context, db *gorm.DB, e *Expense) (bool, error)
	InsertShares(ctx context.Context, db *gorm.DB, shares []ExpenseShare) error
	UpdateLifecycle(ctx context.Context, db *gorm.DB, e *Expense) error
	UpdateShare(ctx context.Context, db *gorm.DB, share *ExpenseShare) error

	FindByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Expense, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Expense, error)
	FindByPlanDue(ctx context.Context, db *gorm.DB, planID snowflake.ID, dueDate time.Time) (*Expense, error)
	FindShareByID(ctx context.Context, db *gorm.DB, expenseID, shareID snowflake.ID) (*ExpenseShare, error)

	List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, filter ListExpenseFilter, page pagination.Pagination) ([]*Expense, error)
	// ListForPeriod selects the household's expenses falling in [from, to):
	// plan instances by due date, one-off expenses by creation date.
	ListForPeriod(ctx context.Context, db *gorm.DB, householdID snowflake.ID, from, to time.Time) ([]*Expense, error)
	ListShares(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) ([]ExpenseShare, error)
	ListSharesForExpenses(ctx context.Context, db *gorm.DB, expenseIDs []snowflake.ID) ([]ExpenseShare, error)
	CountUnsettledShares(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) (int64, error)
}
