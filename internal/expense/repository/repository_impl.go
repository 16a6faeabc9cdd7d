package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	"github.com/homewardlabs/homeward/pkg/db/option"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() expensedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *expensedomain.Expense) error {
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) InsertInstance(ctx context.Context, db *gorm.DB, e *expensedomain.Expense) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertShares(ctx context.Context, db *gorm.DB, shares []expensedomain.ExpenseShare) error {
	if len(shares) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&shares).Error
}

func (r *repo) UpdateLifecycle(ctx context.Context, db *gorm.DB, e *expensedomain.Expense) error {
	return db.WithContext(ctx).Exec(
		`UPDATE expenses SET status = ?, settled_at = ?, updated_at = ? WHERE id = ?`,
		e.Status,
		e.SettledAt,
		e.UpdatedAt,
		e.ID,
	).Error
}

func (r *repo) UpdateShare(ctx context.Context, db *gorm.DB, share *expensedomain.ExpenseShare) error {
	return db.WithContext(ctx).Exec(
		`UPDATE expense_shares SET settled = ?, settled_at = ?, updated_at = ? WHERE id = ?`,
		share.Settled,
		share.SettledAt,
		share.UpdatedAt,
		share.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*expensedomain.Expense, error) {
	var e expensedomain.Expense
	err := db.WithContext(ctx).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*expensedomain.Expense, error) {
	var e expensedomain.Expense
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (r *repo) FindByPlanDue(ctx context.Context, db *gorm.DB, planID snowflake.ID, dueDate time.Time) (*expensedomain.Expense, error) {
	var e expensedomain.Expense
	err := db.WithContext(ctx).
		Where("plan_id = ? AND due_date = ?", planID, dueDate).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (r *repo) FindShareByID(ctx context.Context, db *gorm.DB, expenseID, shareID snowflake.ID) (*expensedomain.ExpenseShare, error) {
	var share expensedomain.ExpenseShare
	err := db.WithContext(ctx).
		Where("expense_id = ? AND id = ?", expenseID, shareID).
		Limit(1).
		Find(&share).Error
	if err != nil {
		return nil, err
	}
	if share.ID == 0 {
		return nil, nil
	}
	return &share, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, filter expensedomain.ListExpenseFilter, page pagination.Pagination) ([]*expensedomain.Expense, error) {
	page = page.Normalize()

	q := db.WithContext(ctx).
		Model(&expensedomain.Expense{}).
		Where("household_id = ?", householdID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PlanID != 0 {
		q = q.Where("plan_id = ?", filter.PlanID)
	}
	if filter.DueFrom != nil {
		q = q.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		q = q.Where("due_date <= ?", *filter.DueTo)
	}
	if page.Cursor != "" {
		cursor, err := snowflake.ParseString(page.Cursor)
		if err == nil {
			q = q.Where("id > ?", cursor)
		}
	}

	var items []*expensedomain.Expense
	err := q.Order("id ASC").Limit(page.Limit + 1).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListForPeriod(ctx context.Context, db *gorm.DB, householdID snowflake.ID, from, to time.Time) ([]*expensedomain.Expense, error) {
	var items []*expensedomain.Expense
	err := db.WithContext(ctx).
		Where("household_id = ?", householdID).
		Where("(due_date >= ? AND due_date < ?) OR (due_date IS NULL AND created_at >= ? AND created_at < ?)",
			from, to, from, to).
		Order("due_date ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListShares(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) ([]expensedomain.ExpenseShare, error) {
	var shares []expensedomain.ExpenseShare
	err := db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("id ASC").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *repo) ListSharesForExpenses(ctx context.Context, db *gorm.DB, expenseIDs []snowflake.ID) ([]expensedomain.ExpenseShare, error) {
	if len(expenseIDs) == 0 {
		return nil, nil
	}
	var shares []expensedomain.ExpenseShare
	err := db.WithContext(ctx).
		Where("expense_id IN ?", expenseIDs).
		Order("expense_id ASC, id ASC").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *repo) CountUnsettledShares(ctx context.Context, db *gorm.DB, expenseID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM expense_shares WHERE expense_id = ? AND settled = ?`,
		expenseID,
		false,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
