package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"github.com/homewardlabs/homeward/pkg/db/option"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() recurringdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *recurringdomain.Plan) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) InsertShares(ctx context.Context, db *gorm.DB, shares []recurringdomain.PlanShare) error {
	if len(shares) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&shares).Error
}

func (r *repo) UpdateLifecycle(ctx context.Context, db *gorm.DB, p *recurringdomain.Plan) error {
	return db.WithContext(ctx).Exec(
		`UPDATE recurring_plans SET status = ?, terminated_at = ?, updated_at = ? WHERE id = ?`,
		p.Status,
		p.TerminatedAt,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) UpdateSchedule(ctx context.Context, db *gorm.DB, p *recurringdomain.Plan) error {
	return db.WithContext(ctx).Exec(
		`UPDATE recurring_plans SET next_due_date = ?, updated_at = ? WHERE id = ?`,
		p.NextDueDate,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*recurringdomain.Plan, error) {
	var p recurringdomain.Plan
	err := db.WithContext(ctx).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*recurringdomain.Plan, error) {
	var p recurringdomain.Plan
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ClaimByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*recurringdomain.Plan, error) {
	var p recurringdomain.Plan
	err := option.ForUpdateSkipLocked(db.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindAnyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*recurringdomain.Plan, error) {
	var p recurringdomain.Plan
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, page pagination.Pagination) ([]*recurringdomain.Plan, error) {
	page = page.Normalize()
	q := db.WithContext(ctx).
		Model(&recurringdomain.Plan{}).
		Where("household_id = ?", householdID)
	if page.Cursor != "" {
		cursor, err := snowflake.ParseString(page.Cursor)
		if err == nil {
			q = q.Where("id > ?", cursor)
		}
	}

	var plans []*recurringdomain.Plan
	if err := q.Order("id ASC").Limit(page.Limit + 1).Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) ListShares(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]recurringdomain.PlanShare, error) {
	var shares []recurringdomain.PlanShare
	err := db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("id ASC").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// ListActiveForMemberForUpdate orders by ID so every caller locks plan
// rows in the same sequence.
func (r *repo) ListActiveForMemberForUpdate(ctx context.Context, db *gorm.DB, householdID, memberID snowflake.ID) ([]*recurringdomain.Plan, error) {
	var plans []*recurringdomain.Plan
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("household_id = ? AND status = ?", householdID, recurringdomain.PlanStatusActive).
		Where(
			"owner_member_id = ? OR id IN (SELECT plan_id FROM recurring_plan_shares WHERE member_id = ?)",
			memberID,
			memberID,
		).
		Order("id ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) TerminateAll(ctx context.Context, db *gorm.DB, planIDs []snowflake.ID, at time.Time) error {
	if len(planIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE recurring_plans SET status = ?, terminated_at = ?, updated_at = ? WHERE id IN ?`,
		recurringdomain.PlanStatusTerminated,
		at,
		at,
		planIDs,
	).Error
}

func (r *repo) DuePlanIDs(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&recurringdomain.Plan{}).
		Where("status = ? AND next_due_date <= ?", recurringdomain.PlanStatusActive, asOf).
		Order("next_due_date ASC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
