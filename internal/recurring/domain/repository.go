package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Plan) error
	InsertShares(ctx context.Context, db *gorm.DB, shares []PlanShare) error
	UpdateLifecycle(ctx context.Context, db *gorm.DB, p *Plan) error
	UpdateSchedule(ctx context.Context, db *gorm.DB, p *Plan) error

	FindByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Plan, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Plan, error)
	// ClaimByID locks the plan row skipping rows other workers hold, so
	// concurrent scheduler runs partition due plans instead of queueing.
	// nil means the row is claimed elsewhere or gone.
	ClaimByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	FindAnyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)

	List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, page pagination.Pagination) ([]*Plan, error)
	ListShares(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]PlanShare, error)

	// ListActiveForMemberForUpdate locks and returns the active plans the
	// member owns or holds a share in, ordered by ID.
	ListActiveForMemberForUpdate(ctx context.Context, db *gorm.DB, householdID, memberID snowflake.ID) ([]*Plan, error)
	TerminateAll(ctx context.Context, db *gorm.DB, planIDs []snowflake.ID, at time.Time) error

	DuePlanIDs(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]snowflake.ID, error)
}
