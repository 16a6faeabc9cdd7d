package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"github.com/homewardlabs/homeward/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

// EnsureRow lazily creates the counter row. The conflict clause makes the
// insert a no-op when the row exists, on every supported dialect.
func (r *repo) EnsureRow(ctx context.Context, db *gorm.DB, householdID snowflake.ID) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ledgerdomain.UsageLedger{HouseholdID: householdID}).Error
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, householdID snowflake.ID) (*ledgerdomain.UsageLedger, error) {
	var row ledgerdomain.UsageLedger
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("household_id = ?", householdID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.HouseholdID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, householdID snowflake.ID) (*ledgerdomain.UsageLedger, error) {
	var row ledgerdomain.UsageLedger
	err := db.WithContext(ctx).Raw(
		`SELECT household_id, active_chores, chore_photos, active_members, active_expenses, item_photos, created_at, updated_at
		 FROM usage_ledgers WHERE household_id = ?`,
		householdID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.HouseholdID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, ledger *ledgerdomain.UsageLedger) error {
	return db.WithContext(ctx).Exec(
		`UPDATE usage_ledgers
		 SET active_chores = ?, chore_photos = ?, active_members = ?, active_expenses = ?, item_photos = ?, updated_at = ?
		 WHERE household_id = ?`,
		ledger.ActiveChores,
		ledger.ChorePhotos,
		ledger.ActiveMembers,
		ledger.ActiveExpenses,
		ledger.ItemPhotos,
		ledger.UpdatedAt,
		ledger.HouseholdID,
	).Error
}
