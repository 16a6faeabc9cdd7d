package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	"github.com/homewardlabs/homeward/pkg/db/option"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() householddomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, h *householddomain.Household) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO households (id, slug, name, tier, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.Slug,
		h.Name,
		h.Tier,
		h.Active,
		h.CreatedAt,
		h.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, h *householddomain.Household) error {
	return db.WithContext(ctx).Exec(
		`UPDATE households
		 SET name = ?, tier = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		h.Name,
		h.Tier,
		h.Active,
		h.UpdatedAt,
		h.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*householddomain.Household, error) {
	var h householddomain.Household
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, tier, active, created_at, updated_at
		 FROM households WHERE id = ?`,
		id,
	).Scan(&h).Error
	if err != nil {
		return nil, err
	}
	if h.ID == 0 {
		return nil, nil
	}
	return &h, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*householddomain.Household, error) {
	var h householddomain.Household
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&h).Error
	if err != nil {
		return nil, err
	}
	if h.ID == 0 {
		return nil, nil
	}
	return &h, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*householddomain.Household, error) {
	var h householddomain.Household
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, tier, active, created_at, updated_at
		 FROM households WHERE slug = ?`,
		slug,
	).Scan(&h).Error
	if err != nil {
		return nil, err
	}
	if h.ID == 0 {
		return nil, nil
	}
	return &h, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*householddomain.Household, error) {
	page = page.Normalize()
	q := db.WithContext(ctx).Model(&householddomain.Household{})
	if page.Cursor != "" {
		cursor, err := snowflake.ParseString(page.Cursor)
		if err == nil {
			q = q.Where("id > ?", cursor)
		}
	}

	var rows []*householddomain.Household
	// One past the limit so the caller can tell whether a next page exists.
	if err := q.Order("id ASC").Limit(page.Limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, m *householddomain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO household_members (id, household_id, name, role, active, removed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.HouseholdID,
		m.Name,
		m.Role,
		m.Active,
		m.RemovedAt,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) UpdateMember(ctx context.Context, db *gorm.DB, m *householddomain.Member) error {
	return db.WithContext(ctx).Exec(
		`UPDATE household_members
		 SET name = ?, role = ?, active = ?, removed_at = ?, updated_at = ?
		 WHERE household_id = ? AND id = ?`,
		m.Name,
		m.Role,
		m.Active,
		m.RemovedAt,
		m.UpdatedAt,
		m.HouseholdID,
		m.ID,
	).Error
}

func (r *repo) FindMemberByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*householddomain.Member, error) {
	var m householddomain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, household_id, name, role, active, removed_at, created_at, updated_at
		 FROM household_members WHERE household_id = ? AND id = ?`,
		householdID,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) FindMemberByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*householddomain.Member, error) {
	var m householddomain.Member
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, householdID snowflake.ID, activeOnly bool) ([]*householddomain.Member, error) {
	q := db.WithContext(ctx).
		Model(&householddomain.Member{}).
		Where("household_id = ?", householdID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var rows []*householddomain.Member
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
