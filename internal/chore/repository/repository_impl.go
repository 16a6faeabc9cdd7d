package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	"github.com/homewardlabs/homeward/pkg/db/option"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() choredomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *choredomain.Chore) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, c *choredomain.Chore) error {
	return db.WithContext(ctx).Exec(
		`UPDATE chores
		 SET assignee_member_id = ?, title = ?, notes = ?, next_due_date = ?, status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		c.AssigneeMemberID,
		c.Title,
		c.Notes,
		c.NextDueDate,
		c.Status,
		c.CompletedAt,
		c.UpdatedAt,
		c.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*choredomain.Chore, error) {
	var c choredomain.Chore
	err := db.WithContext(ctx).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*choredomain.Chore, error) {
	var c choredomain.Chore
	err := option.ForUpdate(db.WithContext(ctx)).
		Where("household_id = ? AND id = ?", householdID, id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, filter choredomain.ListChoreFilter, page pagination.Pagination) ([]*choredomain.Chore, error) {
	page = page.Normalize()

	q := db.WithContext(ctx).
		Model(&choredomain.Chore{}).
		Where("household_id = ?", householdID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Assignee != 0 {
		q = q.Where("assignee_member_id = ?", filter.Assignee)
	}
	if page.Cursor != "" {
		cursor, err := snowflake.ParseString(page.Cursor)
		if err == nil {
			q = q.Where("id > ?", cursor)
		}
	}

	var chores []*choredomain.Chore
	if err := q.Order("id ASC").Limit(page.Limit + 1).Find(&chores).Error; err != nil {
		return nil, err
	}
	return chores, nil
}

func (r *repo) InsertPhoto(ctx context.Context, db *gorm.DB, p *choredomain.ChorePhoto) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO chore_photos (id, chore_id, member_id, url, caption, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ChoreID,
		p.MemberID,
		p.URL,
		p.Caption,
		p.CreatedAt,
	).Error
}

func (r *repo) DeletePhoto(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM chore_photos WHERE id = ?`, id).Error
}

func (r *repo) FindPhotoByID(ctx context.Context, db *gorm.DB, choreID, id snowflake.ID) (*choredomain.ChorePhoto, error) {
	var p choredomain.ChorePhoto
	err := db.WithContext(ctx).
		Where("chore_id = ? AND id = ?", choreID, id).
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

func (r *repo) ListPhotos(ctx context.Context, db *gorm.DB, choreID snowflake.ID) ([]choredomain.ChorePhoto, error) {
	var photos []choredomain.ChorePhoto
	err := db.WithContext(ctx).
		Where("chore_id = ?", choreID).
		Order("id ASC").
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	return photos, nil
}
