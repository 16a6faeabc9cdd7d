package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() auditdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, filter auditdomain.ListFilter, page pagination.Pagination) ([]auditdomain.AuditLog, error) {
	q := db.WithContext(ctx).
		Model(&auditdomain.AuditLog{}).
		Where("household_id = ?", householdID)
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}
	if page.Cursor != "" {
		cursor, err := snowflake.ParseString(page.Cursor)
		if err == nil {
			q = q.Where("id < ?", cursor)
		}
	}

	var entries []auditdomain.AuditLog
	err := q.Order("id DESC").Limit(page.Limit + 1).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Delete(&auditdomain.AuditLog{}, "created_at < ?", cutoff)
	return res.RowsAffected, res.Error
}
