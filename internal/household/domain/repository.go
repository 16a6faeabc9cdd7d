package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, h *Household) error
	Update(ctx context.Context, db *gorm.DB, h *Household) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Household, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Household, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Household, error)
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Household, error)

	InsertMember(ctx context.Context, db *gorm.DB, m *Member) error
	UpdateMember(ctx context.Context, db *gorm.DB, m *Member) error
	FindMemberByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Member, error)
	FindMemberByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, db *gorm.DB, householdID snowflake.ID, activeOnly bool) ([]*Member, error)
}
