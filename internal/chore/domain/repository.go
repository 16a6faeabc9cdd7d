package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListChoreFilter struct {
	Status   ChoreStatus
	Assignee snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Chore) error
	Update(ctx context.Context, db *gorm.DB, c *Chore) error
	FindByID(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Chore, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, householdID, id snowflake.ID) (*Chore, error)
	List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, filter ListChoreFilter, page pagination.Pagination) ([]*Chore, error)

	InsertPhoto(ctx context.Context, db *gorm.DB, p *ChorePhoto) error
	DeletePhoto(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindPhotoByID(ctx context.Context, db *gorm.DB, choreID, id snowflake.ID) (*ChorePhoto, error)
	ListPhotos(ctx context.Context, db *gorm.DB, choreID snowflake.ID) ([]ChorePhoto, error)
}
