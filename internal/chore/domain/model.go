// Package domain contains chores. A recurring chore carries its own due
// cursor instead of spawning instance rows: completing it pushes the
// cursor past today along the cadence grid. A one-off chore completes
// once, terminally.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
)

type ChoreStatus string

const (
	ChoreStatusDraft     ChoreStatus = "draft"
	ChoreStatusActive    ChoreStatus = "active"
	ChoreStatusCompleted ChoreStatus = "completed"
	ChoreStatusCancelled ChoreStatus = "cancelled"
)

var (
	ErrChoreNotFound   = errors.New("chore_not_found")
	ErrChoreNotDraft   = errors.New("chore_not_draft")
	ErrChoreNotActive  = errors.New("chore_not_active")
	ErrTitleRequired   = errors.New("title_required")
	ErrInvalidInterval = errors.New("invalid_interval")
	ErrInvalidUnit     = errors.New("invalid_unit")
	ErrPhotoNotFound   = errors.New("photo_not_found")
	ErrPhotoURLMissing = errors.New("photo_url_missing")
)

type Chore struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	HouseholdID      snowflake.ID  `json:"household_id" gorm:"not null;index"`
	AssigneeMemberID *snowflake.ID `json:"assignee_member_id,omitempty"`
	Title            string        `json:"title" gorm:"type:text;not null"`
	Notes            string        `json:"notes" gorm:"type:text"`
	Every            int           `json:"every" gorm:"not null;default:0"`
	Unit             cadence.Unit  `json:"unit,omitempty" gorm:"type:varchar(8)"`
	StartDate        time.Time     `json:"start_date" gorm:"not null"`
	NextDueDate      time.Time     `json:"next_due_date" gorm:"not null;index"`
	Status           ChoreStatus   `json:"status" gorm:"type:varchar(16);not null;index"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"not null"`
}

func (Chore) TableName() string { return "chores" }

// Recurring reports whether the chore advances a cursor instead of
// completing terminally.
func (c *Chore) Recurring() bool { return c.Every >= 1 }

type ChorePhoto struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	ChoreID   snowflake.ID `json:"chore_id" gorm:"not null;index"`
	MemberID  snowflake.ID `json:"member_id" gorm:"not null"`
	URL       string       `json:"url" gorm:"type:text;not null"`
	Caption   string       `json:"caption" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (ChorePhoto) TableName() string { return "chore_photos" }
