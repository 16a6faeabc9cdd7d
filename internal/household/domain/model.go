// Package domain contains households (the isolation unit all engine state
// hangs off) and their members.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is the billing tier quota ceilings are keyed by.
type Tier string

const (
	TierFree    Tier = "free"
	TierPlus    Tier = "plus"
	TierPremium Tier = "premium"
)

func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case TierFree, TierPlus, TierPremium:
		return Tier(s), true
	}
	return "", false
}

// Unrestricted reports whether the tier bypasses quota evaluation entirely.
func (t Tier) Unrestricted() bool {
	return t == TierPremium
}

type MemberRole string

const (
	RoleOwner MemberRole = "owner"
	RoleAdult MemberRole = "adult"
	RoleKid   MemberRole = "kid"
)

func ParseMemberRole(s string) (MemberRole, bool) {
	switch MemberRole(s) {
	case RoleOwner, RoleAdult, RoleKid:
		return MemberRole(s), true
	}
	return "", false
}

var (
	ErrHouseholdNotFound  = errors.New("household_not_found")
	ErrHouseholdInactive  = errors.New("household_inactive")
	ErrMemberNotFound     = errors.New("member_not_found")
	ErrMemberInactive     = errors.New("member_inactive")
	ErrInvalidTier        = errors.New("invalid_tier")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrNameRequired       = errors.New("name_required")
	ErrCannotRemoveOwner  = errors.New("cannot_remove_owner")
	ErrSlugAlreadyExists  = errors.New("slug_already_exists")
)

// Household is the tenant row. Active gates every engine mutation: an
// inactive household rejects quota assertions, plan creation, chores and
// expenses until reactivated.
type Household struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Tier      Tier         `gorm:"type:text;not null;default:free" json:"tier"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Household) TableName() string { return "households" }

// Member is a person in a household. Removal deactivates the row instead
// of deleting it because plan shares and expense shares reference it.
type Member struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	HouseholdID snowflake.ID `gorm:"not null;index" json:"household_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Role        MemberRole   `gorm:"type:text;not null;default:adult" json:"role"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	RemovedAt   *time.Time   `json:"removed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Member) TableName() string { return "household_members" }
