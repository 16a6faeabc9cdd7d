// Package domain contains recurring plans, the templates the materializer
// stamps expense instances from. A plan never reactivates once terminated;
// cadence changes mean a new plan.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
)

type PlanStatus string

const (
	PlanStatusActive     PlanStatus = "active"
	PlanStatusTerminated PlanStatus = "terminated"
)

var (
	ErrPlanNotFound    = errors.New("plan_not_found")
	ErrPlanNotActive   = errors.New("plan_not_active")
	ErrNotPlanOwner    = errors.New("not_plan_owner")
	ErrInvalidInterval = errors.New("invalid_interval")
	ErrInvalidUnit     = errors.New("invalid_unit")
	ErrInvalidDueDate  = errors.New("invalid_due_date")
)

type Plan struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	HouseholdID   snowflake.ID `json:"household_id" gorm:"not null;index"`
	OwnerMemberID snowflake.ID `json:"owner_member_id" gorm:"not null"`
	Description   string       `json:"description" gorm:"type:text;not null"`
	AmountCents   int64        `json:"amount_cents" gorm:"not null"`
	Currency      string       `json:"currency" gorm:"type:varchar(3);not null"`
	Every         int          `json:"every" gorm:"not null"`
	Unit          cadence.Unit `json:"unit" gorm:"type:varchar(8);not null"`
	StartDate     time.Time    `json:"start_date" gorm:"not null"`
	NextDueDate   time.Time    `json:"next_due_date" gorm:"not null;index:idx_recurring_plans_due"`
	Status        PlanStatus   `json:"status" gorm:"type:varchar(16);not null;index:idx_recurring_plans_due"`
	TerminatedAt  *time.Time   `json:"terminated_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "recurring_plans" }

// PlanShare is the split template copied onto every materialized instance.
type PlanShare struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	PlanID      snowflake.ID `json:"plan_id" gorm:"not null;index"`
	MemberID    snowflake.ID `json:"member_id" gorm:"not null"`
	AmountCents int64        `json:"amount_cents" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (PlanShare) TableName() string { return "recurring_plan_shares" }
