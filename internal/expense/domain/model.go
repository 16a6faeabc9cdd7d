// Package domain contains shared expenses, both one-off entries and the
// instances a recurring plan materializes. A plan-backed instance carries
// its plan ID and due date; that pair is unique and makes replayed
// materialization converge on the same row.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ExpenseStatus string

const (
	ExpenseStatusOpen    ExpenseStatus = "open"
	ExpenseStatusSettled ExpenseStatus = "settled"
)

var (
	ErrExpenseNotFound     = errors.New("expense_not_found")
	ErrShareNotFound       = errors.New("share_not_found")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrDescriptionRequired = errors.New("description_required")
	ErrMissingShares       = errors.New("missing_shares")
	ErrShareSumMismatch    = errors.New("share_sum_mismatch")
	ErrPayerOnlyShare      = errors.New("payer_only_share")
	ErrDuplicateShare      = errors.New("duplicate_share_member")
	ErrNotHouseholdMember  = errors.New("not_household_member")
)

type Expense struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	HouseholdID   snowflake.ID  `json:"household_id" gorm:"not null;index"`
	PlanID        *snowflake.ID `json:"plan_id,omitempty" gorm:"uniqueIndex:ux_expenses_plan_due"`
	DueDate       *time.Time    `json:"due_date,omitempty" gorm:"uniqueIndex:ux_expenses_plan_due"`
	PayerMemberID snowflake.ID  `json:"payer_member_id" gorm:"not null"`
	Description   string        `json:"description" gorm:"type:text;not null"`
	AmountCents   int64         `json:"amount_cents" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"type:varchar(3);not null"`
	Status        ExpenseStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	SettledAt     *time.Time    `json:"settled_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"not null"`
}

func (Expense) TableName() string { return "expenses" }

// Recurring reports whether the expense was materialized from a plan.
func (e *Expense) Recurring() bool { return e.PlanID != nil }

type ExpenseShare struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	ExpenseID   snowflake.ID `json:"expense_id" gorm:"not null;index"`
	MemberID    snowflake.ID `json:"member_id" gorm:"not null"`
	AmountCents int64        `json:"amount_cents" gorm:"not null"`
	Settled     bool         `json:"settled" gorm:"not null;default:false"`
	SettledAt   *time.Time   `json:"settled_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (ExpenseShare) TableName() string { return "expense_shares" }
