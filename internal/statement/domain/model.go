// Package domain describes monthly household statements: every expense
// that fell due in a calendar month, with per-member share balances,
// rendered as data or as a PDF download.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
)

var ErrInvalidMonth = errors.New("invalid_month")

// ExpenseLine is one expense row on a statement.
type ExpenseLine struct {
	ExpenseID   snowflake.ID                `json:"expense_id"`
	Date        time.Time                   `json:"date"`
	Description string                      `json:"description"`
	Recurring   bool                        `json:"recurring"`
	Status      expensedomain.ExpenseStatus `json:"status"`
	AmountCents int64                       `json:"amount_cents"`
	Currency    string                      `json:"currency"`
}

// MemberLine aggregates one member's share balance over the month.
type MemberLine struct {
	MemberID     snowflake.ID `json:"member_id"`
	MemberName   string       `json:"member_name"`
	OwedCents    int64        `json:"owed_cents"`
	SettledCents int64        `json:"settled_cents"`
}

func (l MemberLine) OutstandingCents() int64 {
	return l.OwedCents - l.SettledCents
}

type Statement struct {
	HouseholdID      snowflake.ID  `json:"household_id"`
	HouseholdName    string        `json:"household_name"`
	Month            string        `json:"month"`
	PeriodStart      time.Time     `json:"period_start"`
	PeriodEnd        time.Time     `json:"period_end"`
	Currency         string        `json:"currency"`
	ExpenseCount     int           `json:"expense_count"`
	TotalCents       int64         `json:"total_cents"`
	SettledCents     int64         `json:"settled_cents"`
	OutstandingCents int64         `json:"outstanding_cents"`
	Expenses         []ExpenseLine `json:"expenses"`
	Members          []MemberLine  `json:"members"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

// Service builds statements. Month is "YYYY-MM".
type Service interface {
	Statement(ctx context.Context, householdID snowflake.ID, month string) (*Statement, error)
	// RenderPDF returns the statement as a PDF document alongside the
	// data it was rendered from.
	RenderPDF(ctx context.Context, householdID snowflake.ID, month string) ([]byte, *Statement, error)
}
