package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

// ShareInput is one participant's slice of an expense. Share amounts must
// be positive and sum to the expense total.
type ShareInput struct {
	MemberID    snowflake.ID `json:"member_id"`
	AmountCents int64        `json:"amount_cents"`
}

type CreateExpenseRequest struct {
	HouseholdID   snowflake.ID
	PayerMemberID snowflake.ID
	Description   string
	AmountCents   int64
	Currency      string
	DueDate       *time.Time
	Shares        []ShareInput
}

// SettleShareResult reports a settle call, including whether it was a
// replay and whether it closed out the whole expense.
type SettleShareResult struct {
	Expense        *Expense      `json:"expense"`
	Share          *ExpenseShare `json:"share"`
	AlreadySettled bool          `json:"already_settled"`
	ExpenseSettled bool          `json:"expense_settled"`
}

type Service interface {
	Create(ctx context.Context, req CreateExpenseRequest) (*Expense, []ExpenseShare, error)
	Get(ctx context.Context, householdID, id snowflake.ID) (*Expense, []ExpenseShare, error)
	List(ctx context.Context, householdID snowflake.ID, filter ListExpenseFilter, page pagination.Pagination) ([]*Expense, *pagination.PageInfo, error)
	// SettleShare marks one participant's share paid. Settling the last
	// open share flips the expense to settled and releases its ledger
	// slot. Settling an already-settled share is a reported no-op.
	SettleShare(ctx context.Context, householdID, expenseID, shareID snowflake.ID) (*SettleShareResult, error)
}
