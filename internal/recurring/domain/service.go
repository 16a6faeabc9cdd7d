package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreatePlanRequest struct {
	HouseholdID   snowflake.ID
	OwnerMemberID snowflake.ID
	Description   string
	AmountCents   int64
	Currency      string
	Every         int
	Unit          cadence.Unit
	StartDate     time.Time
	Shares        []expensedomain.ShareInput
}

// MaterializeResult is one cycle's outcome. Created=false means the
// instance already existed and the call converged on it without touching
// the ledger.
type MaterializeResult struct {
	Expense *expensedomain.Expense       `json:"expense"`
	Shares  []expensedomain.ExpenseShare `json:"shares"`
	Created bool                         `json:"created"`
}

type TerminateResult struct {
	Plan              *Plan `json:"plan"`
	AlreadyTerminated bool  `json:"already_terminated"`
}

// AdvanceResult reports one scheduler pass over a plan. Claimed=false
// means another worker held the row and nothing was done.
type AdvanceResult struct {
	PlanID      snowflake.ID `json:"plan_id"`
	Claimed     bool         `json:"claimed"`
	Cycles      int          `json:"cycles"`
	Created     int          `json:"created"`
	NextDueDate time.Time    `json:"next_due_date"`
}

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, *MaterializeResult, error)
	Get(ctx context.Context, householdID, planID snowflake.ID) (*Plan, []PlanShare, error)
	List(ctx context.Context, householdID snowflake.ID, page pagination.Pagination) ([]*Plan, *pagination.PageInfo, error)
	// Terminate stops future materialization. Owner-only; terminating an
	// already-terminated plan reports a no-op instead of failing.
	Terminate(ctx context.Context, householdID, planID, actorMemberID snowflake.ID) (*TerminateResult, error)
	// Materialize stamps the instance for one due date. Replaying a
	// (plan, due date) pair returns the existing instance.
	Materialize(ctx context.Context, householdID, planID snowflake.ID, dueDate time.Time) (*MaterializeResult, error)
	// TerminateForMember runs inside the caller's transaction, which must
	// already hold the household lock. Every active plan the member owns
	// or participates in terminates; the terminated IDs come back.
	TerminateForMember(ctx context.Context, tx *gorm.DB, householdID, memberID snowflake.ID) ([]snowflake.ID, error)
	// AdvancePlan claims the plan and materializes every cycle due on or
	// before asOf, capped at maxCycles, then persists the new next due
	// date.
	AdvancePlan(ctx context.Context, planID snowflake.ID, asOf time.Time, maxCycles int) (*AdvanceResult, error)
	DuePlanIDs(ctx context.Context, asOf time.Time, limit int) ([]snowflake.ID, error)
}
