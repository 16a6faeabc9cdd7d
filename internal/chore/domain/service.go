package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

type CreateChoreRequest struct {
	HouseholdID      snowflake.ID
	AssigneeMemberID *snowflake.ID
	Title            string
	Notes            string
	// Every 0 makes a one-off chore; 1 or more makes it recurring with
	// the given unit.
	Every     int
	Unit      cadence.Unit
	StartDate time.Time
}

// CompleteResult reports a completion. For a recurring chore Cursor and
// Steps describe the advance; AlreadyCurrent means the cursor was past
// today already and nothing moved.
type CompleteResult struct {
	Chore          *Chore    `json:"chore"`
	Cursor         time.Time `json:"cursor"`
	Steps          int       `json:"steps"`
	AlreadyCurrent bool      `json:"already_current"`
}

type AttachPhotoRequest struct {
	HouseholdID snowflake.ID
	ChoreID     snowflake.ID
	MemberID    snowflake.ID
	URL         string
	Caption     string
}

type Service interface {
	Create(ctx context.Context, req CreateChoreRequest) (*Chore, error)
	Get(ctx context.Context, householdID, id snowflake.ID) (*Chore, []ChorePhoto, error)
	List(ctx context.Context, householdID snowflake.ID, filter ListChoreFilter, page pagination.Pagination) ([]*Chore, *pagination.PageInfo, error)
	// Activate moves a draft chore into the active set, taking one
	// active_chores slot.
	Activate(ctx context.Context, householdID, id snowflake.ID) (*Chore, error)
	// Complete advances a recurring chore's cursor past today, or
	// terminally completes a one-off chore and releases its slot.
	Complete(ctx context.Context, householdID, id snowflake.ID) (*CompleteResult, error)
	// Cancel retires the chore; an active chore releases its slot, a
	// draft never held one.
	Cancel(ctx context.Context, householdID, id snowflake.ID) (*Chore, error)

	AttachPhoto(ctx context.Context, req AttachPhotoRequest) (*ChorePhoto, error)
	RemovePhoto(ctx context.Context, householdID, choreID, photoID snowflake.ID) error
}
