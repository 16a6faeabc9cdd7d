package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

type CreateHouseholdRequest struct {
	Name      string
	Tier      Tier
	OwnerName string
}

type AddMemberRequest struct {
	HouseholdID snowflake.ID
	Name        string
	Role        MemberRole
}

// RemoveMemberResult reports what the removal cascaded into.
type RemoveMemberResult struct {
	Member          *Member        `json:"member"`
	AlreadyRemoved  bool           `json:"already_removed"`
	TerminatedPlans []snowflake.ID `json:"terminated_plan_ids"`
}

type Service interface {
	Create(ctx context.Context, req CreateHouseholdRequest) (*Household, *Member, error)
	Get(ctx context.Context, id snowflake.ID) (*Household, error)
	List(ctx context.Context, page pagination.Pagination) ([]*Household, error)
	SetActive(ctx context.Context, id snowflake.ID, active bool) (*Household, error)
	ChangeTier(ctx context.Context, id snowflake.ID, tier Tier) (*Household, error)

	AddMember(ctx context.Context, req AddMemberRequest) (*Member, error)
	ListMembers(ctx context.Context, householdID snowflake.ID) ([]*Member, error)
	// RemoveMember deactivates the member, terminates every active
	// recurring plan the member owns or holds a share in, and releases the
	// member's ledger slot, all in one transaction.
	RemoveMember(ctx context.Context, householdID, memberID snowflake.ID) (*RemoveMemberResult, error)
}
