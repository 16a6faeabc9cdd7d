// Package domain holds the audit trail records written alongside every
// state-changing operation. Rows are append-only; the scheduler prunes
// them past the retention window.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeMember ActorType = "member"
	ActorTypeAPIKey ActorType = "api_key"
	ActorTypeSystem ActorType = "system"
)

type AuditLog struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	HouseholdID *snowflake.ID     `gorm:"index" json:"household_id,omitempty"`
	ActorType   string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID     *string           `json:"actor_id,omitempty"`
	Action      string            `gorm:"type:text;not null;index" json:"action"`
	TargetType  string            `gorm:"type:text" json:"target_type"`
	TargetID    *string           `json:"target_id,omitempty"`
	IPAddress   *string           `json:"ip_address,omitempty"`
	UserAgent   *string           `json:"user_agent,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action string
	From   time.Time
	To     time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, householdID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]AuditLog, error)
	DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

// Service records and reads audit entries. AuditLog is fire-and-forget:
// a failed write is logged and swallowed so it can never fail the
// operation being audited.
type Service interface {
	AuditLog(ctx context.Context, householdID *snowflake.ID, actorType string, actorID *string, action, targetType string, targetID *string, metadata map[string]any)
	List(ctx context.Context, householdID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]AuditLog, *pagination.PageInfo, error)
}
