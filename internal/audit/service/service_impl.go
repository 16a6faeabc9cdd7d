package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	"github.com/homewardlabs/homeward/internal/clock"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p ServiceParam) auditdomain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// AuditLog appends one trail entry outside the caller's transaction. The
// write must never fail the audited operation, so errors are logged and
// dropped here.
func (s *service) AuditLog(ctx context.Context, householdID *snowflake.ID, actorType string, actorID *string, action, targetType string, targetID *string, metadata map[string]any) {
	entry := &auditdomain.AuditLog{
		ID:          s.genID.Generate(),
		HouseholdID: householdID,
		ActorType:   actorType,
		ActorID:     actorID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    datatypes.JSONMap(metadata),
		CreatedAt:   s.clock.Now(ctx),
	}
	if entry.ActorType == "" {
		entry.ActorType = string(auditdomain.ActorTypeSystem)
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("audit write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *service) List(ctx context.Context, householdID snowflake.ID, filter auditdomain.ListFilter, page pagination.Pagination) ([]auditdomain.AuditLog, *pagination.PageInfo, error) {
	page = page.Normalize()
	entries, err := s.repo.List(ctx, s.db, householdID, filter, page)
	if err != nil {
		return nil, nil, err
	}
	lastID := ""
	if len(entries) > 0 {
		lastID = entries[len(entries)-1].ID.String()
	}
	info := pagination.NewPageInfo(len(entries), page.Limit, lastID)
	if info.HasMore {
		entries = entries[:page.Limit]
		cursor := entries[len(entries)-1].ID.String()
		info.NextCursor = &cursor
	}
	return entries, info, nil
}
