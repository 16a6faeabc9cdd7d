package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/homewardlabs/homeward/internal/cadence"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	"github.com/homewardlabs/homeward/internal/clock"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	quotadomain "github.com/homewardlabs/homeward/internal/quota/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo          choredomain.Repository
	HouseholdRepo householddomain.Repository
	LedgerSvc     ledgerdomain.Service
	QuotaSvc      quotadomain.Service
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          choredomain.Repository
	householdRepo householddomain.Repository
	ledgerSvc     ledgerdomain.Service
	quotaSvc      quotadomain.Service
}

func NewService(p ServiceParam) choredomain.Service {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("chore.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		householdRepo: p.HouseholdRepo,
		ledgerSvc:     p.LedgerSvc,
		quotaSvc:      p.QuotaSvc,
	}
}

// Create stores the chore as a draft. Drafts hold no quota slot; the slot
// is taken at activation.
func (s *service) Create(ctx context.Context, req choredomain.CreateChoreRequest) (*choredomain.Chore, error) {
	if req.HouseholdID == 0 {
		return nil, householddomain.ErrHouseholdNotFound
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, choredomain.ErrTitleRequired
	}
	if req.Every < 0 {
		return nil, choredomain.ErrInvalidInterval
	}
	if req.Every >= 1 && !req.Unit.Valid() {
		return nil, choredomain.ErrInvalidUnit
	}

	var chore *choredomain.Chore
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, req.HouseholdID); err != nil {
			return err
		}
		if req.AssigneeMemberID != nil {
			m, err := s.householdRepo.FindMemberByID(ctx, tx, req.HouseholdID, *req.AssigneeMemberID)
			if err != nil {
				return err
			}
			if m == nil {
				return householddomain.ErrMemberNotFound
			}
			if !m.Active {
				return householddomain.ErrMemberInactive
			}
		}

		now := s.clock.Now(ctx)
		start := cadence.DateOf(req.StartDate)
		if req.StartDate.IsZero() {
			start = cadence.DateOf(now)
		}
		unit := req.Unit
		if req.Every == 0 {
			unit = ""
		}

		c := &choredomain.Chore{
			ID:               s.genID.Generate(),
			HouseholdID:      req.HouseholdID,
			AssigneeMemberID: req.AssigneeMemberID,
			Title:            title,
			Notes:            strings.TrimSpace(req.Notes),
			Every:            req.Every,
			Unit:             unit,
			StartDate:        start,
			NextDueDate:      start,
			Status:           choredomain.ChoreStatusDraft,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.Insert(ctx, tx, c); err != nil {
			return err
		}
		chore = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("chore created",
		zap.String("household_id", chore.HouseholdID.String()),
		zap.String("chore_id", chore.ID.String()),
		zap.Int("every", chore.Every),
	)
	return chore, nil
}

func (s *service) Get(ctx context.Context, householdID, id snowflake.ID) (*choredomain.Chore, []choredomain.ChorePhoto, error) {
	c, err := s.repo.FindByID(ctx, s.db, householdID, id)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, choredomain.ErrChoreNotFound
	}
	photos, err := s.repo.ListPhotos(ctx, s.db, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, photos, nil
}

func (s *service) List(ctx context.Context, householdID snowflake.ID, filter choredomain.ListChoreFilter, page pagination.Pagination) ([]*choredomain.Chore, *pagination.PageInfo, error) {
	page = page.Normalize()
	chores, err := s.repo.List(ctx, s.db, householdID, filter, page)
	if err != nil {
		return nil, nil, err
	}
	lastID := ""
	if len(chores) > 0 {
		lastID = chores[len(chores)-1].ID.String()
	}
	info := pagination.NewPageInfo(len(chores), page.Limit, lastID)
	if info.HasMore {
		chores = chores[:page.Limit]
		cursor := chores[len(chores)-1].ID.String()
		info.NextCursor = &cursor
	}
	return chores, info, nil
}

func (s *service) Activate(ctx context.Context, householdID, id snowflake.ID) (*choredomain.Chore, error) {
	var chore *choredomain.Chore
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		c, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, id)
		if err != nil {
			return err
		}
		if c == nil {
			return choredomain.ErrChoreNotFound
		}
		if c.Status != choredomain.ChoreStatusDraft {
			return choredomain.ErrChoreNotDraft
		}
		if err := s.quotaSvc.Assert(ctx, tx, householdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveChores: 1,
		}); err != nil {
			return err
		}

		c.Status = choredomain.ChoreStatusActive
		c.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Update(ctx, tx, c); err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Apply(ctx, tx, householdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveChores: 1,
		}); err != nil {
			return err
		}
		chore = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("chore activated",
		zap.String("household_id", householdID.String()),
		zap.String("chore_id", id.String()),
	)
	return chore, nil
}

// Complete pushes a recurring chore's cursor along the cadence grid until
// it lands past today. The anchor is the start date, so a month-end start
// clamps through short months and recovers (Jan 31, Feb 29, Mar 31). A
// cursor already past today is a reported no-op, never an error. One-off
// chores complete terminally and release their slot.
func (s *service) Complete(ctx context.Context, householdID, id snowflake.ID) (*choredomain.CompleteResult, error) {
	var result *choredomain.CompleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		c, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, id)
		if err != nil {
			return err
		}
		if c == nil {
			return choredomain.ErrChoreNotFound
		}
		if c.Status != choredomain.ChoreStatusActive {
			return choredomain.ErrChoreNotActive
		}

		now := s.clock.Now(ctx)
		today := cadence.DateOf(now)

		if c.Recurring() {
			cursor, steps := cadence.AdvancePast(c.StartDate, c.Every, c.Unit, c.NextDueDate, today)
			if steps == 0 {
				result = &choredomain.CompleteResult{Chore: c, Cursor: cursor, AlreadyCurrent: true}
				return nil
			}
			c.NextDueDate = cursor
			c.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, c); err != nil {
				return err
			}
			result = &choredomain.CompleteResult{Chore: c, Cursor: cursor, Steps: steps}
			return nil
		}

		c.Status = choredomain.ChoreStatusCompleted
		c.CompletedAt = &now
		c.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, c); err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Apply(ctx, tx, householdID, ledgerdomain.Deltas{
			ledgerdomain.MetricActiveChores: -1,
		}); err != nil {
			return err
		}
		result = &choredomain.CompleteResult{Chore: c, Cursor: c.NextDueDate, Steps: 1}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCurrent {
		s.log.Info("chore completed",
			zap.String("household_id", householdID.String()),
			zap.String("chore_id", id.String()),
			zap.Int("steps", result.Steps),
		)
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, householdID, id snowflake.ID) (*choredomain.Chore, error) {
	var chore *choredomain.Chore
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		c, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, id)
		if err != nil {
			return err
		}
		if c == nil {
			return choredomain.ErrChoreNotFound
		}
		if c.Status != choredomain.ChoreStatusDraft && c.Status != choredomain.ChoreStatusActive {
			return choredomain.ErrChoreNotActive
		}
		wasActive := c.Status == choredomain.ChoreStatusActive

		c.Status = choredomain.ChoreStatusCancelled
		c.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Update(ctx, tx, c); err != nil {
			return err
		}
		if wasActive {
			if _, err := s.ledgerSvc.Apply(ctx, tx, householdID, ledgerdomain.Deltas{
				ledgerdomain.MetricActiveChores: -1,
			}); err != nil {
				return err
			}
		}
		chore = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chore, nil
}

func (s *service) AttachPhoto(ctx context.Context, req choredomain.AttachPhotoRequest) (*choredomain.ChorePhoto, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, choredomain.ErrPhotoURLMissing
	}

	var photo *choredomain.ChorePhoto
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, req.HouseholdID); err != nil {
			return err
		}
		c, err := s.repo.FindByIDForUpdate(ctx, tx, req.HouseholdID, req.ChoreID)
		if err != nil {
			return err
		}
		if c == nil {
			return choredomain.ErrChoreNotFound
		}
		if c.Status != choredomain.ChoreStatusActive && c.Status != choredomain.ChoreStatusCompleted {
			return choredomain.ErrChoreNotActive
		}
		if err := s.quotaSvc.Assert(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricChorePhotos: 1,
		}); err != nil {
			return err
		}

		p := &choredomain.ChorePhoto{
			ID:        s.genID.Generate(),
			ChoreID:   req.ChoreID,
			MemberID:  req.MemberID,
			URL:       url,
			Caption:   strings.TrimSpace(req.Caption),
			CreatedAt: s.clock.Now(ctx),
		}
		if err := s.repo.InsertPhoto(ctx, tx, p); err != nil {
			return err
		}
		if _, err := s.ledgerSvc.Apply(ctx, tx, req.HouseholdID, ledgerdomain.Deltas{
			ledgerdomain.MetricChorePhotos: 1,
		}); err != nil {
			return err
		}
		photo = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *service) RemovePhoto(ctx context.Context, householdID, choreID, photoID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockHousehold(ctx, tx, householdID); err != nil {
			return err
		}
		c, err := s.repo.FindByIDForUpdate(ctx, tx, householdID, choreID)
		if err != nil {
			return err
		}
		if c == nil {
			return choredomain.ErrChoreNotFound
		}
		p, err := s.repo.FindPhotoByID(ctx, tx, choreID, photoID)
		if err != nil {
			return err
		}
		if p == nil {
			return choredomain.ErrPhotoNotFound
		}
		if err := s.repo.DeletePhoto(ctx, tx, photoID); err != nil {
			return err
		}
		_, err = s.ledgerSvc.Apply(ctx, tx, householdID, ledgerdomain.Deltas{
			ledgerdomain.MetricChorePhotos: -1,
		})
		return err
	})
}

func (s *service) lockHousehold(ctx context.Context, tx *gorm.DB, householdID snowflake.ID) error {
	h, err := s.householdRepo.FindByIDForUpdate(ctx, tx, householdID)
	if err != nil {
		return err
	}
	if h == nil {
		return householddomain.ErrHouseholdNotFound
	}
	if !h.Active {
		return householddomain.ErrHouseholdInactive
	}
	return nil
}
