package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/homewardlabs/homeward/internal/cadence"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

type createChoreRequest struct {
	AssigneeMemberID string `json:"assignee_member_id"`
	Title            string `json:"title"`
	Notes            string `json:"notes"`
	Every            int    `json:"every"`
	Unit             string `json:"unit"`
	StartDate        string `json:"start_date"`
}

// @Summary      Create Chore
// @Description  Create a draft chore; drafts hold no quota slot until activated
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string              true  "Household ID"
// @Param        request  body  createChoreRequest  true  "Create Chore Request"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores [post]
func (s *Server) CreateChore(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createChoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var assignee *snowflake.ID
	if strings.TrimSpace(req.AssigneeMemberID) != "" {
		id, err := snowflake.ParseString(req.AssigneeMemberID)
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError("assignee_member_id", "invalid_id", "invalid assignee_member_id"))
			return
		}
		assignee = &id
	}

	var startDate time.Time
	if strings.TrimSpace(req.StartDate) != "" {
		parsed, apiErr := parseDate(req.StartDate, "start_date")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		startDate = parsed
	}

	chore, err := s.choreSvc.Create(c.Request.Context(), choredomain.CreateChoreRequest{
		HouseholdID:      householdID,
		AssigneeMemberID: assignee,
		Title:            strings.TrimSpace(req.Title),
		Notes:            strings.TrimSpace(req.Notes),
		Every:            req.Every,
		Unit:             cadence.Unit(strings.TrimSpace(req.Unit)),
		StartDate:        startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "chore.create", "chore", chore.ID.String(), map[string]any{
		"title": chore.Title,
		"every": chore.Every,
		"unit":  chore.Unit,
	})

	respondData(c, chore)
}

// @Summary      List Chores
// @Description  List a household's chores, filterable by status and assignee
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id        path   string  true   "Household ID"
// @Param        status    query  string  false  "Status filter"
// @Param        assignee  query  string  false  "Assignee member ID"
// @Param        cursor    query  string  false  "Cursor"
// @Param        limit     query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /households/{id}/chores [get]
func (s *Server) ListChores(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		Assignee string `form:"assignee"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := choredomain.ListChoreFilter{
		Status: choredomain.ChoreStatus(strings.TrimSpace(query.Status)),
	}
	if strings.TrimSpace(query.Assignee) != "" {
		assignee, err := snowflake.ParseString(query.Assignee)
		if err != nil || assignee == 0 {
			AbortWithError(c, newValidationError("assignee", "invalid_id", "invalid assignee"))
			return
		}
		filter.Assignee = assignee
	}

	chores, pageInfo, err := s.choreSvc.List(c.Request.Context(), householdID, filter, query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, chores, pageInfo)
}

// @Summary      Get Chore
// @Description  Fetch one chore with its photos
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string  true  "Household ID"
// @Param        choreID  path  string  true  "Chore ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores/{choreID} [get]
func (s *Server) GetChore(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	choreID, ok := pathID(c, "choreID")
	if !ok {
		return
	}

	chore, photos, err := s.choreSvc.Get(c.Request.Context(), householdID, choreID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"chore": chore, "photos": photos})
}

// @Summary      Activate Chore
// @Description  Move a draft chore into the active set, taking one active_chores slot
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string  true  "Household ID"
// @Param        choreID  path  string  true  "Chore ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores/{choreID}/activate [post]
func (s *Server) ActivateChore(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	choreID, ok := pathID(c, "choreID")
	if !ok {
		return
	}

	chore, err := s.choreSvc.Activate(c.Request.Context(), householdID, choreID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "chore.activate", "chore", choreID.String(), nil)

	respondData(c, chore)
}

// @Summary      Complete Chore
// @Description  Advance a recurring chore's cursor past today, or terminally complete a one-off
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string  true  "Household ID"
// @Param        choreID  path  string  true  "Chore ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores/{choreID}/complete [post]
func (s *Server) CompleteChore(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	choreID, ok := pathID(c, "choreID")
	if !ok {
		return
	}

	result, err := s.choreSvc.Complete(c.Request.Context(), householdID, choreID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "chore.complete", "chore", choreID.String(), map[string]any{
		"steps":           result.Steps,
		"already_current": result.AlreadyCurrent,
	})

	respondData(c, result)
}

// @Summary      Cancel Chore
// @Description  Retire a draft or active chore; an active chore releases its slot
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string  true  "Household ID"
// @Param        choreID  path  string  true  "Chore ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores/{choreID}/cancel [post]
func (s *Server) CancelChore(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	choreID, ok := pathID(c, "choreID")
	if !ok {
		return
	}

	chore, err := s.choreSvc.Cancel(c.Request.Context(), householdID, choreID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "chore.cancel", "chore", choreID.String(), nil)

	respondData(c, chore)
}

type attachPhotoRequest struct {
	MemberID string `json:"member_id"`
	URL      string `json:"url"`
	Caption  string `json:"caption"`
}

// @Summary      Attach Chore Photo
// @Description  Attach proof to an active or completed chore; guarded by the chore_photos quota
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string              true  "Household ID"
// @Param        choreID  path  string              true  "Chore ID"
// @Param        request  body  attachPhotoRequest  true  "Photo"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores/{choreID}/photos [post]
func (s *Server) AttachChorePhoto(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	choreID, ok := pathID(c, "choreID")
	if !ok {
		return
	}

	var req attachPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := snowflake.ParseString(req.MemberID)
	if err != nil || memberID == 0 {
		AbortWithError(c, newValidationError("member_id", "invalid_id", "invalid member_id"))
		return
	}

	photo, err := s.choreSvc.AttachPhoto(c.Request.Context(), choredomain.AttachPhotoRequest{
		HouseholdID: householdID,
		ChoreID:     choreID,
		MemberID:    memberID,
		URL:         strings.TrimSpace(req.URL),
		Caption:     strings.TrimSpace(req.Caption),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "chore.photo.attach", "chore_photo", photo.ID.String(), map[string]any{
		"chore_id": choreID,
	})

	respondData(c, photo)
}

// @Summary      Remove Chore Photo
// @Description  Delete a photo and release its chore_photos slot
// @Tags         chores
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string  true  "Household ID"
// @Param        choreID  path  string  true  "Chore ID"
// @Param        photoID  path  string  true  "Photo ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/chores/{choreID}/photos/{photoID} [delete]
func (s *Server) RemoveChorePhoto(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	choreID, ok := pathID(c, "choreID")
	if !ok {
		return
	}
	photoID, ok := pathID(c, "photoID")
	if !ok {
		return
	}

	if err := s.choreSvc.RemovePhoto(c.Request.Context(), householdID, choreID, photoID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "chore.photo.remove", "chore_photo", photoID.String(), map[string]any{
		"chore_id": choreID,
	})

	respondData(c, gin.H{"removed": true})
}
