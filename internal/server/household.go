package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

type createHouseholdRequest struct {
	Name      string `json:"name"`
	Tier      string `json:"tier"`
	OwnerName string `json:"owner_name"`
}

// @Summary      Create Household
// @Description  Create a household with its owner member
// @Tags         households
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body createHouseholdRequest true "Create Household Request"
// @Success      200  {object}  DataResponse
// @Router       /households [post]
func (s *Server) CreateHousehold(c *gin.Context) {
	var req createHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	household, owner, err := s.householdSvc.Create(c.Request.Context(), householddomain.CreateHouseholdRequest{
		Name:      strings.TrimSpace(req.Name),
		Tier:      householddomain.Tier(strings.TrimSpace(req.Tier)),
		OwnerName: strings.TrimSpace(req.OwnerName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &household.ID, "household.create", "household", household.ID.String(), map[string]any{
		"name": household.Name,
		"tier": household.Tier,
	})

	respondData(c, gin.H{"household": household, "owner": owner})
}

// @Summary      List Households
// @Description  List households with cursor pagination
// @Tags         households
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        cursor  query  string  false  "Cursor"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /households [get]
func (s *Server) ListHouseholds(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	households, err := s.householdSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, households, nil)
}

// @Summary      Get Household
// @Description  Fetch one household
// @Tags         households
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Household ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id} [get]
func (s *Server) GetHousehold(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	household, err := s.householdSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, household)
}

// @Summary      Activate Household
// @Description  Reopen a deactivated household for engine mutations
// @Tags         households
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Household ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/activate [post]
func (s *Server) ActivateHousehold(c *gin.Context) {
	s.setHouseholdActive(c, true, "household.activate")
}

// @Summary      Deactivate Household
// @Description  Freeze the household; every engine mutation is refused until reactivated
// @Tags         households
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Household ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/deactivate [post]
func (s *Server) DeactivateHousehold(c *gin.Context) {
	s.setHouseholdActive(c, false, "household.deactivate")
}

func (s *Server) setHouseholdActive(c *gin.Context, active bool, action string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	household, err := s.householdSvc.SetActive(c.Request.Context(), id, active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &household.ID, action, "household", household.ID.String(), nil)

	respondData(c, household)
}

type changeTierRequest struct {
	Tier string `json:"tier"`
}

// @Summary      Change Household Tier
// @Description  Move the household to another tier; existing overage is kept, only new growth is guarded
// @Tags         households
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string             true  "Household ID"
// @Param        request  body  changeTierRequest  true  "Change Tier Request"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/tier [post]
func (s *Server) ChangeHouseholdTier(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req changeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	household, err := s.householdSvc.ChangeTier(c.Request.Context(), id, householddomain.Tier(strings.TrimSpace(req.Tier)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &household.ID, "household.tier.change", "household", household.ID.String(), map[string]any{
		"tier": household.Tier,
	})

	respondData(c, household)
}

type addMemberRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// @Summary      Add Member
// @Description  Add a member; guarded by the active_members quota
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string            true  "Household ID"
// @Param        request  body  addMemberRequest  true  "Add Member Request"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/members [post]
func (s *Server) AddMember(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.householdSvc.AddMember(c.Request.Context(), householddomain.AddMemberRequest{
		HouseholdID: householdID,
		Name:        strings.TrimSpace(req.Name),
		Role:        householddomain.MemberRole(strings.TrimSpace(req.Role)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "household.member.add", "member", member.ID.String(), map[string]any{
		"name": member.Name,
		"role": member.Role,
	})

	respondData(c, member)
}

// @Summary      List Members
// @Description  List household members, active and removed
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Household ID"
// @Success      200  {object}  ListResponse
// @Router       /households/{id}/members [get]
func (s *Server) ListMembers(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := s.householdSvc.ListMembers(c.Request.Context(), householdID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, members, nil)
}

// @Summary      Remove Member
// @Description  Deactivate a member and terminate every active plan they own or share in
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id        path  string  true  "Household ID"
// @Param        memberID  path  string  true  "Member ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/members/{memberID} [delete]
func (s *Server) RemoveMember(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "memberID")
	if !ok {
		return
	}

	result, err := s.householdSvc.RemoveMember(c.Request.Context(), householdID, memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "household.member.remove", "member", memberID.String(), map[string]any{
		"terminated_plans": len(result.TerminatedPlans),
		"already_removed":  result.AlreadyRemoved,
	})

	respondData(c, result)
}
