package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/homewardlabs/homeward/internal/cadence"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

type shareInput struct {
	MemberID    string `json:"member_id"`
	AmountCents int64  `json:"amount_cents"`
}

func parseShares(inputs []shareInput) ([]expensedomain.ShareInput, *APIError) {
	shares := make([]expensedomain.ShareInput, 0, len(inputs))
	for _, in := range inputs {
		memberID, err := snowflake.ParseString(in.MemberID)
		if err != nil || memberID == 0 {
			return nil, newValidationError("shares", "invalid_member_id", "invalid share member id")
		}
		shares = append(shares, expensedomain.ShareInput{
			MemberID:    memberID,
			AmountCents: in.AmountCents,
		})
	}
	return shares, nil
}

func parseDate(value, field string) (time.Time, *APIError) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, newValidationError(field, "invalid_date", "invalid "+field+", want YYYY-MM-DD")
	}
	return t, nil
}

type createPlanRequest struct {
	OwnerMemberID string       `json:"owner_member_id"`
	Description   string       `json:"description"`
	AmountCents   int64        `json:"amount_cents"`
	Currency      string       `json:"currency"`
	Every         int          `json:"every"`
	Unit          string       `json:"unit"`
	StartDate     string       `json:"start_date"`
	Shares        []shareInput `json:"shares"`
}

// @Summary      Create Recurring Plan
// @Description  Create a plan and materialize its first cycle at the start date
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string             true  "Household ID"
// @Param        request  body  createPlanRequest  true  "Create Plan Request"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/plans [post]
func (s *Server) CreatePlan(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID, err := snowflake.ParseString(req.OwnerMemberID)
	if err != nil || ownerID == 0 {
		AbortWithError(c, newValidationError("owner_member_id", "invalid_id", "invalid owner_member_id"))
		return
	}
	startDate, apiErr := parseDate(req.StartDate, "start_date")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}
	shares, apiErr := parseShares(req.Shares)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	plan, firstCycle, err := s.planSvc.Create(c.Request.Context(), recurringdomain.CreatePlanRequest{
		HouseholdID:   householdID,
		OwnerMemberID: ownerID,
		Description:   strings.TrimSpace(req.Description),
		AmountCents:   req.AmountCents,
		Currency:      strings.TrimSpace(req.Currency),
		Every:         req.Every,
		Unit:          cadence.Unit(strings.TrimSpace(req.Unit)),
		StartDate:     startDate,
		Shares:        shares,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "plan.create", "plan", plan.ID.String(), map[string]any{
		"description":  plan.Description,
		"amount_cents": plan.AmountCents,
		"every":        plan.Every,
		"unit":         plan.Unit,
	})

	respondData(c, gin.H{"plan": plan, "first_cycle": firstCycle})
}

// @Summary      List Recurring Plans
// @Description  List a household's plans with cursor pagination
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id      path   string  true   "Household ID"
// @Param        cursor  query  string  false  "Cursor"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /households/{id}/plans [get]
func (s *Server) ListPlans(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plans, pageInfo, err := s.planSvc.List(c.Request.Context(), householdID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, plans, pageInfo)
}

// @Summary      Get Recurring Plan
// @Description  Fetch one plan with its share split
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id      path  string  true  "Household ID"
// @Param        planID  path  string  true  "Plan ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/plans/{planID} [get]
func (s *Server) GetPlan(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	planID, ok := pathID(c, "planID")
	if !ok {
		return
	}

	plan, shares, err := s.planSvc.Get(c.Request.Context(), householdID, planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"plan": plan, "shares": shares})
}

type terminatePlanRequest struct {
	MemberID string `json:"member_id"`
}

// @Summary      Terminate Recurring Plan
// @Description  Stop future materialization; owner only, replays are reported no-ops
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                true  "Household ID"
// @Param        planID   path  string                true  "Plan ID"
// @Param        request  body  terminatePlanRequest  true  "Acting member"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/plans/{planID}/terminate [post]
func (s *Server) TerminatePlan(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	planID, ok := pathID(c, "planID")
	if !ok {
		return
	}

	var req terminatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := snowflake.ParseString(req.MemberID)
	if err != nil || memberID == 0 {
		AbortWithError(c, newValidationError("member_id", "invalid_id", "invalid member_id"))
		return
	}

	result, err := s.planSvc.Terminate(c.Request.Context(), householdID, planID, memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "plan.terminate", "plan", planID.String(), map[string]any{
		"already_terminated": result.AlreadyTerminated,
	})

	respondData(c, result)
}

type materializePlanRequest struct {
	DueDate string `json:"due_date"`
}

// @Summary      Materialize Plan Cycle
// @Description  Stamp the expense instance for one due date; replaying a date returns the existing instance
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                  true  "Household ID"
// @Param        planID   path  string                  true  "Plan ID"
// @Param        request  body  materializePlanRequest  true  "Cycle due date"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/plans/{planID}/materialize [post]
func (s *Server) MaterializePlan(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	planID, ok := pathID(c, "planID")
	if !ok {
		return
	}

	var req materializePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	dueDate, apiErr := parseDate(req.DueDate, "due_date")
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	result, err := s.planSvc.Materialize(c.Request.Context(), householdID, planID, dueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "plan.materialize", "plan", planID.String(), map[string]any{
		"due_date": req.DueDate,
		"created":  result.Created,
	})

	respondData(c, result)
}
