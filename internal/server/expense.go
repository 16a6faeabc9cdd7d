package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

type createExpenseRequest struct {
	PayerMemberID string       `json:"payer_member_id"`
	Description   string       `json:"description"`
	AmountCents   int64        `json:"amount_cents"`
	Currency      string       `json:"currency"`
	DueDate       string       `json:"due_date"`
	Shares        []shareInput `json:"shares"`
}

// @Summary      Create Expense
// @Description  Create a one-off expense; the payer's own share starts settled
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                true  "Household ID"
// @Param        request  body  createExpenseRequest  true  "Create Expense Request"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/expenses [post]
func (s *Server) CreateExpense(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payerID, err := snowflake.ParseString(req.PayerMemberID)
	if err != nil || payerID == 0 {
		AbortWithError(c, newValidationError("payer_member_id", "invalid_id", "invalid payer_member_id"))
		return
	}
	shares, apiErr := parseShares(req.Shares)
	if apiErr != nil {
		AbortWithError(c, apiErr)
		return
	}

	domainReq := expensedomain.CreateExpenseRequest{
		HouseholdID:   householdID,
		PayerMemberID: payerID,
		Description:   strings.TrimSpace(req.Description),
		AmountCents:   req.AmountCents,
		Currency:      strings.TrimSpace(req.Currency),
		Shares:        shares,
	}
	if strings.TrimSpace(req.DueDate) != "" {
		dueDate, apiErr := parseDate(req.DueDate, "due_date")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		domainReq.DueDate = &dueDate
	}

	expense, expenseShares, err := s.expenseSvc.Create(c.Request.Context(), domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "expense.create", "expense", expense.ID.String(), map[string]any{
		"description":  expense.Description,
		"amount_cents": expense.AmountCents,
	})

	respondData(c, gin.H{"expense": expense, "shares": expenseShares})
}

// @Summary      List Expenses
// @Description  List expenses, filterable by status, plan, and due window
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id        path   string  true   "Household ID"
// @Param        status    query  string  false  "Status filter"
// @Param        plan_id   query  string  false  "Plan filter"
// @Param        due_from  query  string  false  "Due window start (YYYY-MM-DD)"
// @Param        due_to    query  string  false  "Due window end (YYYY-MM-DD)"
// @Param        cursor    query  string  false  "Cursor"
// @Param        limit     query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /households/{id}/expenses [get]
func (s *Server) ListExpenses(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		Status  string `form:"status"`
		PlanID  string `form:"plan_id"`
		DueFrom string `form:"due_from"`
		DueTo   string `form:"due_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := expensedomain.ListExpenseFilter{
		Status: expensedomain.ExpenseStatus(strings.TrimSpace(query.Status)),
	}
	if strings.TrimSpace(query.PlanID) != "" {
		planID, err := snowflake.ParseString(query.PlanID)
		if err != nil || planID == 0 {
			AbortWithError(c, newValidationError("plan_id", "invalid_id", "invalid plan_id"))
			return
		}
		filter.PlanID = planID
	}
	if strings.TrimSpace(query.DueFrom) != "" {
		from, apiErr := parseDate(query.DueFrom, "due_from")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		filter.DueFrom = &from
	}
	if strings.TrimSpace(query.DueTo) != "" {
		to, apiErr := parseDate(query.DueTo, "due_to")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		filter.DueTo = &to
	}

	expenses, pageInfo, err := s.expenseSvc.List(c.Request.Context(), householdID, filter, query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, expenses, pageInfo)
}

// @Summary      Get Expense
// @Description  Fetch one expense with its shares
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id         path  string  true  "Household ID"
// @Param        expenseID  path  string  true  "Expense ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/expenses/{expenseID} [get]
func (s *Server) GetExpense(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(c, "expenseID")
	if !ok {
		return
	}

	expense, shares, err := s.expenseSvc.Get(c.Request.Context(), householdID, expenseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"expense": expense, "shares": shares})
}

// @Summary      Settle Expense Share
// @Description  Mark one share paid; settling the last open share closes the expense and frees its slot
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id         path  string  true  "Household ID"
// @Param        expenseID  path  string  true  "Expense ID"
// @Param        shareID    path  string  true  "Share ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/expenses/{expenseID}/shares/{shareID}/settle [post]
func (s *Server) SettleExpenseShare(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(c, "expenseID")
	if !ok {
		return
	}
	shareID, ok := pathID(c, "shareID")
	if !ok {
		return
	}

	result, err := s.expenseSvc.SettleShare(c.Request.Context(), householdID, expenseID, shareID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "expense.share.settle", "expense_share", shareID.String(), map[string]any{
		"expense_id":      expenseID,
		"already_settled": result.AlreadySettled,
		"expense_settled": result.ExpenseSettled,
	})

	respondData(c, result)
}
