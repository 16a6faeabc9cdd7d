package server

import (
	"github.com/gin-gonic/gin"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"gorm.io/gorm"
)

// @Summary      Get Usage Ledger
// @Description  Read the household's usage counters; a household without activity reads as all zeros
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Household ID"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/ledger [get]
func (s *Server) GetLedger(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := s.householdSvc.Get(c.Request.Context(), householdID); err != nil {
		AbortWithError(c, err)
		return
	}

	row, err := s.ledgerSvc.Get(c.Request.Context(), householdID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, row)
}

type ledgerDeltasRequest struct {
	Deltas map[string]int64 `json:"deltas"`
}

func (r ledgerDeltasRequest) toDeltas() ledgerdomain.Deltas {
	deltas := make(ledgerdomain.Deltas, len(r.Deltas))
	for metric, delta := range r.Deltas {
		deltas[ledgerdomain.Metric(metric)] = delta
	}
	return deltas
}

// @Summary      Apply Ledger Deltas
// @Description  Commit counter deltas atomically; counters clamp at zero and no ceiling is enforced here
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string               true  "Household ID"
// @Param        request  body  ledgerDeltasRequest  true  "Deltas keyed by metric"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/ledger/apply [post]
func (s *Server) ApplyLedger(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ledgerDeltasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	household, err := s.householdSvc.Get(c.Request.Context(), householdID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !household.Active {
		AbortWithError(c, householddomain.ErrHouseholdInactive)
		return
	}

	var row *ledgerdomain.UsageLedger
	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var txErr error
		row, txErr = s.ledgerSvc.Apply(c.Request.Context(), tx, householdID, req.toDeltas())
		return txErr
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, &householdID, "ledger.apply", "usage_ledger", householdID.String(), map[string]any{
		"deltas": req.Deltas,
	})

	respondData(c, row)
}

// @Summary      Check Quota
// @Description  Verify the requested growth would stay within the tier's ceilings; never mutates
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string               true  "Household ID"
// @Param        request  body  ledgerDeltasRequest  true  "Deltas keyed by metric"
// @Success      200  {object}  DataResponse
// @Router       /households/{id}/quota/check [post]
func (s *Server) CheckQuota(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ledgerDeltasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	deltas := req.toDeltas()
	if err := s.quotaSvc.Assert(c.Request.Context(), s.db, householdID, deltas); err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{"allowed": true, "deltas": req.Deltas})
}

// @Summary      Get Usage Report
// @Description  Per-metric usage with the tier's ceilings and remaining headroom
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id  path  string  true  "Household ID"
// @Success      200  {object}  ListResponse
// @Router       /households/{id}/usage [get]
func (s *Server) GetUsage(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}

	usage, err := s.quotaSvc.Usage(c.Request.Context(), householdID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, usage, nil)
}
