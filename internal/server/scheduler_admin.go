package server

import (
	"github.com/gin-gonic/gin"
	"github.com/homewardlabs/homeward/internal/clock"
)

type runDueCyclesRequest struct {
	// AsOf replays the pass as of a past or future day (YYYY-MM-DD).
	// Empty means today.
	AsOf string `json:"as_of"`
}

// @Summary      Run Due Cycles
// @Description  Trigger one scheduler pass immediately instead of waiting for the interval
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request  body  runDueCyclesRequest  false  "Options"
// @Success      200  {object}  DataResponse
// @Router       /admin/scheduler/run-due-cycles [post]
func (s *Server) RunDueCycles(c *gin.Context) {
	if s.scheduler == nil {
		AbortWithError(c, newValidationError("", "scheduler_disabled", "scheduler is not running in this process"))
		return
	}

	var req runDueCyclesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	ctx := c.Request.Context()
	if req.AsOf != "" {
		asOf, apiErr := parseDate(req.AsOf, "as_of")
		if apiErr != nil {
			AbortWithError(c, apiErr)
			return
		}
		ctx = clock.WithFrozen(ctx, asOf)
	}

	report, err := s.scheduler.RunDueCycles(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, nil, "scheduler.run_due_cycles", "scheduler", report.RunID, map[string]any{
		"as_of":          report.AsOf,
		"plans_seen":     report.PlansSeen,
		"cycles_created": report.CyclesCreated,
	})

	respondData(c, report)
}
