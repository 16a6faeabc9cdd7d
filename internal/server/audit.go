package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	"github.com/homewardlabs/homeward/internal/auditcontext"
	"github.com/homewardlabs/homeward/pkg/db/pagination"
)

// audit records a trail entry for a mutation that just succeeded. The
// actor comes from the request context the auth middleware populated.
func (s *Server) audit(c *gin.Context, householdID *snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	ctx := c.Request.Context()
	actorType, actorID, _ := auditcontext.ActorFromContext(ctx)
	var actorIDPtr *string
	if actorID != "" {
		actorIDPtr = &actorID
	}
	s.auditSvc.AuditLog(ctx, householdID, actorType, actorIDPtr, action, targetType, &targetID, metadata)
}

// @Summary      List Audit Logs
// @Description  List audit entries for a household, newest first
// @Tags         audit
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id      path   string  true   "Household ID"
// @Param        action  query  string  false  "Action filter"
// @Param        from    query  string  false  "From date (YYYY-MM-DD)"
// @Param        to      query  string  false  "To date (YYYY-MM-DD)"
// @Param        cursor  query  string  false  "Cursor"
// @Param        limit   query  int     false  "Limit"
// @Success      200  {object}  ListResponse
// @Router       /households/{id}/audit-logs [get]
func (s *Server) ListAuditLogs(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if s.auditSvc == nil {
		respondList(c, []auditdomain.AuditLog{}, nil)
		return
	}

	var query struct {
		pagination.Pagination
		Action string `form:"action"`
		From   string `form:"from"`
		To     string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := auditdomain.ListFilter{Action: strings.TrimSpace(query.Action)}
	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			AbortWithError(c, newValidationError("from", "invalid_date", "invalid from date"))
			return
		}
		filter.From = from
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			AbortWithError(c, newValidationError("to", "invalid_date", "invalid to date"))
			return
		}
		filter.To = to.Add(24 * time.Hour)
	}

	entries, pageInfo, err := s.auditSvc.List(c.Request.Context(), householdID, filter, query.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, entries, pageInfo)
}

// @Summary      Export Audit Logs
// @Description  Export a household's audit entries as CSV or JSON with a checksum header
// @Tags         audit
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id          path   string  true   "Household ID"
// @Param        start_date  query  string  true   "Start date (YYYY-MM-DD)"
// @Param        end_date    query  string  true   "End date (YYYY-MM-DD), inclusive"
// @Param        format      query  string  false  "csv or json"
// @Param        actions     query  string  false  "Comma-separated action filter"
// @Success      200  {string}  string  "file"
// @Router       /households/{id}/audit-logs/export [get]
func (s *Server) ExportAuditLogs(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if s.exportSvc == nil {
		AbortWithError(c, newValidationError("format", "export_disabled", "audit export is not enabled"))
		return
	}

	startDateStr := strings.TrimSpace(c.Query("start_date"))
	endDateStr := strings.TrimSpace(c.Query("end_date"))
	formatStr := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	actionsStr := strings.TrimSpace(c.Query("actions"))

	if startDateStr == "" || endDateStr == "" {
		AbortWithError(c, newValidationError("start_date", "missing_date_range", "start_date and end_date are required"))
		return
	}

	startDate, err := time.Parse("2006-01-02", startDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_date", "invalid start date"))
		return
	}
	endDate, err := time.Parse("2006-01-02", endDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_date", "invalid end date"))
		return
	}

	// The end date is inclusive on the wire, exclusive in the query.
	endDate = endDate.Add(24 * time.Hour)
	if endDate.Before(startDate) {
		AbortWithError(c, newValidationError("end_date", "invalid_date_range", "end date is before start date"))
		return
	}
	if endDate.Sub(startDate) > 90*24*time.Hour {
		AbortWithError(c, newValidationError("end_date", "date_range_too_wide", "exports cover at most 90 days"))
		return
	}

	var format auditdomain.ExportFormat
	switch formatStr {
	case "csv":
		format = auditdomain.ExportFormatCSV
	case "json":
		format = auditdomain.ExportFormatJSON
	default:
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be csv or json"))
		return
	}

	var actions []string
	if actionsStr != "" {
		actions = strings.Split(actionsStr, ",")
		for i := range actions {
			actions[i] = strings.TrimSpace(actions[i])
		}
	}

	result, err := s.exportSvc.Export(c.Request.Context(), auditdomain.ExportRequest{
		HouseholdID: &householdID,
		StartDate:   startDate,
		EndDate:     endDate,
		Format:      format,
		Actions:     actions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("X-Audit-Export-Checksum", result.Checksum)
	c.Header("X-Audit-Export-Count", strconv.Itoa(result.Count))

	contentType := "text/csv"
	filename := "audit_export_" + startDateStr + "_" + endDateStr + ".csv"
	if result.Format == auditdomain.ExportFormatJSON {
		contentType = "application/json"
		filename = "audit_export_" + startDateStr + "_" + endDateStr + ".json"
	}

	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, result.Data)
}
