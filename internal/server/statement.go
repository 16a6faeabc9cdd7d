package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// @Summary      Get Monthly Statement
// @Description  Render the household's statement for one month as a PDF; format=json returns the raw data
// @Tags         statements
// @Accept       json
// @Produce      application/pdf
// @Security     ApiKeyAuth
// @Param        id      path   string  true   "Household ID"
// @Param        month   path   string  true   "Month (YYYY-MM)"
// @Param        format  query  string  false  "pdf or json"
// @Success      200  {string}  string  "file"
// @Router       /households/{id}/statements/{month} [get]
func (s *Server) GetStatement(c *gin.Context) {
	householdID, ok := pathID(c, "id")
	if !ok {
		return
	}
	month := strings.TrimSpace(c.Param("month"))

	if strings.EqualFold(c.DefaultQuery("format", "pdf"), "json") {
		statement, err := s.statementSvc.Statement(c.Request.Context(), householdID, month)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondData(c, statement)
		return
	}

	pdf, statement, err := s.statementSvc.RenderPDF(c.Request.Context(), householdID, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\"statement_"+statement.Month+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
