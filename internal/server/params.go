package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// pathID parses a snowflake path parameter, aborting with a validation
// error on garbage. Callers return immediately when ok is false.
func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid "+name))
		return 0, false
	}
	return id, true
}
