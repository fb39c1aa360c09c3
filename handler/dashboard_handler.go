package handler

import (
	"tracker/model"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

// Dashboard returns stats and the filtered project, task and reminder views
// derived from the session cache.
func (h *EntityHandler) Dashboard(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var filter model.DashboardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.BadRequest(c, "Invalid query parameters")
		return
	}
	if err := utils.ValidateStruct(filter); err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, active.Cache.Dashboard(filter))
}
