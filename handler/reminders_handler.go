package handler

import (
	"tracker/dto"
	"tracker/model"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

func (h *EntityHandler) ListReminders(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}
	utils.Success(c, active.Cache.Reminders())
}

func (h *EntityHandler) CreateReminder(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var req dto.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	reminder, err := h.entities.CreateReminder(c.Request.Context(), active.Session, req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, reminder)
}

func (h *EntityHandler) UpdateReminder(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var patch model.ReminderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.entities.UpdateReminder(c.Request.Context(), active.Session, c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Reminder updated")
}

// MarkReminderNotified acknowledges a reminder, typically an overdue one the
// scheduler never fired.
func (h *EntityHandler) MarkReminderNotified(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	if err := h.entities.MarkReminderNotified(c.Request.Context(), active.Session, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Reminder marked as notified")
}

func (h *EntityHandler) DeleteReminder(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	if err := h.entities.DeleteReminder(c.Request.Context(), active.Session, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Reminder deleted")
}
