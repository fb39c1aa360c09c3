package handler

import (
	"tracker/dto"
	"tracker/model"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

func (h *EntityHandler) ListTasks(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}
	utils.Success(c, active.Cache.Tasks())
}

func (h *EntityHandler) CreateTask(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.entities.CreateTask(c.Request.Context(), active.Session, req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, task)
}

func (h *EntityHandler) UpdateTask(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.entities.UpdateTask(c.Request.Context(), active.Session, c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Task updated")
}

func (h *EntityHandler) DeleteTask(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	if err := h.entities.DeleteTask(c.Request.Context(), active.Session, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Task deleted")
}
