package handler

import (
	"tracker/dto"
	"tracker/model"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

// EntityHandler serves the project, task and reminder collections. Reads come
// from the session cache; writes go to the store and come back through the
// change feed.
type EntityHandler struct {
	entities *usecase.EntityService
}

func NewEntityHandler(entities *usecase.EntityService) *EntityHandler {
	return &EntityHandler{entities: entities}
}

func (h *EntityHandler) ListProjects(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}
	utils.Success(c, active.Cache.Projects())
}

func (h *EntityHandler) CreateProject(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.entities.CreateProject(c.Request.Context(), active.Session, req.ToModel())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, project)
}

func (h *EntityHandler) UpdateProject(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var patch model.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.entities.UpdateProject(c.Request.Context(), active.Session, c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Project updated")
}

// DeleteProject also removes every task that belongs to the project.
func (h *EntityHandler) DeleteProject(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	if err := h.entities.DeleteProject(c.Request.Context(), active.Session, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Project deleted")
}
