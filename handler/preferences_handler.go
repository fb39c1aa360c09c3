package handler

import (
	"tracker/dto"
	"tracker/middleware"
	"tracker/repository"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

type PreferencesHandler struct {
	prefs *repository.PreferenceRepo
}

func NewPreferencesHandler(prefs *repository.PreferenceRepo) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

// GetTheme serves the caller's theme, or the local user's before login.
func (h *PreferencesHandler) GetTheme(c *gin.Context) {
	theme, err := h.prefs.Theme(c.Request.Context(), c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"theme": theme})
}

func (h *PreferencesHandler) SetTheme(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var req dto.ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	theme := repository.Theme(req.Theme)
	if err := h.prefs.SetTheme(c.Request.Context(), active.Session.UserID, theme); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"theme": theme})
}
