package handler

import (
	"net/http"
	"time"

	"tracker/config"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	mode     config.StoreMode
	sessions *usecase.SessionManager
	started  time.Time
}

func NewHealthHandler(mode config.StoreMode, sessions *usecase.SessionManager) *HealthHandler {
	return &HealthHandler{mode: mode, sessions: sessions, started: time.Now()}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"mode":           h.mode,
		"activeSessions": h.sessions.Count(),
		"cpuPercent":     utils.GetCPUUsage(),
		"uptime":         time.Since(h.started).Round(time.Second).String(),
	})
}
