package handler

import (
	"tracker/dto"
	"tracker/services"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	gate   *usecase.Gate
	tokens *services.TokenService
}

func NewAuthHandler(gate *usecase.Gate, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{gate: gate, tokens: tokens}
}

// Login authenticates and returns a bearer token bound to the new session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.TrackError("auth", "invalid_request")
		utils.BadRequest(c, "Invalid request body")
		return
	}

	active, err := h.gate.Authenticate(c.Request.Context(), usecase.Credential{
		Email:    req.Email,
		Password: req.Password,
		Device:   utils.DeviceLabel(c.Request.UserAgent()),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(active.Session)
	if err != nil {
		h.gate.Logout(active.Session.SessionID)
		utils.TrackError("auth", "token_generation")
		utils.InternalError(c, "Error generating token")
		return
	}

	utils.Success(c, dto.ToLoginResponse(token, expiresAt, active.Session))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}
	h.gate.Logout(active.Session.SessionID)
	utils.Message(c, "Logged out")
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.gate.ChangePassword(c.Request.Context(), active.Session,
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Password updated")
}
