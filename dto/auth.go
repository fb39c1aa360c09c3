package dto

import (
	"time"

	"tracker/model"
)

// LoginRequest signs in, or registers on first use. Email is ignored by the
// local credential backend.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Session   *model.Session `json:"session"`
}

func ToLoginResponse(token string, expiresAt time.Time, session *model.Session) LoginResponse {
	return LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Session:   session,
	}
}
