package middleware

import (
	"strings"

	"tracker/services"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ActiveSessionKey = "active"
	SessionKey       = "session"
	UserIDKey        = "user_id"
)

// AuthMiddleware resolves the bearer token to a live session. The token may
// also come from the access_token query parameter, since browser event
// streams cannot set headers.
func AuthMiddleware(tokens *services.TokenService, sessions *usecase.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.Unauthorized(c, "Missing or invalid token")
			c.Abort()
			return
		}

		active, reason := resolveSession(tokens, sessions, tokenString)
		if active == nil {
			utils.Unauthorized(c, reason)
			c.Abort()
			return
		}

		setSession(c, active)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the session when a valid token is present
// and lets anonymous requests through untouched.
func OptionalAuthMiddleware(tokens *services.TokenService, sessions *usecase.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if active, _ := resolveSession(tokens, sessions, tokenString); active != nil {
				setSession(c, active)
			}
		}
		c.Next()
	}
}

func resolveSession(tokens *services.TokenService, sessions *usecase.SessionManager, tokenString string) (*usecase.ActiveSession, string) {
	claims, err := tokens.ParseToken(tokenString)
	if err != nil {
		utils.TrackError("auth", "invalid_token")
		return nil, "Invalid token"
	}

	// Logged-out sessions are gone from the manager even if the token
	// has not expired yet.
	active, err := sessions.Get(claims.SessionID)
	if err != nil || active.Session.UserID != claims.UserID {
		return nil, "Session has ended"
	}
	return active, ""
}

func setSession(c *gin.Context, active *usecase.ActiveSession) {
	c.Set(ActiveSessionKey, active)
	c.Set(SessionKey, active.Session)
	c.Set(UserIDKey, active.Session.UserID)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("access_token")
}
