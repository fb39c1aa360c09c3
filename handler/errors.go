package handler

import (
	"errors"

	"tracker/logging"
	"tracker/middleware"
	"tracker/model"
	"tracker/repository"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var (
		verr *model.ValidationError
		ierr *model.ImportFormatError
		aerr *model.AuthError
	)

	switch {
	case errors.As(err, &verr):
		utils.InvalidField(c, verr.Field, verr.Error())
	case errors.As(err, &ierr):
		utils.BadRequest(c, ierr.Error())
	case errors.As(err, &aerr):
		utils.Unauthorized(c, aerr.Message)
	case errors.Is(err, model.ErrNotAuthenticated):
		utils.Unauthorized(c, "Not logged in")
	case errors.Is(err, model.ErrNotFound):
		utils.NotFound(c, "Record not found")
	case errors.Is(err, model.ErrDuplicateID):
		utils.Conflict(c, "Record already exists")
	case repository.IsUnavailable(err):
		utils.Unavailable(c, "Storage is temporarily unavailable")
	default:
		logging.For("http").WithError(err).
			WithField("request_id", c.GetString(middleware.RequestIDKey)).
			Error("Request failed")
		utils.InternalError(c, "Internal server error")
	}
}

// activeSession returns the session resolved by the auth middleware.
func activeSession(c *gin.Context) (*usecase.ActiveSession, bool) {
	v, exists := c.Get(middleware.ActiveSessionKey)
	if !exists {
		utils.Unauthorized(c, "Not logged in")
		return nil, false
	}
	active, ok := v.(*usecase.ActiveSession)
	if !ok || active == nil {
		utils.Unauthorized(c, "Not logged in")
		return nil, false
	}
	return active, true
}
