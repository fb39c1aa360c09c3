package middleware

import (
	"net/http"
	"runtime/debug"

	"tracker/logging"
	"tracker/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func EnhancedRecoveryMiddleware() gin.HandlerFunc {
	log := logging.For("http")
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.TrackError("panic", c.FullPath())
				log.WithFields(logrus.Fields{
					"request_id": c.GetString(RequestIDKey),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      err,
					"stack":      string(debug.Stack()),
				}).Error("Recovered from panic")

				if !c.Writer.Written() {
					utils.InternalError(c, http.StatusText(http.StatusInternalServerError))
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
