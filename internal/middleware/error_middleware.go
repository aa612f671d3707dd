package middleware

import (
	"github.com/gin-gonic/gin"

	"backoffice-chat/pkg/logger"
)

// ErrorHandler logs errors the handlers recorded on the context. The
// handlers have already written the response by the time this runs.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if l != nil {
			l.Errorf("request error: %s", c.Errors.Last().Err.Error())
		}
	}
}
