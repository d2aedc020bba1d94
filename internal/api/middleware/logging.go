package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apierrors "rankingsengine/pkg/errors"
)

// LoggingMiddleware returns a structured request logger built on the
// process's shared logrus instance.
func LoggingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"clientIP": c.ClientIP(),
			"latency":  time.Since(start).String(),
		}).Info("request handled")
	}
}

// ErrorHandlingMiddleware recovers panics and reports them as an internal
// APIError instead of crashing the process.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithField("panic", err).Error("panic recovered")
				apiErr := apierrors.NewInternalServerError("internal server error")
				c.JSON(apiErr.Code, gin.H{
					"success": false,
					"error":   apiErr,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
