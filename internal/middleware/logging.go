// Package middleware holds the gin middleware of the telemetry server.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

const headerCorrelationID = "X-Correlation-ID"

// Logging tags each request with a correlation ID (taken from the request
// header when present) and logs it once served. Scrapes are frequent, so
// successful requests log at debug.
func Logging(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(headerCorrelationID)
		if id == "" {
			id = logging.NewCorrelationID()
		}
		ctx := logging.WithCorrelationID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(headerCorrelationID, id)

		c.Next()

		entry := logger.WithContext(ctx).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
		for _, err := range c.Errors {
			entry = entry.WithField("error", err.Error())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Telemetry request failed")
			return
		}
		entry.Debug("Telemetry request")
	}
}

// Recovery turns a handler panic into a 500 carrying the correlation ID.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithContext(c.Request.Context()).WithField("panic", recovered).Error("Telemetry handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":          "internal server error",
			"correlation_id": logging.GetCorrelationID(c.Request.Context()),
		})
	})
}
