package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/katastar/katastar/internal/logger"
)

const loggerKey = "logger"

// Logger logs each request with method, path, status and duration, using a
// child logger carrying the request ID. The child logger is stored in the
// context for handlers.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestLogger := log.WithRequestID(GetRequestID(c))
		c.Set(loggerKey, requestLogger)

		c.Next()

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}
		if len(c.Request.URL.RawQuery) > 0 {
			fields["query"] = c.Request.URL.RawQuery
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			requestLogger.Error("request completed with server error", nil, fields)
		case status >= 400:
			requestLogger.Warn("request completed with client error", fields)
		default:
			requestLogger.Info("request completed", fields)
		}
	}
}

// GetLogger retrieves the request-scoped logger from the Gin context, or nil
// when the middleware did not run.
func GetLogger(c *gin.Context) *logger.Logger {
	if log, exists := c.Get(loggerKey); exists {
		if l, ok := log.(*logger.Logger); ok {
			return l
		}
	}
	return nil
}
