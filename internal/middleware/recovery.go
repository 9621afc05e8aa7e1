package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/katastar/katastar/internal/logger"
)

// Recovery converts panics into 500 responses instead of crashing the
// server. The response body uses the same detail shape as the registry's
// error payloads.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestLogger := GetLogger(c)
				if requestLogger == nil {
					requestLogger = log
				}

				requestLogger.Error(
					"panic recovered",
					fmt.Errorf("panic: %v", err),
					map[string]interface{}{
						"request_id": GetRequestID(c),
						"method":     c.Request.Method,
						"path":       c.Request.URL.Path,
						"stack":      string(debug.Stack()),
					},
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": "Internal Server Error",
				})
			}
		}()

		c.Next()
	}
}
