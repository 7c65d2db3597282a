package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novacode/novacode-backend/internal/api/http/respond"
	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/logging"
)

const HeaderRequestID = "X-Request-Id"

// RequestID ensures every request has a stable request ID.
// - Reads X-Request-Id header if present
// - Otherwise generates a new one
// - Stores it in the Gin context and in the request context for loggers
// - Echoes it back in response header X-Request-Id
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Set("request_id", rid)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), rid))
		c.Writer.Header().Set(HeaderRequestID, rid)

		c.Next()
	}
}

// AccessLog logs method, path, status and latency once the handler returns.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		)
	}
}

// Recovery turns panics into unhandled error responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := apperr.Unhandled(c.FullPath(), fmt.Errorf("panic: %v", recovered))
		logging.NewLogger(c.Request.Context()).LogError("recovery", err)
		respond.Error(c, err)
		c.Abort()
	})
}
