package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the context key for the per-request correlation ID
const RequestIDKey = "request_id"

// RequestIDMiddleware tags every request with a correlation ID. A client
// supplied X-Request-ID is honored; otherwise a short ID is generated.
// The ID is stored in the context for log correlation and echoed back in
// the response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			// First 8 chars of a UUID are enough to grep a log by
			requestID = uuid.New().String()[:8]
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// GetRequestID returns the request's correlation ID, or "" outside the
// middleware
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		return id.(string)
	}
	return ""
}
