package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request ID in both directions
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID assigns every request an ID, reusing one supplied by the caller
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := GetRequestID(c)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID for c, generating one if needed
func GetRequestID(c *gin.Context) string {
	if reqID, exists := c.Get(requestIDKey); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}

	reqID := c.GetHeader(RequestIDHeader)
	if reqID == "" || len(reqID) > 128 {
		reqID = uuid.NewString()
	}
	c.Set(requestIDKey, reqID)
	return reqID
}
