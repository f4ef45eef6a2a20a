package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vidchat-service/internal/middleware"
	"vidchat-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		return &userID
	}
	return nil
}

func audit(c *gin.Context, emitter *telemetry.AuditEmitter, level, action, text, resource string) {
	emitter.Emit(c.Request.Context(), telemetry.AuditEvent{
		Level:     level,
		Action:    action,
		Text:      text,
		Resource:  resource,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
	})
}
