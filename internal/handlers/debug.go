package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/telemetry"
	"vidchat-service/internal/ws"
)

// RegisterDebugRoutes exposes the live websocket topics and an audit probe
// when debug routes are enabled in config.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, hub *ws.Hub, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/connections", func(c *gin.Context) {
		// prefix narrows to one topic family, e.g. "room:" or "chat:".
		prefix := c.Query("prefix")
		topics := make([]ws.TopicStats, 0)
		total := 0
		for _, stats := range hub.Snapshot() {
			if !strings.HasPrefix(stats.Topic, prefix) {
				continue
			}
			topics = append(topics, stats)
			total += stats.Connections
		}
		c.JSON(http.StatusOK, gin.H{"topics": topics, "total": total})
	})

	debug.POST("/audit", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		audit(c, emitter, "INFO", "debug.audit_probe", "audit probe", c.Query("resource"))
		c.JSON(http.StatusAccepted, gin.H{"request_id": requestIDFromContext(c)})
	})
}
