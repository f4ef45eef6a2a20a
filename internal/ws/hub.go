package ws

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vidchat-service/internal/observability"
)

// Hub tracks open websocket connections per topic.
type Hub struct {
	rooms map[string]map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]ConnInfo)}
}

// Add registers a connection under a topic.
func (h *Hub) Add(topic string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[topic]; !ok {
		h.rooms[topic] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[topic][conn] = info
}

// Remove forgets a connection. Empty topics are dropped.
func (h *Hub) Remove(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[topic]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, topic)
		}
	}
}

func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

// TopicStats describes the connections of one topic.
type TopicStats struct {
	Topic       string   `json:"topic"`
	Connections int      `json:"connections"`
	Users       []string `json:"users"`
}

// Snapshot lists every topic with open connections, sorted by topic.
func (h *Hub) Snapshot() []TopicStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make([]TopicStats, 0, len(h.rooms))
	for topic, conns := range h.rooms {
		seen := make(map[string]struct{}, len(conns))
		users := make([]string, 0, len(conns))
		for _, info := range conns {
			if _, ok := seen[info.UserID]; ok {
				continue
			}
			seen[info.UserID] = struct{}{}
			users = append(users, info.UserID)
		}
		sort.Strings(users)
		stats = append(stats, TopicStats{Topic: topic, Connections: len(conns), Users: users})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Topic < stats[j].Topic })
	return stats
}

// CloseAll sends a going-away close frame to every connection and closes it.
// Each connection's read loop then runs its own cleanup.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0)
	for _, room := range h.rooms {
		for conn := range room {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Printf("websocket close error: %v", err)
		}
		conn.Close()
	}
}

// publishLifecycle ships a connect, disconnect or error event for a
// connection to the message bus.
func publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(info.Kind, event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        info.Kind,
			"resource_id": info.ResourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	if err := observability.PublishEvent(ctx, wsRoutingKey(info.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers); err != nil {
		log.Printf("publish %s event conn=%s: %v", event, info.ConnID, err)
	}
}

func wsRoutingKey(kind string) string {
	return "ws_events." + kind
}
