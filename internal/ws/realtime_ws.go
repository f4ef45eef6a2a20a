package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"vidchat-service/internal/middleware"
	"vidchat-service/internal/models"
	"vidchat-service/internal/observability"
	"vidchat-service/internal/relay"
	"vidchat-service/internal/repositories"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	viewerTimeout  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientFrame is what clients may send over the socket.
type clientFrame struct {
	Type string `json:"type"`
}

// RealtimeHandler serves the live views of chat rooms and live streams.
type RealtimeHandler struct {
	hub       *Hub
	relay     *relay.Relay
	rooms     repositories.ChatRoomRepository
	streams   repositories.LiveStreamRepository
	validator middleware.TokenValidator
}

func NewRealtimeHandler(hub *Hub, rl *relay.Relay, rooms repositories.ChatRoomRepository, streams repositories.LiveStreamRepository, validator middleware.TokenValidator) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, relay: rl, rooms: rooms, streams: streams, validator: validator}
}

// HandleChatRoom upgrades a connection for an active chat room.
func (h *RealtimeHandler) HandleChatRoom(c *gin.Context) {
	room := models.RoomRef{Kind: models.RoomKindChat, ID: c.Param("room_id")}
	h.handle(c, room, func(ctx context.Context) error {
		_, err := h.rooms.GetRoom(ctx, room.ID)
		if errors.Is(err, repositories.ErrChatRoomNotFound) {
			return errRoomUnavailable
		}
		return err
	})
}

// HandleLiveStream upgrades a connection for a stream that is live.
func (h *RealtimeHandler) HandleLiveStream(c *gin.Context) {
	room := models.RoomRef{Kind: models.RoomKindStream, ID: c.Param("stream_id")}
	h.handle(c, room, func(ctx context.Context) error {
		_, err := h.streams.GetLiveStream(ctx, room.ID)
		if errors.Is(err, repositories.ErrLiveStreamNotFound) {
			return errRoomUnavailable
		}
		return err
	})
}

var errRoomUnavailable = errors.New("room unavailable")

func (h *RealtimeHandler) handle(c *gin.Context, room models.RoomRef, check func(context.Context) error) {
	ctx, span := otel.Tracer("vidchat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("room.kind", string(room.Kind)), attribute.String("room.id", room.ID))
	c.Request = c.Request.WithContext(ctx)

	token, ok := tokenFromRequest(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := check(ctx); err != nil {
		if errors.Is(err, errRoomUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not available"})
			return
		}
		log.Printf("ws room check kind=%s id=%s: %v", room.Kind, room.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	session, err := h.relay.Subscribe(ctx, room, userID)
	if err != nil {
		log.Printf("ws subscribe kind=%s id=%s: %v", room.Kind, room.ID, err)
		span.RecordError(err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	meta := observability.ClientMetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        string(room.Kind),
		ResourceID:  room.ID,
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	topic := relay.MessageTopic(room)
	h.hub.Add(topic, conn, info)
	observability.IncWSActive(info.Kind)
	publishLifecycle(ctx, info, "ws_connect", "")

	if room.Kind == models.RoomKindStream {
		h.adjustViewers(room.ID, 1)
	}

	go h.writePump(conn, session, info)
	go h.readPump(conn, session, info, topic)
}

// readPump owns teardown: it runs until the peer goes away or the write
// side closes the connection.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, session *relay.Session, info ConnInfo, topic string) {
	var closeReason string
	defer func() {
		session.Close()
		h.hub.Remove(topic, conn)
		observability.DecWSActive(info.Kind)
		if info.Kind == string(models.RoomKindStream) {
			h.adjustViewers(info.ResourceID, -1)
		}
		publishLifecycle(context.Background(), info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(context.Background(), info, "ws_error", closeReason)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "resync" {
			if err := session.Resync(context.Background()); err != nil {
				log.Printf("ws resync conn=%s: %v", info.ConnID, err)
			}
		}
	}
}

// writePump is the only writer on the connection.
func (h *RealtimeHandler) writePump(conn *websocket.Conn, session *relay.Session, info ConnInfo) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case update, ok := <-session.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				log.Printf("websocket write error conn=%s: %v", info.ConnID, err)
				return
			}
			if update.Type == relay.UpdateStreamEnded {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *RealtimeHandler) adjustViewers(streamID string, delta int) {
	ctx, cancel := context.WithTimeout(context.Background(), viewerTimeout)
	defer cancel()
	if err := h.streams.AdjustViewerCount(ctx, streamID, delta); err != nil {
		log.Printf("adjust viewer count stream=%s delta=%d: %v", streamID, delta, err)
	}
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		return middleware.BearerToken(header)
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
