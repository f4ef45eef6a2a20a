package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vidchat-service/internal/mocks"
	"vidchat-service/internal/models"
	"vidchat-service/internal/realtime"
	"vidchat-service/internal/relay"
	"vidchat-service/internal/repositories"
)

type wsFixture struct {
	broker  *realtime.MemoryBroker
	hub     *Hub
	rooms   *mocks.ChatRoomRepositoryMock
	streams *mocks.LiveStreamRepositoryMock
	history *mocks.ChatMessageRepositoryMock
	router  *gin.Engine
	server  *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := realtime.NewMemoryBroker(0)
	presence := realtime.NewPresence(realtime.NewMemoryPresenceStore(), broker, 0)
	profiles := new(mocks.ProfileRepositoryMock)
	profiles.On("GetSender", mock.Anything, "u2").Return(models.Sender{Username: "bob"}, nil)
	history := new(mocks.ChatMessageRepositoryMock)
	history.On("RecentMessages", mock.Anything, mock.Anything, relay.DefaultHistoryLimit).Return([]models.EnrichedMessage{}, nil)

	validator := new(mocks.TokenValidatorMock)
	validator.On("ValidateToken", mock.Anything, "good").Return("u1", nil)
	validator.On("ValidateToken", mock.Anything, mock.Anything).Return("", assert.AnError)

	f := &wsFixture{
		broker:  broker,
		hub:     NewHub(),
		rooms:   new(mocks.ChatRoomRepositoryMock),
		streams: new(mocks.LiveStreamRepositoryMock),
		history: history,
	}
	handler := NewRealtimeHandler(f.hub, relay.New(broker, presence, profiles, history), f.rooms, f.streams, validator)

	f.router = gin.New()
	f.router.GET("/ws/chat-rooms/:room_id", handler.HandleChatRoom)
	f.router.GET("/ws/live-streams/:stream_id", handler.HandleLiveStream)
	f.server = httptest.NewServer(f.router)
	t.Cleanup(func() {
		f.server.Close()
		_ = broker.Close()
	})
	return f
}

func (f *wsFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) relay.Update {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var update relay.Update
		require.NoError(t, conn.ReadJSON(&update))
		if update.Type == typ {
			return update
		}
	}
}

func TestChatRoomSocketStreamsMessages(t *testing.T) {
	f := newWSFixture(t)
	f.rooms.On("GetRoom", mock.Anything, "r1").Return(models.ChatRoom{ID: "r1", IsActive: true}, nil)

	conn := f.dial(t, "/ws/chat-rooms/r1?token=good")
	snapshot := readUntil(t, conn, relay.UpdateSnapshot)
	assert.Equal(t, models.RoomRef{Kind: models.RoomKindChat, ID: "r1"}, snapshot.Room)
	assert.Equal(t, 1, snapshot.Online)
	assert.Equal(t, 1, f.hub.Count(realtime.RoomTopic("r1")))

	roomID := "r1"
	payload, err := json.Marshal(models.ChatMessage{ID: "m1", ChatRoomID: &roomID, UserID: "u2", Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, f.broker.Publish(context.Background(), realtime.Event{
		Topic:   realtime.RoomTopic("r1"),
		Type:    realtime.EventInsert,
		Payload: payload,
	}))

	update := readUntil(t, conn, relay.UpdateMessage)
	require.NotNil(t, update.Message)
	assert.Equal(t, "hi", update.Message.Content)
	assert.Equal(t, "bob", update.Message.Profile.Username)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "resync"}))
	readUntil(t, conn, relay.UpdateSnapshot)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return f.hub.Count(realtime.RoomTopic("r1")) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveStreamSocketTracksViewers(t *testing.T) {
	f := newWSFixture(t)
	left := make(chan struct{})
	f.streams.On("GetLiveStream", mock.Anything, "s1").Return(models.LiveStream{ID: "s1", IsLive: true}, nil)
	f.streams.On("AdjustViewerCount", mock.Anything, "s1", 1).Return(nil).Once()
	f.streams.On("AdjustViewerCount", mock.Anything, "s1", -1).Return(nil).Run(func(mock.Arguments) { close(left) }).Once()

	conn := f.dial(t, "/ws/live-streams/s1?token=good")
	snapshot := readUntil(t, conn, relay.UpdateSnapshot)
	require.NotNil(t, snapshot.Viewers)

	require.NoError(t, f.broker.Publish(context.Background(), realtime.Event{
		Topic:   realtime.ViewersTopic("s1"),
		Type:    realtime.EventUpdate,
		Payload: json.RawMessage(`{"id":"s1","viewer_count":7,"is_live":true}`),
	}))
	update := readUntil(t, conn, relay.UpdateViewers)
	require.NotNil(t, update.Viewers)
	assert.Equal(t, 7, *update.Viewers)

	conn.Close()
	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer count was not decremented")
	}
	f.streams.AssertExpectations(t)
}

func TestSocketRejectsBeforeUpgrade(t *testing.T) {
	f := newWSFixture(t)
	f.rooms.On("GetRoom", mock.Anything, "gone").Return(nil, repositories.ErrChatRoomNotFound)
	f.rooms.On("GetRoom", mock.Anything, "broken").Return(nil, assert.AnError)
	f.streams.On("GetLiveStream", mock.Anything, "ended").Return(nil, repositories.ErrLiveStreamNotFound)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{name: "missing token", path: "/ws/chat-rooms/r1", status: http.StatusUnauthorized},
		{name: "bad token", path: "/ws/chat-rooms/r1?token=bad", status: http.StatusUnauthorized},
		{name: "bad header", path: "/ws/chat-rooms/r1", header: "Token good", status: http.StatusUnauthorized},
		{name: "inactive room", path: "/ws/chat-rooms/gone?token=good", status: http.StatusNotFound},
		{name: "room lookup fails", path: "/ws/chat-rooms/broken", header: "Bearer good", status: http.StatusInternalServerError},
		{name: "stream not live", path: "/ws/live-streams/ended?token=good", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
