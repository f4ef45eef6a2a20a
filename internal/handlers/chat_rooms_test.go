package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vidchat-service/internal/mocks"
	"vidchat-service/internal/models"
	"vidchat-service/internal/relay"
	"vidchat-service/internal/repositories"
)

func setupChatRoomRouter(handler *ChatRoomHandler) *gin.Engine {
	return setupRouter(func(r *gin.Engine) {
		r.GET("/chat-rooms", handler.ListRooms)
		r.POST("/chat-rooms", handler.CreateRoom)
		r.GET("/chat-rooms/:room_id", handler.GetRoom)
		r.GET("/chat-rooms/:room_id/messages", handler.GetMessages)
		r.POST("/chat-rooms/:room_id/messages", handler.PostMessage)
	})
}

var chatRoomR1 = models.RoomRef{Kind: models.RoomKindChat, ID: "r1"}

func TestListRoomsSuccess(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, nil))

	rooms.On("ListRooms", mock.Anything).Return([]models.ChatRoom{{ID: "r1", Name: "general"}}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/chat-rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rooms []models.ChatRoom `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Rooms, 1)
	rooms.AssertExpectations(t)
}

func TestListRoomsRepoError(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, nil))

	rooms.On("ListRooms", mock.Anything).Return(nil, assert.AnError).Once()

	rec := doRequest(router, http.MethodGet, "/chat-rooms", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateRoom(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, nil))

	rooms.On("CreateRoom", mock.Anything, "gaming", (*string)(nil), "u1").Return(models.ChatRoom{ID: "r9", Name: "gaming"}, nil).Once()

	rec := doRequest(router, http.MethodPost, "/chat-rooms", `{"name":" gaming "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rooms.AssertExpectations(t)

	rec = doRequest(router, http.MethodPost, "/chat-rooms", `{"name":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, nil))

	rooms.On("GetRoom", mock.Anything, "missing").Return(nil, repositories.ErrChatRoomNotFound).Once()

	rec := doRequest(router, http.MethodGet, "/chat-rooms/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRoomMessages(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	messages := new(mocks.ChatMessageRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, messages))

	rooms.On("GetRoom", mock.Anything, "r1").Return(models.ChatRoom{ID: "r1"}, nil).Once()
	messages.On("RecentMessages", mock.Anything, chatRoomR1, relay.DefaultHistoryLimit).Return([]models.EnrichedMessage{
		{ChatMessage: models.ChatMessage{ID: "m1", Content: "first"}, Profile: models.Sender{Username: "ann"}},
		{ChatMessage: models.ChatMessage{ID: "m2", Content: "second"}, Profile: models.AnonymousSender()},
	}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/chat-rooms/r1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.EnrichedMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "first", resp.Messages[0].Content)
	assert.Equal(t, models.AnonymousUsername, resp.Messages[1].Profile.Username)
	messages.AssertExpectations(t)
}

func TestPostRoomMessageTrimsContent(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	messages := new(mocks.ChatMessageRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, messages))

	rooms.On("GetRoom", mock.Anything, "r1").Return(models.ChatRoom{ID: "r1"}, nil)
	messages.On("CreateMessage", mock.Anything, chatRoomR1, "u1", "hi").Return(models.ChatMessage{ID: "m1", Content: "hi"}, nil).Once()

	rec := doRequest(router, http.MethodPost, "/chat-rooms/r1/messages", `{"content":"  hi \n"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	messages.AssertExpectations(t)
}

func TestPostRoomMessageRejectsInvalidContent(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	messages := new(mocks.ChatMessageRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, messages))

	rooms.On("GetRoom", mock.Anything, "r1").Return(models.ChatRoom{ID: "r1"}, nil)

	for _, body := range []string{`{"content":"   "}`, `{"content":"` + strings.Repeat("a", maxMessageLength+1) + `"}`, `not json`} {
		rec := doRequest(router, http.MethodPost, "/chat-rooms/r1/messages", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostRoomMessageRepoError(t *testing.T) {
	rooms := new(mocks.ChatRoomRepositoryMock)
	messages := new(mocks.ChatMessageRepositoryMock)
	router := setupChatRoomRouter(NewChatRoomHandler(rooms, messages))

	rooms.On("GetRoom", mock.Anything, "r1").Return(models.ChatRoom{ID: "r1"}, nil)
	messages.On("CreateMessage", mock.Anything, chatRoomR1, "u1", "hi").Return(nil, assert.AnError).Once()

	rec := doRequest(router, http.MethodPost, "/chat-rooms/r1/messages", `{"content":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
