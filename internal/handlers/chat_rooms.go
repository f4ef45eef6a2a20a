package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
)

// ChatRoomHandler manages public chat room endpoints.
type ChatRoomHandler struct {
	rooms    repositories.ChatRoomRepository
	messages repositories.ChatMessageRepository
}

// NewChatRoomHandler builds a ChatRoomHandler.
func NewChatRoomHandler(rooms repositories.ChatRoomRepository, messages repositories.ChatMessageRepository) *ChatRoomHandler {
	return &ChatRoomHandler{rooms: rooms, messages: messages}
}

// ListRooms returns the active rooms.
func (h *ChatRoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		log.Printf("list chat rooms: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *ChatRoomHandler) GetRoom(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *ChatRoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), name, req.Description, c.GetString("userID"))
	if err != nil {
		log.Printf("create chat room: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat room"})
		return
	}
	c.JSON(http.StatusCreated, room)
}

// GetMessages returns the latest messages of the room, oldest first.
func (h *ChatRoomHandler) GetMessages(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	listMessages(c, h.messages, models.RoomRef{Kind: models.RoomKindChat, ID: room.ID})
}

func (h *ChatRoomHandler) PostMessage(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	postMessage(c, h.messages, models.RoomRef{Kind: models.RoomKindChat, ID: room.ID})
}

func (h *ChatRoomHandler) loadRoom(c *gin.Context) (models.ChatRoom, bool) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("room_id"))
	if errors.Is(err, repositories.ErrChatRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return models.ChatRoom{}, false
	}
	if err != nil {
		log.Printf("get chat room: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat room"})
		return models.ChatRoom{}, false
	}
	return room, true
}
