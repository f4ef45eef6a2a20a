package handlers

import (
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/models"
	"vidchat-service/internal/relay"
	"vidchat-service/internal/repositories"
)

// maxMessageLength keeps an inserted row well inside the 8000 byte limit of
// a Postgres notification payload.
const maxMessageLength = 2000

func listMessages(c *gin.Context, messages repositories.ChatMessageRepository, room models.RoomRef) {
	msgs, err := messages.RecentMessages(c.Request.Context(), room, relay.DefaultHistoryLimit)
	if err != nil {
		log.Printf("recent messages kind=%s room=%s: %v", room.Kind, room.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// postMessage inserts the row only; subscribers learn about it through the
// change feed.
func postMessage(c *gin.Context, messages repositories.ChatMessageRepository, room models.RoomRef) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message cannot be empty"})
		return
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is too long"})
		return
	}

	msg, err := messages.CreateMessage(c.Request.Context(), room, c.GetString("userID"), content)
	if err != nil {
		log.Printf("create message kind=%s room=%s: %v", room.Kind, room.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}
