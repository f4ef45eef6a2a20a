package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
)

const liveStreamsLimit = 20

type LiveStreamHandler struct {
	streams  repositories.LiveStreamRepository
	messages repositories.ChatMessageRepository
}

func NewLiveStreamHandler(streams repositories.LiveStreamRepository, messages repositories.ChatMessageRepository) *LiveStreamHandler {
	return &LiveStreamHandler{streams: streams, messages: messages}
}

func (h *LiveStreamHandler) ListStreams(c *gin.Context) {
	streams, err := h.streams.ListLiveStreams(c.Request.Context(), liveStreamsLimit)
	if err != nil {
		log.Printf("list live streams: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load live streams"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

func (h *LiveStreamHandler) GetStream(c *gin.Context) {
	stream, ok := h.loadStream(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stream)
}

func (h *LiveStreamHandler) GetMessages(c *gin.Context) {
	stream, ok := h.loadStream(c)
	if !ok {
		return
	}
	listMessages(c, h.messages, models.RoomRef{Kind: models.RoomKindStream, ID: stream.ID})
}

func (h *LiveStreamHandler) PostMessage(c *gin.Context) {
	stream, ok := h.loadStream(c)
	if !ok {
		return
	}
	postMessage(c, h.messages, models.RoomRef{Kind: models.RoomKindStream, ID: stream.ID})
}

// loadStream only finds streams that are live.
func (h *LiveStreamHandler) loadStream(c *gin.Context) (models.LiveStream, bool) {
	stream, err := h.streams.GetLiveStream(c.Request.Context(), c.Param("stream_id"))
	if errors.Is(err, repositories.ErrLiveStreamNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return models.LiveStream{}, false
	}
	if err != nil {
		log.Printf("get live stream: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load live stream"})
		return models.LiveStream{}, false
	}
	return stream, true
}
