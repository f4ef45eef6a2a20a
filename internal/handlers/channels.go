package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/repositories"
)

const channelVideosLimit = 20

// ChannelHandler serves channel pages and subscriptions.
type ChannelHandler struct {
	channels repositories.ChannelRepository
	videos   repositories.VideoRepository
}

func NewChannelHandler(channels repositories.ChannelRepository, videos repositories.VideoRepository) *ChannelHandler {
	return &ChannelHandler{channels: channels, videos: videos}
}

func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channel, err := h.channels.GetChannel(c.Request.Context(), c.Param("channel_id"))
	if errors.Is(err, repositories.ErrChannelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("get channel: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channel"})
		return
	}
	c.JSON(http.StatusOK, channel)
}

// ListVideos returns the channel's public videos; ?tab=shorts lists shorts.
func (h *ChannelHandler) ListVideos(c *gin.Context) {
	tab := c.DefaultQuery("tab", "videos")
	if tab != "videos" && tab != "shorts" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tab must be videos or shorts"})
		return
	}

	videos, err := h.videos.ListChannelVideos(c.Request.Context(), c.Param("channel_id"), tab == "shorts", channelVideosLimit)
	if err != nil {
		log.Printf("list channel videos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load videos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *ChannelHandler) SubscriptionStatus(c *gin.Context) {
	subscribed, err := h.channels.IsSubscribed(c.Request.Context(), c.GetString("userID"), c.Param("channel_id"))
	if err != nil {
		log.Printf("subscription status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
}

func (h *ChannelHandler) Subscribe(c *gin.Context) {
	err := h.channels.Subscribe(c.Request.Context(), c.GetString("userID"), c.Param("channel_id"))
	switch {
	case errors.Is(err, repositories.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, repositories.ErrSelfSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("subscribe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": true})
}

func (h *ChannelHandler) Unsubscribe(c *gin.Context) {
	if err := h.channels.Unsubscribe(c.Request.Context(), c.GetString("userID"), c.Param("channel_id")); err != nil {
		log.Printf("unsubscribe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unsubscribe"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": false})
}
