package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/repositories"
)

// LibraryHandler serves the caller's history, liked videos and
// subscription feed.
type LibraryHandler struct {
	videos     repositories.VideoRepository
	engagement repositories.EngagementRepository
}

func NewLibraryHandler(videos repositories.VideoRepository, engagement repositories.EngagementRepository) *LibraryHandler {
	return &LibraryHandler{videos: videos, engagement: engagement}
}

func (h *LibraryHandler) History(c *gin.Context) {
	entries, err := h.engagement.ListWatchHistory(c.Request.Context(), c.GetString("userID"), feedLimit)
	if err != nil {
		log.Printf("watch history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *LibraryHandler) Liked(c *gin.Context) {
	videos, err := h.engagement.ListLikedVideos(c.Request.Context(), c.GetString("userID"), feedLimit)
	if err != nil {
		log.Printf("liked videos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load liked videos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *LibraryHandler) SubscriptionFeed(c *gin.Context) {
	videos, err := h.videos.ListSubscriptionFeed(c.Request.Context(), c.GetString("userID"), subscriptionFeedLimit)
	if err != nil {
		log.Printf("subscription feed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscriptions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}
