package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
	"vidchat-service/internal/storage"
	"vidchat-service/internal/telemetry"
	"vidchat-service/internal/upload"
)

const (
	feedLimit             = 20
	subscriptionFeedLimit = 50
	minSearchLength       = 3
	maxTitleLength        = 100
)

// VideoHandler serves video pages, feeds, reactions and uploads.
type VideoHandler struct {
	videos         repositories.VideoRepository
	engagement     repositories.EngagementRepository
	channels       repositories.ChannelRepository
	store          storage.Store
	pipeline       *upload.Pipeline
	audit          *telemetry.AuditEmitter
	maxUploadBytes int64
}

func NewVideoHandler(videos repositories.VideoRepository, engagement repositories.EngagementRepository, channels repositories.ChannelRepository, store storage.Store, pipeline *upload.Pipeline, emitter *telemetry.AuditEmitter, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{
		videos:         videos,
		engagement:     engagement,
		channels:       channels,
		store:          store,
		pipeline:       pipeline,
		audit:          emitter,
		maxUploadBytes: maxUploadBytes,
	}
}

// Search matches public video titles. Short queries return nothing.
func (h *VideoHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(query) < minSearchLength {
		c.JSON(http.StatusOK, gin.H{"videos": []models.VideoSummary{}})
		return
	}

	videos, err := h.videos.SearchVideos(c.Request.Context(), query, feedLimit)
	if err != nil {
		log.Printf("search videos: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search videos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *VideoHandler) Shorts(c *gin.Context) {
	videos, err := h.videos.ListShorts(c.Request.Context(), feedLimit)
	if err != nil {
		log.Printf("list shorts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load shorts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// GetVideo returns the video with the caller's reaction and subscription
// state, and counts the view.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("userID")

	video, ok := h.loadVideo(c)
	if !ok {
		return
	}
	if video.Visibility == models.VisibilityPrivate && video.ChannelUserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": repositories.ErrVideoNotFound.Error()})
		return
	}

	if err := h.videos.IncrementViews(ctx, video.ID); err != nil {
		log.Printf("increment views video=%s: %v", video.ID, err)
	}

	reaction, err := h.engagement.GetVideoReaction(ctx, userID, video.ID)
	if err != nil {
		log.Printf("load reaction video=%s: %v", video.ID, err)
	}
	subscribed, err := h.channels.IsSubscribed(ctx, userID, video.ChannelID)
	if err != nil {
		log.Printf("load subscription channel=%s: %v", video.ChannelID, err)
	}

	c.JSON(http.StatusOK, gin.H{"video": video, "reaction": reaction, "subscribed": subscribed})
}

// SetReaction likes (true), dislikes (false) or clears (null) the caller's
// reaction.
func (h *VideoHandler) SetReaction(c *gin.Context) {
	var req struct {
		IsLike *bool `json:"is_like"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.engagement.SetVideoReaction(c.Request.Context(), c.GetString("userID"), c.Param("video_id"), req.IsLike)
	if errors.Is(err, repositories.ErrVideoNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("set reaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save reaction"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *VideoHandler) RecordWatch(c *gin.Context) {
	var req struct {
		Progress int `json:"progress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid progress"})
		return
	}

	if err := h.engagement.RecordWatch(c.Request.Context(), c.GetString("userID"), c.Param("video_id"), req.Progress); err != nil {
		log.Printf("record watch: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record watch"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Upload stores a multipart video (and optional thumbnail) for the caller's
// channel and returns the created row with the progress steps taken.
func (h *VideoHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("userID")
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	channel, err := h.channels.GetChannelByOwner(ctx, userID)
	if errors.Is(err, repositories.ErrChannelNotFound) {
		c.JSON(http.StatusForbidden, gin.H{"error": "create a channel before uploading"})
		return
	}
	if err != nil {
		log.Printf("load channel for upload user=%s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channel"})
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required and at most 100 characters"})
		return
	}
	visibility := c.DefaultPostForm("visibility", models.VisibilityPublic)
	switch visibility {
	case models.VisibilityPublic, models.VisibilityUnlisted, models.VisibilityPrivate:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility"})
		return
	}
	isShort, _ := strconv.ParseBool(c.PostForm("is_short"))
	duration, _ := strconv.Atoi(c.PostForm("duration"))

	videoFile, err := openFormFile(c, "video")
	if err != nil || videoFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": upload.ErrMissingVideo.Error()})
		return
	}
	defer videoFile.Close()

	req := upload.Request{
		UserID:      userID,
		ChannelID:   channel.ID,
		Title:       title,
		Description: optionalForm(c, "description"),
		Category:    optionalForm(c, "category"),
		Visibility:  visibility,
		IsShort:     isShort,
		Duration:    duration,
		Video:       videoFile,
	}
	thumbnail, err := openFormFile(c, "thumbnail")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thumbnail"})
		return
	}
	if thumbnail != nil {
		defer thumbnail.Close()
		req.Thumbnail = thumbnail
	}

	var progress []upload.Progress
	video, err := h.pipeline.Run(ctx, req, func(p upload.Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "progress": progress})
		return
	}

	audit(c, h.audit, "INFO", "video.upload", "video uploaded", "video:"+video.ID)
	c.JSON(http.StatusCreated, gin.H{"video": video, "progress": progress})
}

// DeleteVideo removes a video owned by the caller and its stored objects.
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	video, ok := h.loadVideo(c)
	if !ok {
		return
	}
	if video.ChannelUserID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the channel owner can delete this video"})
		return
	}

	if err := h.videos.DeleteVideo(c.Request.Context(), video.ID); err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Printf("delete video %s: %v", video.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete video"})
		return
	}
	upload.RemoveObjects(c.Request.Context(), h.store, video.Video)

	audit(c, h.audit, "INFO", "video.delete", "video deleted", "video:"+video.ID)
	c.Status(http.StatusNoContent)
}

func (h *VideoHandler) loadVideo(c *gin.Context) (models.VideoSummary, bool) {
	video, err := h.videos.GetVideo(c.Request.Context(), c.Param("video_id"))
	if errors.Is(err, repositories.ErrVideoNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return models.VideoSummary{}, false
	}
	if err != nil {
		log.Printf("get video: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load video"})
		return models.VideoSummary{}, false
	}
	return video, true
}

// openFormFile returns nil without error when the field is absent.
func openFormFile(c *gin.Context, field string) (multipart.File, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return header.Open()
}

func optionalForm(c *gin.Context, field string) *string {
	value := strings.TrimSpace(c.PostForm(field))
	if value == "" {
		return nil
	}
	return &value
}
