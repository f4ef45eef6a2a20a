package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/repositories"
)

const (
	commentsLimit    = 50
	maxCommentLength = 2000
)

type CommentHandler struct {
	comments repositories.CommentRepository
}

func NewCommentHandler(comments repositories.CommentRepository) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// ListComments returns a video's comments; ?sort=newest orders by time,
// anything else by likes.
func (h *CommentHandler) ListComments(c *gin.Context) {
	sort := repositories.CommentSortTop
	if c.Query("sort") == repositories.CommentSortNewest {
		sort = repositories.CommentSortNewest
	}

	comments, err := h.comments.ListComments(c.Request.Context(), c.Param("video_id"), sort, commentsLimit)
	if err != nil {
		log.Printf("list comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || utf8.RuneCountInString(content) > maxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment must be between 1 and 2000 characters"})
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), c.Param("video_id"), c.GetString("userID"), req.ParentID, content)
	if err != nil {
		log.Printf("create comment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to post comment"})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) ToggleLike(c *gin.Context) {
	liked, err := h.comments.ToggleCommentLike(c.Request.Context(), c.GetString("userID"), c.Param("comment_id"))
	if errors.Is(err, repositories.ErrCommentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("toggle comment like: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update like"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}
