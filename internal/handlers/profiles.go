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

type ProfileHandler struct {
	profiles repositories.ProfileRepository
}

func NewProfileHandler(profiles repositories.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "me" {
		userID = c.GetString("userID")
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("get profile %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile changes the caller's own profile. Absent fields stay as they are.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		if trimmed == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username cannot be empty"})
			return
		}
		update.Username = &trimmed
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), c.GetString("userID"), update)
	switch {
	case errors.Is(err, repositories.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, repositories.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("update profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}
