package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidchat-service/internal/auth"
	"vidchat-service/internal/middleware"
	"vidchat-service/internal/models"
	"vidchat-service/internal/repositories"
	"vidchat-service/internal/telemetry"
)

// AuthService is the account surface used by AuthHandler.
type AuthService interface {
	SignUp(ctx context.Context, email, password, username string) (models.Session, error)
	SignIn(ctx context.Context, email, password string) (models.Session, error)
	SignOut(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler exposes sign-up, sign-in, sign-out and password reset.
type AuthHandler struct {
	svc   AuthService
	audit *telemetry.AuditEmitter
}

func NewAuthHandler(svc AuthService, emitter *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{svc: svc, audit: emitter}
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password, req.Username)
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, repositories.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("sign up failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	c.Set(middleware.UserIDKey, session.UserID)
	audit(c, h.audit, "INFO", "auth.sign_up", "account created", "user:"+session.UserID)
	c.JSON(http.StatusCreated, session)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		audit(c, h.audit, "WARN", "auth.sign_in_failed", "invalid credentials", "")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("sign in failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	c.Set(middleware.UserIDKey, session.UserID)
	audit(c, h.audit, "INFO", "auth.sign_in", "signed in", "user:"+session.UserID)
	c.JSON(http.StatusOK, session)
}

// SignOut revokes the bearer token of the request. It runs behind the auth
// middleware, so the header is known to be well formed.
func (h *AuthHandler) SignOut(c *gin.Context) {
	token, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	if err := h.svc.SignOut(c.Request.Context(), token); err != nil {
		log.Printf("sign out failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign out"})
		return
	}
	audit(c, h.audit, "INFO", "auth.sign_out", "signed out", "")
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		log.Printf("password reset request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request password reset"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "ok"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidResetToken), errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("password reset failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		return
	}
	audit(c, h.audit, "INFO", "auth.password_reset", "password changed", "")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
