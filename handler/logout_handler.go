package handler

import (
	"log"
	"strings"
	"time"

	"main/middleware"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func LogoutHandler(c *gin.Context, sessionRepo *repository.SessionRepo, auditRepo *repository.AuditRepo) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	// Revoke the tokens the client presented
	accessToken := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	c.ShouldBindJSON(&body)

	if err := services.BlacklistTokens(accessToken, body.RefreshToken); err != nil {
		log.Printf("Warning: failed to blacklist tokens: %v", err)
	}

	// Deactivate this device's session row
	if tokenHash := c.GetHeader(middleware.SessionTokenHashHeader); tokenHash != "" {
		session, err := sessionRepo.GetByTokenHash(c.Request.Context(), tokenHash)
		if err == nil && session != nil {
			if _, err := sessionRepo.Deactivate(c.Request.Context(), userID.(string), session.SessionID); err != nil {
				log.Printf("Warning: failed to deactivate session on logout: %v", err)
			}
			entry := &model.AuditEntry{
				ID:        uuid.New().String(),
				UserID:    userID.(string),
				Action:    model.AuditSessionKilled,
				SessionID: session.SessionID,
				Detail:    "logout",
				CreatedAt: time.Now(),
			}
			if err := auditRepo.Append(c.Request.Context(), entry); err != nil {
				log.Printf("Warning: failed to append audit entry: %v", err)
			}
		}
	}

	utils.Success(c, gin.H{
		"message": "Successfully logged out",
	})
}
