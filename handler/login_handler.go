package handler

import (
	"log"

	"main/dto"
	"main/middleware"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

func LoginHandler(c *gin.Context, userRepo *repository.UserRepo, registrar *services.SessionRegistrar) {
	var loginReq dto.LoginRequest

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		utils.BadRequest(c, "Invalid Request")
		return
	}

	user, err := userRepo.FindUserByUsername(loginReq.Username)
	if err != nil || user == nil {
		utils.TrackAuthAttempt("failure", "login")
		utils.Unauthorized(c, "Invalid username or password")
		return
	}

	checkPassword, err := services.VerifyPassword(user.Password, loginReq.Password)
	if err != nil || !checkPassword {
		utils.TrackAuthAttempt("failure", "login")
		utils.Unauthorized(c, "Invalid username or password")
		return
	}

	token, err := services.GenerateToken(user.UserID)
	if err != nil {
		utils.InternalError(c, "Failed to generate token")
		return
	}

	refreshToken, err := services.GenerateRefreshToken(user.UserID)
	if err != nil {
		utils.InternalError(c, "Failed to generate refresh token")
		return
	}

	// Session registration is best-effort bookkeeping; it never blocks a
	// successful login.
	hadOthers := false
	if tokenHash := c.GetHeader(middleware.SessionTokenHashHeader); tokenHash != "" {
		hadOthers, err = registrar.RegisterSession(
			c.Request.Context(),
			user,
			tokenHash,
			c.Request.UserAgent(),
			c.ClientIP(),
		)
		if err != nil {
			log.Printf("Warning: session registration failed for %s: %v", user.UserID, err)
		}
	}

	utils.TrackAuthAttempt("success", "login")
	utils.Success(c, gin.H{
		"message":            "Login successful",
		"token":              token,
		"refresh":            refreshToken,
		"had_other_sessions": hadOthers,
	})
}
