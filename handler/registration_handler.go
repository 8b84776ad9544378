package handler

import (
	"time"

	"main/dto"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

func RegistrationHandler(c *gin.Context, userRepo *repository.UserRepo) {
	var req dto.RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	existing, err := userRepo.FindUserByUsername(req.Username)
	if err != nil {
		utils.InternalError(c, "Failed to check username")
		return
	}
	if existing != nil {
		utils.Conflict(c, "Username already exists")
		return
	}

	hashedPassword, err := services.HashPassword(req.Password)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user := &model.User{
		UserID:    utils.GenerateUserID(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashedPassword,
		CreatedAt: time.Now(),
	}

	if _, err := userRepo.AddUser(c.Request.Context(), user); err != nil {
		utils.InternalError(c, "Failed to create user")
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

	utils.Created(c, gin.H{
		"user":    dto.ToUserProfileResponse(user),
		"token":   token,
		"refresh": refreshToken,
	})
}
