package handler

import (
	"log"

	"main/dto"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

type LockHandler struct {
	UserRepo    *repository.UserRepo
	ActivityLog *services.LockActivityLog
}

func NewLockHandler(userRepo *repository.UserRepo, activityLog *services.LockActivityLog) *LockHandler {
	return &LockHandler{
		UserRepo:    userRepo,
		ActivityLog: activityLog,
	}
}

// Lock records that the admin surface was locked. The locking policy
// (inactivity, tab hidden) lives in the client shell; this only keeps the
// activity trail.
func (h *LockHandler) Lock(c *gin.Context) {
	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	if err := h.ActivityLog.Append(model.LockEventLock, req.Reason); err != nil {
		log.Printf("Warning: failed to record lock event: %v", err)
	}

	utils.Success(c, gin.H{
		"state": services.LockStateLocked,
	})
}

// Unlock runs the lock overlay machine for one unlock attempt. Users with a
// TOTP secret enrolled must present a valid code; without the capability the
// unlock succeeds automatically rather than locking the user out.
func (h *LockHandler) Unlock(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request")
		return
	}

	user, err := h.UserRepo.FindUser(userID.(string))
	if err != nil || user == nil {
		utils.InternalError(c, "Failed to fetch user")
		return
	}

	auth := &services.TOTPAuthenticator{}
	if user.TwoFactorEnabled {
		auth.Secret = user.TwoFactorSecret
	}

	unlocked := false
	overlay := services.NewLockOverlay(auth, func() { unlocked = true })
	state := overlay.Begin(req.Code)

	eventType := model.LockEventUnlock
	reason := ""
	if !unlocked {
		eventType = model.LockEventLock
		reason = "unlock failed"
	}
	if err := h.ActivityLog.Append(eventType, reason); err != nil {
		log.Printf("Warning: failed to record lock event: %v", err)
	}

	if !unlocked {
		utils.Unauthorized(c, "Unlock failed")
		return
	}

	utils.Success(c, gin.H{
		"state": state,
	})
}

// GetActivity returns the capped local lock/unlock trail, oldest first.
func (h *LockHandler) GetActivity(c *gin.Context) {
	events, err := h.ActivityLog.Entries()
	if err != nil {
		utils.InternalError(c, "Failed to read lock activity")
		return
	}

	utils.Success(c, gin.H{
		"events": events,
	})
}
