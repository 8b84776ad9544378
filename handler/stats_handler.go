package handler

import (
	"log"

	"main/model"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	userRepo    *repository.UserRepo
	sessionRepo *repository.SessionRepo
	activityLog *services.LockActivityLog
}

func NewStatsHandler(userRepo *repository.UserRepo, sessionRepo *repository.SessionRepo, activityLog *services.LockActivityLog) *StatsHandler {
	return &StatsHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		activityLog: activityLog,
	}
}

// GetSecurityStats feeds the dashboard's security widgets: live session
// count, lock activity and coarse system health.
func (h *StatsHandler) GetSecurityStats(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "Missing or invalid token")
		return
	}

	user, err := h.userRepo.FindUser(userID.(string))
	if err != nil {
		log.Printf("Error fetching user %s: %v", userID, err)
		utils.InternalError(c, "Failed to fetch user details")
		return
	}
	if user == nil {
		utils.NotFound(c, "User not found")
		return
	}

	var stats model.SecurityStats

	active, err := h.sessionRepo.CountActiveSessions(userID.(string))
	if err != nil {
		log.Printf("Error counting sessions: %v", err)
		utils.InternalError(c, "Failed to count sessions")
		return
	}
	stats.SessionStats.Active = active

	sessions, err := h.sessionRepo.GetUserActiveSessions(userID.(string))
	if err == nil && len(sessions) > 0 {
		stats.SessionStats.LastActiveAt = sessions[0].LastActiveAt
	}

	if events, err := h.activityLog.Entries(); err == nil {
		stats.LockStats.Events = len(events)
		for i := len(events) - 1; i >= 0; i-- {
			if events[i].Type == model.LockEventLock {
				stats.LockStats.LastLocked = events[i].Timestamp
				break
			}
		}
	}

	stats.AccountStats.AccountCreated = user.CreatedAt
	stats.AccountStats.TwoFactorEnabled = user.TwoFactorEnabled

	stats.SystemStats.CPUUsage = utils.GetCPUUsage()
	stats.SystemStats.ActiveConnections = utils.ActiveDBConnections()

	utils.Success(c, gin.H{
		"stats": stats,
	})
}
