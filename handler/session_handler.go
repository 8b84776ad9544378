package handler

import (
	"fmt"
	"io"
	"log"
	"time"

	"main/dto"
	"main/middleware"
	"main/model"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionHandler struct {
	// SessionRepo is the services.SessionStore interface rather than the
	// concrete Mongo repository so handler behavior is testable with fakes.
	SessionRepo services.SessionStore
	AuditRepo   *repository.AuditRepo
	UserRepo    *repository.UserRepo
	Registrar   *services.SessionRegistrar
}

func NewSessionHandler(sessionRepo services.SessionStore, auditRepo *repository.AuditRepo, userRepo *repository.UserRepo, registrar *services.SessionRegistrar) *SessionHandler {
	return &SessionHandler{
		SessionRepo: sessionRepo,
		AuditRepo:   auditRepo,
		UserRepo:    userRepo,
		Registrar:   registrar,
	}
}

// GetActiveSessions lists the user's live sessions. The is_current flag
// comes from comparing each row's token hash against this device's hash,
// never from anything the client claims.
func (h *SessionHandler) GetActiveSessions(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	tokenHash := c.GetHeader(middleware.SessionTokenHashHeader)

	sessions, err := h.SessionRepo.GetUserActiveSessions(userID.(string))
	if err != nil {
		utils.InternalError(c, "Failed to fetch sessions")
		return
	}

	views := make([]dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		isCurrent := tokenHash != "" && services.TokenHashEqual(s.TokenHash, tokenHash)
		views = append(views, dto.ToSessionResponse(s, isCurrent))
	}

	utils.Success(c, gin.H{
		"sessions": views,
	})
}

// RegisterSession upserts this device's session row. Used after login and on
// client restarts; registering the same hash twice updates the existing row.
func (h *SessionHandler) RegisterSession(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	tokenHash := c.GetHeader(middleware.SessionTokenHashHeader)
	if tokenHash == "" {
		utils.BadRequest(c, "Session token hash required")
		return
	}

	user, err := h.UserRepo.FindUser(userID.(string))
	if err != nil || user == nil {
		utils.InternalError(c, "Failed to fetch user")
		return
	}

	hadOthers, err := h.Registrar.RegisterSession(
		c.Request.Context(),
		user,
		tokenHash,
		c.Request.UserAgent(),
		c.ClientIP(),
	)
	if err != nil {
		// Registration is bookkeeping; a failure must not break the client.
		log.Printf("Warning: session registration failed for %s: %v", user.UserID, err)
	}

	utils.Success(c, gin.H{
		"had_other_sessions": hadOthers,
	})
}

// Heartbeat extends this session's expiry. A heartbeat for a killed or
// unknown session matches nothing and still succeeds, but the response says
// so instead of promising an expiry the session does not have.
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	tokenHash := c.GetHeader(middleware.SessionTokenHashHeader)
	if tokenHash == "" {
		utils.BadRequest(c, "Session token hash required")
		return
	}

	matched, err := h.SessionRepo.Touch(c.Request.Context(), tokenHash)
	if err != nil {
		log.Printf("Warning: heartbeat failed: %v", err)
		utils.InternalError(c, "Failed to refresh session")
		return
	}

	if !matched {
		utils.Success(c, dto.HeartbeatResponse{Active: false})
		return
	}

	expiresAt := time.Now().Add(services.SessionDuration())
	utils.Success(c, dto.HeartbeatResponse{
		Active:    true,
		ExpiresAt: &expiresAt,
	})
}

// KillSession deactivates one session by id. Killing an already inactive or
// missing session is a no-op success.
func (h *SessionHandler) KillSession(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	sessionID := c.Param("id")

	session, err := h.SessionRepo.Deactivate(c.Request.Context(), userID.(string), sessionID)
	if err != nil {
		utils.InternalError(c, "Failed to end session")
		return
	}
	if session == nil {
		utils.Success(c, gin.H{
			"message": "Session already inactive",
		})
		return
	}

	h.appendAudit(c, userID.(string), model.AuditSessionKilled, session.SessionID, session.DeviceName)

	utils.Success(c, gin.H{
		"message": fmt.Sprintf("Signed out %s", session.DeviceName),
	})
}

// KillAllOtherSessions deactivates every session except the caller's own,
// identified by token hash.
func (h *SessionHandler) KillAllOtherSessions(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	tokenHash := c.GetHeader(middleware.SessionTokenHashHeader)
	if tokenHash == "" {
		// Without the hash there is no way to exclude the caller's own row.
		utils.BadRequest(c, "Session token hash required")
		return
	}

	count, err := h.SessionRepo.DeactivateOthers(c.Request.Context(), userID.(string), tokenHash)
	if err != nil {
		utils.InternalError(c, "Failed to end sessions")
		return
	}

	h.appendAudit(c, userID.(string), model.AuditSessionsKilledAll, "", fmt.Sprintf("%d sessions ended", count))

	utils.Success(c, gin.H{
		"message": fmt.Sprintf("Signed out of %d other sessions", count),
		"count":   count,
	})
}

// StreamSessionEvents pushes this device's session reactions over SSE: new
// login warnings, list refresh hints and the remote-kill sign-out signal.
func (h *SessionHandler) StreamSessionEvents(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	tokenHash := c.GetHeader(middleware.SessionTokenHashHeader)
	if tokenHash == "" {
		utils.BadRequest(c, "Session token hash required")
		return
	}

	if services.GlobalSessionFeed == nil {
		utils.InternalError(c, "Realtime feed unavailable")
		return
	}

	sub, err := services.GlobalSessionFeed.Subscribe(c.Request.Context(), userID.(string))
	if err != nil {
		log.Printf("Warning: failed to subscribe to session events: %v", err)
		utils.InternalError(c, "Failed to subscribe to session events")
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return false
			}
			reaction := services.Reduce(services.ClassifyChange(msg, tokenHash))
			if reaction == (services.Reaction{}) {
				return true
			}
			c.SSEvent("reaction", reaction)
			return !reaction.ForceSignOut
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetAuditLog lists the user's recent security events.
func (h *SessionHandler) GetAuditLog(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	entries, err := h.AuditRepo.ListByUser(c.Request.Context(), userID.(string), 50)
	if err != nil {
		utils.InternalError(c, "Failed to fetch audit log")
		return
	}

	utils.Success(c, gin.H{
		"entries": entries,
	})
}

func (h *SessionHandler) appendAudit(c *gin.Context, userID, action, sessionID, detail string) {
	entry := &model.AuditEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		SessionID: sessionID,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := h.AuditRepo.Append(c.Request.Context(), entry); err != nil {
		log.Printf("Warning: failed to append audit entry: %v", err)
	}
}
