package dto

import (
	"main/model"
	"time"
)

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	DeviceName   string    `json:"device_name"`
	DeviceType   string    `json:"device_type"`
	Browser      string    `json:"browser"`
	IPAddress    string    `json:"ip_address"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsCurrent    bool      `json:"is_current"`
}

// ToSessionResponse maps a session row to its list view. The is_current flag
// is computed by the caller from the hash comparison, never taken from the
// client.
func ToSessionResponse(s *model.Session, isCurrent bool) SessionResponse {
	return SessionResponse{
		SessionID:    s.SessionID,
		DeviceName:   s.DeviceName,
		DeviceType:   s.DeviceType,
		Browser:      s.Browser,
		IPAddress:    s.IPAddress,
		LastActiveAt: s.LastActiveAt,
		ExpiresAt:    s.ExpiresAt,
		IsCurrent:    isCurrent,
	}
}

// HeartbeatResponse reports whether the heartbeat found a live session. A
// killed or unknown session heartbeats successfully but comes back inactive
// with no expiry, so the client knows not to trust its session any further.
type HeartbeatResponse struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type UnlockRequest struct {
	Code string `json:"code"`
}

type LockRequest struct {
	Reason string `json:"reason" binding:"required,max=120"`
}
