package model

import "time"

type Session struct {
	SessionID    string    `bson:"session_id" json:"session_id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	TokenHash    string    `bson:"token_hash" json:"-"`
	DeviceName   string    `bson:"device_name" json:"device_name"`
	DeviceType   string    `bson:"device_type" json:"device_type"`
	Browser      string    `bson:"browser" json:"browser"`
	UserAgent    string    `bson:"user_agent" json:"user_agent"`
	IPAddress    string    `bson:"ip_address" json:"ip_address"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastActiveAt time.Time `bson:"last_active_at" json:"last_active_at"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
}

// IsLive reports whether the session still counts: not killed and not expired.
func (s *Session) IsLive(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}
