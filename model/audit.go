package model

import "time"

const (
	AuditSessionRegistered = "session_registered"
	AuditSessionKilled     = "session_killed"
	AuditSessionsKilledAll = "sessions_killed_all"
	AuditRemoteSignOut     = "remote_sign_out"
)

type AuditEntry struct {
	ID        string    `bson:"audit_id" json:"audit_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Action    string    `bson:"action" json:"action"`
	SessionID string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Detail    string    `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
