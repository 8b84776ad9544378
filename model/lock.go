package model

import "time"

const (
	LockEventLock   = "lock"
	LockEventUnlock = "unlock"
)

// MaxLockEvents caps the local lock activity log. Oldest entries are
// trimmed first.
const MaxLockEvents = 50

type LockEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
