package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"main/model"

	"github.com/google/uuid"
)

// LockActivityLog is the durable local record of lock and unlock events,
// capped at model.MaxLockEvents entries with the oldest trimmed first. It is
// display data for the security panel, not an authoritative audit trail and
// never synced to the backend.
type LockActivityLog struct {
	mu   sync.Mutex
	path string
}

func NewLockActivityLog(path string) *LockActivityLog {
	return &LockActivityLog{path: path}
}

// Append records one lock or unlock event and trims the log to the cap.
func (l *LockActivityLog) Append(eventType, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return err
	}

	events = append(events, model.LockEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Reason:    reason,
		Timestamp: time.Now(),
	})

	if len(events) > model.MaxLockEvents {
		events = events[len(events)-model.MaxLockEvents:]
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock events: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write lock activity log: %w", err)
	}
	return nil
}

// Entries returns the logged events, oldest first. A missing file is an
// empty log.
func (l *LockActivityLog) Entries() ([]model.LockEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *LockActivityLog) load() ([]model.LockEvent, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.LockEvent{}, nil
		}
		return nil, fmt.Errorf("failed to read lock activity log: %w", err)
	}

	var events []model.LockEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse lock activity log: %w", err)
	}
	return events, nil
}
