package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"main/model"
	"main/utils"

	"github.com/google/uuid"
)

// SessionStore is the slice of the session repository the services layer
// needs. Kept as an interface so registration and the session client are
// testable without a live database.
type SessionStore interface {
	UpsertByTokenHash(ctx context.Context, session *model.Session) (created bool, err error)
	Touch(ctx context.Context, tokenHash string) (matched bool, err error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	GetUserActiveSessions(userID string) ([]*model.Session, error)
	CountOtherActiveSessions(userID, excludeHash string) (int, error)
	Deactivate(ctx context.Context, userID, sessionID string) (*model.Session, error)
	DeactivateOthers(ctx context.Context, userID, keepHash string) (int64, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
}

// SessionDuration returns how long a session lives without a heartbeat.
func SessionDuration() time.Duration {
	return utils.GetEnvAsDuration("SESSION_DURATION", 24*time.Hour)
}

// SessionRegistrar upserts the "this device" row into the sessions table and
// fires new-device alerts. Registration is advisory bookkeeping: callers log
// its errors and proceed, it must never block a login.
type SessionRegistrar struct {
	Sessions   SessionStore
	Audit      AuditStore
	Classifier utils.DeviceClassifier
	Alerts     *AlertService
}

func NewSessionRegistrar(sessions SessionStore, audit AuditStore, alerts *AlertService) *SessionRegistrar {
	return &SessionRegistrar{
		Sessions:   sessions,
		Audit:      audit,
		Classifier: utils.NewDeviceClassifier(),
		Alerts:     alerts,
	}
}

// RegisterSession registers tokenHash as a live session for user. It reports
// whether other live sessions existed at registration time, so callers can
// warn about concurrent logins.
//
// The other-sessions check and the upsert are not atomic. Concurrent logins
// can double-fire the new-device alert; that race is accepted, a kill is
// never lost to it.
func (r *SessionRegistrar) RegisterSession(ctx context.Context, user *model.User, tokenHash, userAgent, ip string) (bool, error) {
	if user == nil || user.UserID == "" {
		return false, nil
	}
	if tokenHash == "" {
		return false, nil
	}

	label := r.Classifier.Classify(userAgent)

	others, err := r.Sessions.CountOtherActiveSessions(user.UserID, tokenHash)
	if err != nil {
		// Stale count only affects the concurrent-login warning.
		utils.TrackError("registrar", "count_failed")
		log.Printf("Warning: failed to count active sessions for %s: %v", user.UserID, err)
		others = 0
	}

	now := time.Now()
	session := &model.Session{
		SessionID:    uuid.New().String(),
		UserID:       user.UserID,
		TokenHash:    tokenHash,
		DeviceName:   label.Name,
		DeviceType:   label.Device,
		Browser:      label.Browser,
		UserAgent:    userAgent,
		IPAddress:    ip,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(SessionDuration()),
		IsActive:     true,
	}

	created, err := r.Sessions.UpsertByTokenHash(ctx, session)
	if err != nil {
		utils.TrackError("registrar", "upsert_failed")
		return false, fmt.Errorf("failed to register session: %w", err)
	}

	if created {
		// A brand new device row: always alert the external channel. The
		// in-app warning to other devices rides the change feed's insert
		// event, published by the repository.
		if r.Alerts != nil {
			r.Alerts.SendNewDeviceAlert(NewDeviceAlert{
				Email:      user.Email,
				DeviceName: label.Name,
				DeviceType: label.Device,
				Browser:    label.Browser,
				Timestamp:  now,
			})
		}

		if r.Audit != nil {
			entry := &model.AuditEntry{
				ID:        uuid.New().String(),
				UserID:    user.UserID,
				Action:    model.AuditSessionRegistered,
				SessionID: session.SessionID,
				Detail:    label.Name,
				CreatedAt: now,
			}
			if err := r.Audit.Append(ctx, entry); err != nil {
				log.Printf("Warning: failed to append audit entry: %v", err)
			}
		}
	}

	return others > 0, nil
}
