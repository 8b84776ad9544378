package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"main/model"
	"main/services"
	"main/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepo struct {
	MongoCollection *mongo.Collection
}

// SessionRepo satisfies the services.SessionStore interface.
var _ services.SessionStore = (*SessionRepo)(nil)

func GetSessionRepo(client *mongo.Client) *SessionRepo {
	dbName := os.Getenv("MONGO_DB")
	collectionName := os.Getenv("SESSIONS_COLLECTION")
	return &SessionRepo{
		MongoCollection: client.Database(dbName).Collection(collectionName),
	}
}

// Filter and update builders are package level so their exclusion and
// no-resurrection guarantees can be tested without a database.

func liveSessionsFilter(userID string, now time.Time) bson.M {
	return bson.M{
		"user_id":    userID,
		"is_active":  true,
		"expires_at": bson.M{"$gt": now},
	}
}

func otherSessionsFilter(userID, excludeHash string, now time.Time) bson.M {
	filter := liveSessionsFilter(userID, now)
	// Exclusion is by token hash, never by a client-claimed current flag.
	filter["token_hash"] = bson.M{"$ne": excludeHash}
	return filter
}

func touchFilter(tokenHash string) bson.M {
	// is_active is part of the filter so a heartbeat can never resurrect a
	// killed session; it just matches zero rows.
	return bson.M{
		"token_hash": tokenHash,
		"is_active":  true,
	}
}

func touchUpdate(now time.Time, duration time.Duration) bson.M {
	return bson.M{
		"$set": bson.M{
			"last_active_at": now,
			"expires_at":     now.Add(duration),
		},
	}
}

// UpsertByTokenHash registers the session keyed by its token hash. Calling
// it again for the same hash updates the activity fields instead of creating
// a second row. It reports whether a new row was inserted.
func (r *SessionRepo) UpsertByTokenHash(ctx context.Context, session *model.Session) (bool, error) {
	timer := utils.TrackDBOperation("upsert", "sessions")
	defer timer.ObserveDuration()

	if session == nil || session.TokenHash == "" || session.UserID == "" {
		utils.TrackError("database", "invalid_session_data")
		return false, fmt.Errorf("invalid session data: missing required fields")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"device_name":    session.DeviceName,
			"device_type":    session.DeviceType,
			"browser":        session.Browser,
			"user_agent":     session.UserAgent,
			"ip_address":     session.IPAddress,
			"last_active_at": session.LastActiveAt,
			"expires_at":     session.ExpiresAt,
		},
		// is_active only on insert: re-registering an already killed hash
		// must not revive it.
		"$setOnInsert": bson.M{
			"session_id": session.SessionID,
			"user_id":    session.UserID,
			"token_hash": session.TokenHash,
			"created_at": session.CreatedAt,
			"is_active":  true,
		},
	}

	result, err := r.MongoCollection.UpdateOne(
		ctx,
		bson.M{"token_hash": session.TokenHash},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		utils.TrackError("database", "session_upsert_failed")
		return false, fmt.Errorf("failed to upsert session: %w", err)
	}

	created := result.UpsertedCount > 0

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.SetSession(session); err != nil {
			log.Printf("Warning: Failed to cache session: %v", err)
		}
		if err := services.GlobalSessionCache.InvalidateUserSessions(session.UserID); err != nil {
			log.Printf("Warning: Failed to invalidate session list cache: %v", err)
		}
	}

	op := services.OpUpdate
	if created {
		op = services.OpInsert
	}
	services.PublishChange(ctx, session.UserID, services.ChangeMessage{
		Op:         op,
		SessionID:  session.SessionID,
		TokenHash:  session.TokenHash,
		DeviceName: session.DeviceName,
		IsActive:   true,
	})

	return created, nil
}

// Touch refreshes the heartbeat fields for the session matching tokenHash
// and reports whether a live row was matched. A session that was killed or
// never registered matches zero rows, which is a non-error: the heartbeat
// must not fail or resurrect anything, but the caller can tell the client
// its session is gone.
func (r *SessionRepo) Touch(ctx context.Context, tokenHash string) (bool, error) {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if tokenHash == "" {
		return false, fmt.Errorf("tokenHash cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	result, err := r.MongoCollection.UpdateOne(ctx, touchFilter(tokenHash), touchUpdate(now, services.SessionDuration()))
	if err != nil {
		utils.TrackError("database", "heartbeat_failed")
		return false, fmt.Errorf("failed to refresh session: %w", err)
	}

	if result.MatchedCount == 0 {
		return false, nil
	}

	utils.TrackHeartbeat()

	// Other devices ignore their own heartbeats through the reducer, so
	// publishing here cannot cause sign-outs or alert noise.
	if session, err := r.GetByTokenHash(ctx, tokenHash); err == nil && session != nil {
		if services.GlobalSessionCache != nil {
			if err := services.GlobalSessionCache.SetSession(session); err != nil {
				log.Printf("Warning: Failed to cache session: %v", err)
			}
		}
		services.PublishChange(ctx, session.UserID, services.ChangeMessage{
			Op:         services.OpUpdate,
			SessionID:  session.SessionID,
			TokenHash:  session.TokenHash,
			DeviceName: session.DeviceName,
			IsActive:   session.IsActive,
		})
	}

	return true, nil
}

// GetByTokenHash returns the session for the hash, or nil if none exists.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	if tokenHash == "" {
		return nil, fmt.Errorf("tokenHash cannot be empty")
	}

	if services.GlobalSessionCache != nil {
		if session, err := services.GlobalSessionCache.GetSession(tokenHash); err == nil && session != nil {
			utils.TrackCacheOperation("session", true)
			return session, nil
		}
		utils.TrackCacheOperation("session", false)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var session model.Session
	err := r.MongoCollection.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "session_fetch_failed")
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.SetSession(&session); err != nil {
			log.Printf("Warning: Failed to cache session: %v", err)
		}
	}

	return &session, nil
}

// GetUserActiveSessions returns the user's live sessions, most recent first.
func (r *SessionRepo) GetUserActiveSessions(userID string) ([]*model.Session, error) {
	timer := utils.TrackDBOperation("find", "sessions")
	defer timer.ObserveDuration()

	if userID == "" {
		utils.TrackError("database", "empty_user_id")
		return nil, fmt.Errorf("userID cannot be empty")
	}

	if services.GlobalSessionCache != nil {
		sessions, isStale, err := services.GlobalSessionCache.GetUserSessions(userID)
		if err == nil && sessions != nil && !isStale {
			utils.TrackCacheOperation("user_sessions", true)
			return sessions, nil
		}
		utils.TrackCacheOperation("user_sessions", false)
	}

	return r.fetchAndCacheActiveSessions(userID)
}

func (r *SessionRepo) fetchAndCacheActiveSessions(userID string) ([]*model.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"last_active_at": -1})
	cursor, err := r.MongoCollection.Find(ctx, liveSessionsFilter(userID, time.Now()), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.CacheUserSessions(userID, sessions); err != nil {
			log.Printf("Warning: Failed to cache user sessions: %v", err)
		}
	}

	utils.UpdateActiveSessions(float64(len(sessions)))
	return sessions, nil
}

// CountActiveSessions counts the user's live sessions.
func (r *SessionRepo) CountActiveSessions(userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("userID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := r.MongoCollection.CountDocuments(ctx, liveSessionsFilter(userID, time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return int(count), nil
}

// CountOtherActiveSessions counts the user's live sessions excluding the one
// registered under excludeHash.
func (r *SessionRepo) CountOtherActiveSessions(userID, excludeHash string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("userID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := r.MongoCollection.CountDocuments(ctx, otherSessionsFilter(userID, excludeHash, time.Now()))
	if err != nil {
		utils.TrackError("database", "session_count_failed")
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return int(count), nil
}

// Deactivate kills one session by id. Killing a session that is already
// inactive or missing is a no-op success; it returns the affected session
// row, or nil when nothing matched.
func (r *SessionRepo) Deactivate(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("userID and sessionID are required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"is_active":      false,
			"last_active_at": time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var session model.Session
	err := r.MongoCollection.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID, "session_id": sessionID},
		update,
		opts,
	).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		utils.TrackError("database", "session_kill_failed")
		return nil, fmt.Errorf("failed to deactivate session: %w", err)
	}

	if services.GlobalSessionCache != nil {
		if err := services.GlobalSessionCache.DeleteSession(session.TokenHash); err != nil {
			log.Printf("Warning: Failed to delete session from cache: %v", err)
		}
		if err := services.GlobalSessionCache.InvalidateUserSessions(userID); err != nil {
			log.Printf("Warning: Failed to invalidate session list cache: %v", err)
		}
	}

	// The victim's device reacts to this event with a forced sign-out.
	services.PublishChange(ctx, userID, services.ChangeMessage{
		Op:         services.OpUpdate,
		SessionID:  session.SessionID,
		TokenHash:  session.TokenHash,
		DeviceName: session.DeviceName,
		IsActive:   false,
	})

	return &session, nil
}

// DeactivateOthers kills every live session of the user except the one
// matching keepHash. It returns the number of sessions killed.
func (r *SessionRepo) DeactivateOthers(ctx context.Context, userID, keepHash string) (int64, error) {
	timer := utils.TrackDBOperation("update", "sessions")
	defer timer.ObserveDuration()

	if userID == "" {
		return 0, fmt.Errorf("userID cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	filter := otherSessionsFilter(userID, keepHash, now)

	// Collect the victims first so each one can be notified through the
	// feed with its own hash.
	cursor, err := r.MongoCollection.Find(ctx, filter)
	if err != nil {
		utils.TrackError("database", "session_bulk_kill_failed")
		return 0, fmt.Errorf("failed to list sessions for deactivation: %w", err)
	}
	var victims []*model.Session
	if err := cursor.All(ctx, &victims); err != nil {
		return 0, fmt.Errorf("failed to decode sessions: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"is_active":      false,
			"last_active_at": now,
		},
	}

	result, err := r.MongoCollection.UpdateMany(ctx, filter, update)
	if err != nil {
		utils.TrackError("database", "session_bulk_kill_failed")
		return 0, fmt.Errorf("failed to deactivate sessions: %w", err)
	}

	if services.GlobalSessionCache != nil {
		for _, victim := range victims {
			if err := services.GlobalSessionCache.DeleteSession(victim.TokenHash); err != nil {
				log.Printf("Warning: Failed to delete session from cache: %v", err)
			}
		}
		if err := services.GlobalSessionCache.InvalidateUserSessions(userID); err != nil {
			log.Printf("Warning: Failed to invalidate session list cache: %v", err)
		}
	}

	for _, victim := range victims {
		services.PublishChange(ctx, userID, services.ChangeMessage{
			Op:         services.OpUpdate,
			SessionID:  victim.SessionID,
			TokenHash:  victim.TokenHash,
			DeviceName: victim.DeviceName,
			IsActive:   false,
		})
	}

	log.Printf("Deactivated %d sessions for user %s", result.ModifiedCount, userID)
	return result.ModifiedCount, nil
}
