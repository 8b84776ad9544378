package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"main/model"
	"main/utils"

	"github.com/redis/go-redis/v9"
)

// SessionCache keeps individual session rows (keyed by token hash) and
// per-user active session lists in Redis, in front of the database.
type SessionCache struct {
	client *redis.Client
}

var GlobalSessionCache *SessionCache

// listStaleAfter is how long a cached user-session list is served before the
// repository refetches from the database.
const listStaleAfter = 30 * time.Second

type sessionListEntry struct {
	Sessions  []*model.Session `json:"sessions"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewSessionCache creates and initializes a new session cache
func NewSessionCache(redisURL string) (*SessionCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &SessionCache{client: client}, nil
}

func sessionKey(tokenHash string) string {
	return fmt.Sprintf("session:%s", tokenHash)
}

func userSessionsKey(userID string) string {
	return fmt.Sprintf("user_sessions:%s", userID)
}

// SetSession caches an individual session under its token hash, with a TTL
// matching the session expiry.
func (sc *SessionCache) SetSession(session *model.Session) error {
	if session == nil || session.TokenHash == "" {
		return fmt.Errorf("cannot cache session without a token hash")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session has already expired")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	ctx := context.Background()
	if err := sc.client.Set(ctx, sessionKey(session.TokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %v", err)
	}
	return nil
}

// GetSession retrieves a session from cache by token hash. A cache miss and
// a cached-but-expired session both return nil.
func (sc *SessionCache) GetSession(tokenHash string) (*model.Session, error) {
	if tokenHash == "" {
		return nil, fmt.Errorf("tokenHash cannot be empty")
	}

	ctx := context.Background()
	data, err := sc.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %v", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	if !session.IsLive(time.Now()) {
		sc.DeleteSession(tokenHash)
		return nil, nil
	}

	return &session, nil
}

// DeleteSession removes a session from the cache
func (sc *SessionCache) DeleteSession(tokenHash string) error {
	if tokenHash == "" {
		return fmt.Errorf("tokenHash cannot be empty")
	}

	ctx := context.Background()
	if err := sc.client.Del(ctx, sessionKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from cache: %v", err)
	}
	return nil
}

// CacheUserSessions stores the active session list for a user
func (sc *SessionCache) CacheUserSessions(userID string, sessions []*model.Session) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	entry := sessionListEntry{
		Sessions:  sessions,
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %v", err)
	}

	ctx := context.Background()
	if err := sc.client.Set(ctx, userSessionsKey(userID), data, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to cache user sessions: %v", err)
	}
	return nil
}

// GetUserSessions retrieves the cached session list for a user, reporting
// whether it is stale.
func (sc *SessionCache) GetUserSessions(userID string) ([]*model.Session, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("userID cannot be empty")
	}

	ctx := context.Background()
	data, err := sc.client.Get(ctx, userSessionsKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user sessions from cache: %v", err)
	}

	var entry sessionListEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal sessions: %v", err)
	}

	isStale := time.Since(entry.UpdatedAt) > listStaleAfter
	return entry.Sessions, isStale, nil
}

// InvalidateUserSessions drops the cached list after a write so the next
// read refetches.
func (sc *SessionCache) InvalidateUserSessions(userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	ctx := context.Background()
	if err := sc.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user sessions: %v", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the cache
func (sc *SessionCache) CleanupExpiredSessions() error {
	ctx := context.Background()

	var cursor uint64
	for {
		keys, newCursor, err := sc.client.Scan(ctx, cursor, "session:*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %v", err)
		}

		for _, key := range keys {
			data, err := sc.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}

			var session model.Session
			if err := json.Unmarshal(data, &session); err != nil {
				continue
			}

			if !session.IsLive(time.Now()) {
				sc.client.Del(ctx, key)
			}
		}

		cursor = newCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// StartCleanupTask starts a background task to clean up expired sessions
func (sc *SessionCache) StartCleanupTask() {
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		for range ticker.C {
			if err := sc.CleanupExpiredSessions(); err != nil {
				utils.TrackError("cache", "cleanup_failed")
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		}
	}()
}

func (sc *SessionCache) IsConnected() bool {
	if sc == nil || sc.client == nil {
		return false
	}
	ctx := context.Background()
	return sc.client.Ping(ctx).Err() == nil
}

// Close closes the Redis connection
func (sc *SessionCache) Close() error {
	return sc.client.Close()
}
