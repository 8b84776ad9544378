package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// expiredSessionGrace is how long a session row outlives its expiry before
// Mongo's TTL monitor garbage-collects it. The grace keeps recently expired
// sessions visible for the audit trail.
const expiredSessionGrace = 7 * 24 * time.Hour

func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionsCollection := db.Collection(os.Getenv("SESSIONS_COLLECTION"))
	auditCollection := db.Collection(os.Getenv("AUDIT_COLLECTION"))
	usersCollection := db.Collection(os.Getenv("USERS_COLLECTION"))

	sessionIndexes := []mongo.IndexModel{
		// One row per client token: the upsert key.
		{
			Keys: bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().
				SetName("token_hash_unique").
				SetUnique(true),
		},
		// Active session list queries
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().
				SetName("user_active_sessions"),
		},
		// Recency sort
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "last_active_at", Value: -1},
			},
			Options: options.Index().
				SetName("user_sessions_recency"),
		},
		// Backend garbage collection of long-expired rows
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("session_expiry_ttl").
				SetExpireAfterSeconds(int32(expiredSessionGrace.Seconds())),
		},
	}

	auditIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().
				SetName("user_audit_date"),
		},
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName("username_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
	}

	if _, err := sessionsCollection.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	if _, err := auditCollection.Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}

	if _, err := usersCollection.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	log.Println("Successfully created all indexes")
	return nil
}
