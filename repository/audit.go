package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"main/model"
	"main/services"
	"main/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRepo struct {
	MongoCollection *mongo.Collection
}

var _ services.AuditStore = (*AuditRepo)(nil)

func GetAuditRepo(client *mongo.Client) *AuditRepo {
	dbName := os.Getenv("MONGO_DB")
	collectionName := os.Getenv("AUDIT_COLLECTION")
	return &AuditRepo{
		MongoCollection: client.Database(dbName).Collection(collectionName),
	}
}

// Append records one security event. Audit writes are advisory: callers log
// failures and move on.
func (r *AuditRepo) Append(ctx context.Context, entry *model.AuditEntry) error {
	timer := utils.TrackDBOperation("insert", "audit")
	defer timer.ObserveDuration()

	if entry == nil || entry.UserID == "" || entry.Action == "" {
		utils.TrackError("database", "invalid_audit_entry")
		return fmt.Errorf("invalid audit entry: missing required fields")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.MongoCollection.InsertOne(ctx, entry); err != nil {
		utils.TrackError("database", "audit_insert_failed")
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListByUser returns the user's audit entries, newest first.
func (r *AuditRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.AuditEntry, error) {
	timer := utils.TrackDBOperation("find", "audit")
	defer timer.ObserveDuration()

	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.MongoCollection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		utils.TrackError("database", "audit_fetch_failed")
		return nil, fmt.Errorf("failed to fetch audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*model.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}
