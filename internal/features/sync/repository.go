package sync

import (
	"context"
	"fmt"
	"time"

	"go-ordersync/internal/config"
	"go-ordersync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SyncRepository persists cycle run logs and dead-letter entries. Two
// backends exist: MongoDB (default) and Postgres, selected by
// DEAD_LETTER_STORE.
type SyncRepository interface {
	CreateLog(ctx context.Context, log *SyncLog) error
	UpdateLog(ctx context.Context, log *SyncLog) error
	ListLogs(ctx context.Context, limit int64) ([]SyncLog, error)
	CreateFailedOrder(ctx context.Context, failed *FailedOrder) error
	ListFailedOrders(ctx context.Context, limit int64) ([]FailedOrder, error)
}

// NewSyncRepository selects the configured backend
func NewSyncRepository(cfg *config.Config, db *database.MongodbDB) (SyncRepository, error) {
	switch cfg.DeadLetterStore {
	case "postgres":
		return NewPostgresSyncRepository(cfg)
	case "mongodb", "":
		return NewMongoSyncRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported dead-letter store: %s", cfg.DeadLetterStore)
	}
}

type MongoSyncRepository struct {
	logs   *mongo.Collection
	failed *mongo.Collection
}

func NewMongoSyncRepository(db *database.MongodbDB) SyncRepository {
	return &MongoSyncRepository{
		logs:   db.DB.Collection("sync_logs"),
		failed: db.DB.Collection("failed_orders"),
	}
}

func (r *MongoSyncRepository) CreateLog(ctx context.Context, log *SyncLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	_, err := r.logs.InsertOne(ctx, log)
	return err
}

func (r *MongoSyncRepository) UpdateLog(ctx context.Context, log *SyncLog) error {
	_, err := r.logs.ReplaceOne(ctx, bson.M{"_id": log.ID}, log)
	return err
}

func (r *MongoSyncRepository) ListLogs(ctx context.Context, limit int64) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.logs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []SyncLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *MongoSyncRepository) CreateFailedOrder(ctx context.Context, failed *FailedOrder) error {
	if failed.ID.IsZero() {
		failed.ID = primitive.NewObjectID()
	}
	if failed.Timestamp.IsZero() {
		failed.Timestamp = time.Now().UTC()
	}
	_, err := r.failed.InsertOne(ctx, failed)
	return err
}

func (r *MongoSyncRepository) ListFailedOrders(ctx context.Context, limit int64) ([]FailedOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.failed.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var failures []FailedOrder
	if err = cursor.All(ctx, &failures); err != nil {
		return nil, err
	}
	return failures, nil
}
