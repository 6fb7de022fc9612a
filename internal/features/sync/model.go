package sync

import (
	"time"

	"go-ordersync/internal/features/order"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncLog is one document per polling cycle
type SyncLog struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StartTime      time.Time          `json:"start_time" bson:"start_time"`
	EndTime        time.Time          `json:"end_time" bson:"end_time"`
	Status         string             `json:"status" bson:"status"` // "success", "failed", "in_progress"
	FetchedCount   int                `json:"fetched_count" bson:"fetched_count"`
	SucceededCount int                `json:"succeeded_count" bson:"succeeded_count"`
	FailedCount    int                `json:"failed_count" bson:"failed_count"`
	Trigger        string             `json:"trigger" bson:"trigger"` // "schedule", "manual"
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
}

// Failure stages recorded on dead-letter entries
const (
	StageMapping       = "mapping"
	StageContactUpsert = "contact_upsert"
	StageDealCreate    = "deal_create"
)

// FailedOrder is a dead-letter entry: an order whose processing failed after
// the watermark moved past it. Replay is a manual operation.
type FailedOrder struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderID   int                `json:"order_id" bson:"order_id"`
	Email     string             `json:"email" bson:"email"`
	Stage     string             `json:"stage" bson:"stage"`
	Error     string             `json:"error" bson:"error"`
	Order     order.Order        `json:"order" bson:"order"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// Status is the live engine snapshot served by the ops API
type Status struct {
	Watermark    time.Time `json:"watermark"`
	PollInterval string    `json:"poll_interval"`
	CycleRunning bool      `json:"cycle_running"`
	LastCycle    *SyncLog  `json:"last_cycle,omitempty"`
}
