package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go-ordersync/internal/config"
	"go-ordersync/internal/features/order"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostgresSyncRepository is the SQL backend for run logs and dead letters.
// Ids stay ObjectID hex strings so documents keep the same identity across
// both backends.
type PostgresSyncRepository struct {
	db *sql.DB
}

func NewPostgresSyncRepository(cfg *config.Config) (SyncRepository, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPass, cfg.PostgresDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	repo := &PostgresSyncRepository{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *PostgresSyncRepository) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sync_logs (
			id TEXT PRIMARY KEY,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			status TEXT NOT NULL,
			fetched_count INT NOT NULL DEFAULT 0,
			succeeded_count INT NOT NULL DEFAULT 0,
			failed_count INT NOT NULL DEFAULT 0,
			trigger_kind TEXT NOT NULL DEFAULT 'schedule',
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS failed_orders (
			id TEXT PRIMARY KEY,
			order_id INT NOT NULL,
			email TEXT,
			stage TEXT NOT NULL,
			error TEXT NOT NULL,
			order_json JSONB,
			failed_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresSyncRepository) CreateLog(ctx context.Context, log *SyncLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_logs (id, start_time, end_time, status, fetched_count, succeeded_count, failed_count, trigger_kind, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.ID.Hex(), log.StartTime, log.EndTime, log.Status,
		log.FetchedCount, log.SucceededCount, log.FailedCount, log.Trigger, log.Error)
	return err
}

func (r *PostgresSyncRepository) UpdateLog(ctx context.Context, log *SyncLog) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_logs SET end_time = $2, status = $3, fetched_count = $4,
			succeeded_count = $5, failed_count = $6, error = $7
		 WHERE id = $1`,
		log.ID.Hex(), log.EndTime, log.Status,
		log.FetchedCount, log.SucceededCount, log.FailedCount, log.Error)
	return err
}

func (r *PostgresSyncRepository) ListLogs(ctx context.Context, limit int64) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, status, fetched_count, succeeded_count, failed_count, trigger_kind, COALESCE(error, '')
		 FROM sync_logs ORDER BY start_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []SyncLog
	for rows.Next() {
		var log SyncLog
		var id string
		var endTime sql.NullTime

		if err := rows.Scan(&id, &log.StartTime, &endTime, &log.Status,
			&log.FetchedCount, &log.SucceededCount, &log.FailedCount, &log.Trigger, &log.Error); err != nil {
			return nil, err
		}

		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			log.ID = oid
		}
		if endTime.Valid {
			log.EndTime = endTime.Time
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (r *PostgresSyncRepository) CreateFailedOrder(ctx context.Context, failed *FailedOrder) error {
	if failed.ID.IsZero() {
		failed.ID = primitive.NewObjectID()
	}
	if failed.Timestamp.IsZero() {
		failed.Timestamp = time.Now().UTC()
	}

	orderJSON, err := json.Marshal(failed.Order)
	if err != nil {
		return fmt.Errorf("failed to marshal order payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO failed_orders (id, order_id, email, stage, error, order_json, failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		failed.ID.Hex(), failed.OrderID, failed.Email, failed.Stage,
		failed.Error, orderJSON, failed.Timestamp)
	return err
}

func (r *PostgresSyncRepository) ListFailedOrders(ctx context.Context, limit int64) ([]FailedOrder, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, email, stage, error, order_json, failed_at
		 FROM failed_orders ORDER BY failed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []FailedOrder
	for rows.Next() {
		var failed FailedOrder
		var id string
		var orderJSON []byte

		if err := rows.Scan(&id, &failed.OrderID, &failed.Email, &failed.Stage,
			&failed.Error, &orderJSON, &failed.Timestamp); err != nil {
			return nil, err
		}

		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			failed.ID = oid
		}
		if len(orderJSON) > 0 {
			var o order.Order
			if err := json.Unmarshal(orderJSON, &o); err == nil {
				failed.Order = o
			}
		}
		failures = append(failures, failed)
	}
	return failures, rows.Err()
}
