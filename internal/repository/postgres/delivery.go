package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/insider-one/notification-dispatcher/internal/domain"
)

// DeliveryRepository implements domain.DeliveryRepository using PostgreSQL
type DeliveryRepository struct {
	db *DB
}

// NewDeliveryRepository creates a new DeliveryRepository
func NewDeliveryRepository(db *DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record stores one channel outcome. Recording the same request and channel
// twice keeps the latest outcome.
func (r *DeliveryRepository) Record(ctx context.Context, rec *domain.DeliveryRecord) error {
	metadata, err := json.Marshal(rec.Result.Metadata)
	if err != nil || rec.Result.Metadata == nil {
		metadata = []byte("{}")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO deliveries (
			request_id, channel, success, error_message, external_reference,
			metadata, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id, channel) DO UPDATE SET
			success = EXCLUDED.success,
			error_message = EXCLUDED.error_message,
			external_reference = EXCLUDED.external_reference,
			metadata = EXCLUDED.metadata,
			duration_ms = EXCLUDED.duration_ms
	`

	_, err = r.db.Pool.Exec(ctx, query,
		rec.RequestID, string(rec.Result.Channel), rec.Result.Success, rec.Result.ErrorMessage,
		rec.Result.ExternalReference, metadata, rec.Duration.Milliseconds(), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	return nil
}

// ListByRequestID returns every recorded channel outcome of a request
func (r *DeliveryRepository) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*domain.DeliveryRecord, error) {
	query := `
		SELECT request_id, channel, success, error_message, external_reference,
			metadata, duration_ms, created_at
		FROM deliveries
		WHERE request_id = $1
	`

	rows, err := r.db.Pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanDelivery)
	if err != nil {
		return nil, fmt.Errorf("failed to scan deliveries: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Result.Channel.Order() < records[j].Result.Channel.Order()
	})

	return records, nil
}

func scanDelivery(row pgx.CollectableRow) (*domain.DeliveryRecord, error) {
	var (
		rec        domain.DeliveryRecord
		channel    string
		metadata   []byte
		durationMs int64
	)

	err := row.Scan(
		&rec.RequestID, &channel, &rec.Result.Success, &rec.Result.ErrorMessage,
		&rec.Result.ExternalReference, &metadata, &durationMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Result.Channel = domain.Channel(channel)
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if len(metadata) > 0 {
		var m map[string]string
		if err := json.Unmarshal(metadata, &m); err == nil && len(m) > 0 {
			rec.Result.Metadata = m
		}
	}

	return &rec, nil
}
