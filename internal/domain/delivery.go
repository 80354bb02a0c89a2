package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryRecord is one channel outcome of a dispatched request as kept in
// the delivery log
type DeliveryRecord struct {
	RequestID uuid.UUID          `json:"request_id"`
	Result    NotificationResult `json:"result"`
	Duration  time.Duration      `json:"duration"`
	CreatedAt time.Time          `json:"created_at"`
}

// DeliveryRepository persists channel outcomes for later lookup
type DeliveryRepository interface {
	Record(ctx context.Context, record *DeliveryRecord) error
	// ListByRequestID returns the records of a request in canonical channel
	// order, or ErrNotFound when there are none.
	ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*DeliveryRecord, error)
}
