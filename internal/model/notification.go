package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the per-recipient outcome recorded in the
// notification log.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// NotificationLogEntry is the append-only audit trail of delivery
// attempts. Entries are never mutated or deleted by this service.
type NotificationLogEntry struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	SubscriptionID uuid.UUID      `db:"subscription_id" json:"subscription_id"`
	Type           string         `db:"type" json:"type"`
	EntityID       *string        `db:"entity_id" json:"entity_id,omitempty"`
	Status         DeliveryStatus `db:"status" json:"status"`
	ErrorMessage   *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
