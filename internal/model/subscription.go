package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Subscription is one recipient's notification preferences plus the
// Telegram chat the messages go to. Read-only from this service.
type Subscription struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Enabled        bool           `db:"enabled" json:"enabled"`
	ChatID         *string        `db:"chat_id" json:"chat_id,omitempty"`
	SendCommon     bool           `db:"send_common" json:"send_common"`
	SendPromotions bool           `db:"send_promotions" json:"send_promotions"`
	SendProfiles   pq.StringArray `db:"send_profiles" json:"send_profiles"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Deliverable reports whether the subscription can actually receive a
// message: enabled with a non-empty chat id.
func (s *Subscription) Deliverable() bool {
	return s.Enabled && s.ChatID != nil && *s.ChatID != ""
}
