package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies what kind of portal content an update refers to.
type EntityType string

const (
	EntityProduct   EntityType = "product"
	EntityNews      EntityType = "news"
	EntityPromotion EntityType = "promotion"
	EntityEvent     EntityType = "event"
)

// UpdateAction distinguishes inserts from field updates in the log.
type UpdateAction string

const (
	ActionInsert UpdateAction = "insert"
	ActionUpdate UpdateAction = "update"
)

// UpdateData is the snapshot of new field values carried by a content
// update. Shape depends on the entity type, so it stays schemaless.
type UpdateData map[string]interface{}

// Value implements driver.Valuer for the JSONB column.
func (d UpdateData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for the JSONB column.
func (d *UpdateData) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return fmt.Errorf("unsupported type %T for UpdateData", src)
}

// String returns the string value stored under key, or "".
func (d UpdateData) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Number returns the numeric value stored under key. JSON numbers
// decode as float64.
func (d UpdateData) Number(key string) (float64, bool) {
	n, ok := d[key].(float64)
	return n, ok
}

// ContentUpdate is one row of the append-only content-update log.
// A row is eligible for processing until NotificationSent flips to
// true and ProcessedAt is set; that transition is terminal.
type ContentUpdate struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	EntityType       EntityType   `db:"entity_type" json:"entity_type"`
	EntityID         string       `db:"entity_id" json:"entity_id"`
	ProducerID       *string      `db:"producer_id" json:"producer_id,omitempty"`
	NewData          UpdateData   `db:"new_data" json:"new_data"`
	Action           UpdateAction `db:"action" json:"action,omitempty"`
	NotificationSent bool         `db:"notification_sent" json:"notification_sent"`
	ProcessedAt      *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
}

// ProducerScoped reports whether the update targets a single producer's
// audience rather than the whole portal.
func (u *ContentUpdate) ProducerScoped() bool {
	return u.ProducerID != nil && *u.ProducerID != ""
}
