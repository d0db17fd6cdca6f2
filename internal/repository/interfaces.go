package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fermaport/notifier/internal/model"
)

// UpdateRepository reads and advances the content-update log.
type UpdateRepository interface {
	// GetPending returns up to limit eligible updates: not yet sent,
	// not yet processed, created within the look-back window, oldest
	// first.
	GetPending(ctx context.Context, limit int) ([]*model.ContentUpdate, error)
	// MarkProcessed sets notification_sent and processed_at. The
	// transition is one-way; marking an already processed row is a
	// no-op.
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

// SubscriptionRepository selects delivery candidates. Every method
// returns only enabled subscriptions with a chat id.
type SubscriptionRepository interface {
	ListForProducer(ctx context.Context, producerID string) ([]*model.Subscription, error)
	ListCommon(ctx context.Context) ([]*model.Subscription, error)
	ListPromotions(ctx context.Context) ([]*model.Subscription, error)
}

// NotificationLogRepository appends delivery outcomes.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *model.NotificationLogEntry) error
}

// ProducerRepository resolves producer display names.
type ProducerRepository interface {
	// GetName returns "" without error when the producer is unknown;
	// the formatter substitutes a generic label.
	GetName(ctx context.Context, id string) (string, error)
}
