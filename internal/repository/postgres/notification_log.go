package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/repository"
)

type notificationLogRepository struct {
	BaseRepository
}

func NewNotificationLogRepository(base BaseRepository) repository.NotificationLogRepository {
	return &notificationLogRepository{base}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *model.NotificationLogEntry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	query := `
		INSERT INTO notification_logs (
			id, subscription_id, type, entity_id, status, error_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.SubscriptionID,
		entry.Type,
		entry.EntityID,
		entry.Status,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification log entry: %w", err)
	}
	return nil
}
