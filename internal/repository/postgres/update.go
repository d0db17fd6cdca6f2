package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/repository"
)

// Records older than this are never picked up, even if unprocessed.
// Keeps a stuck deployment from flooding subscribers with stale news.
const lookbackWindow = "24 hours"

type updateRepository struct {
	BaseRepository
}

func NewUpdateRepository(base BaseRepository) repository.UpdateRepository {
	return &updateRepository{base}
}

func (r *updateRepository) GetPending(ctx context.Context, limit int) ([]*model.ContentUpdate, error) {
	query := `
		SELECT id, entity_type, entity_id, producer_id, new_data,
		       COALESCE(action, '') AS action,
		       notification_sent, processed_at, created_at
		FROM content_updates
		WHERE notification_sent = false
		  AND processed_at IS NULL
		  AND created_at > NOW() - INTERVAL '` + lookbackWindow + `'
		ORDER BY created_at ASC
		LIMIT $1
	`

	var updates []*model.ContentUpdate
	err := r.db.SelectContext(ctx, &updates, query, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending updates: %w", err)
	}
	return updates, nil
}

func (r *updateRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE content_updates
		SET notification_sent = true, processed_at = NOW()
		WHERE id = $1 AND processed_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark update processed: %w", err)
	}
	return nil
}
