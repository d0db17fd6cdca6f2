package postgres

import (
	"context"
	"fmt"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/repository"
)

const subscriptionColumns = `
	id, enabled, chat_id, send_common, send_promotions, send_profiles, created_at
`

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

func (r *subscriptionRepository) ListForProducer(ctx context.Context, producerID string) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE enabled = true
		  AND chat_id IS NOT NULL
		  AND $1 = ANY(send_profiles)
	`
	return r.list(ctx, query, producerID)
}

func (r *subscriptionRepository) ListCommon(ctx context.Context) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE enabled = true
		  AND chat_id IS NOT NULL
		  AND send_common = true
	`
	return r.list(ctx, query)
}

func (r *subscriptionRepository) ListPromotions(ctx context.Context) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE enabled = true
		  AND chat_id IS NOT NULL
		  AND send_promotions = true
	`
	return r.list(ctx, query)
}

func (r *subscriptionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
