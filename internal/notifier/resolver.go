package notifier

import (
	"context"
	"fmt"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/repository"
)

// Resolver selects the subscriptions that should receive a given
// update. Routing, in order: producer scope beats entity type;
// news and events go to the common audience; promotions to the
// promotions audience. Producer-less products and unrecognized types
// have no audience and resolve to an empty set.
type Resolver struct {
	subs repository.SubscriptionRepository
}

func NewResolver(subs repository.SubscriptionRepository) *Resolver {
	return &Resolver{subs: subs}
}

// Resolve returns the delivery candidates for one content update.
func (r *Resolver) Resolve(ctx context.Context, u *model.ContentUpdate) ([]*model.Subscription, error) {
	if u.ProducerScoped() {
		return r.ForProducer(ctx, *u.ProducerID)
	}

	switch u.EntityType {
	case model.EntityNews, model.EntityEvent:
		return r.Common(ctx)
	case model.EntityPromotion:
		return r.Promotions(ctx)
	}
	return nil, nil
}

// ForProducer returns subscriptions following the given producer.
func (r *Resolver) ForProducer(ctx context.Context, producerID string) ([]*model.Subscription, error) {
	subs, err := r.subs.ListForProducer(ctx, producerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve producer subscribers: %w", err)
	}
	return deliverable(subs), nil
}

// Common returns subscriptions opted into portal-wide updates.
func (r *Resolver) Common(ctx context.Context) ([]*model.Subscription, error) {
	subs, err := r.subs.ListCommon(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve common subscribers: %w", err)
	}
	return deliverable(subs), nil
}

// Promotions returns subscriptions opted into promotion updates.
func (r *Resolver) Promotions(ctx context.Context) ([]*model.Subscription, error) {
	subs, err := r.subs.ListPromotions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve promotion subscribers: %w", err)
	}
	return deliverable(subs), nil
}

// deliverable drops rows that cannot receive anything. The Postgres
// queries already filter on enabled and chat_id; this guards against
// other store implementations being looser. Always returns a fresh
// slice: stores may hand out shared or cached slices, and filtering
// in place would corrupt them for the next resolve.
func deliverable(subs []*model.Subscription) []*model.Subscription {
	out := make([]*model.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.Deliverable() {
			out = append(out, s)
		}
	}
	return out
}
