package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fermaport/notifier/internal/model"
)

func TestRunEmptyBatch(t *testing.T) {
	p := newTestProcessor(&fakeUpdateRepo{}, &fakeSubscriptionRepo{}, &fakeProducerRepo{}, &fakeSender{}, &fakeNotificationLogRepo{})

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestRunFetchErrorAbortsPass(t *testing.T) {
	updates := &fakeUpdateRepo{fetchErr: errors.New("connection refused")}
	p := newTestProcessor(updates, &fakeSubscriptionRepo{}, &fakeProducerRepo{}, &fakeSender{}, &fakeNotificationLogRepo{})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunZeroSubscribersStillProcesses(t *testing.T) {
	// One product update without producer scope: no audience under the
	// routing rules, but the record must still be retired.
	u := newUpdate(model.EntityProduct, model.UpdateData{"name": "Мёд", "price": float64(500)})
	updates := &fakeUpdateRepo{pending: []*model.ContentUpdate{u}}
	sender := &fakeSender{}
	logRepo := &fakeNotificationLogRepo{}

	sub := newSubscription("123")
	p := newTestProcessor(updates, &fakeSubscriptionRepo{common: []*model.Subscription{sub}}, &fakeProducerRepo{}, sender, logRepo)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, updates.isProcessed(u.ID))
	assert.Equal(t, Summary{Fetched: 1, Processed: 1}, sum)
	assert.Empty(t, sender.sent)
	assert.Empty(t, logRepo.entries)
}

func TestRunDeliversToCommonSubscriber(t *testing.T) {
	u := newUpdate(model.EntityNews, model.UpdateData{"title": "Открытие ярмарки"})
	updates := &fakeUpdateRepo{pending: []*model.ContentUpdate{u}}
	sender := &fakeSender{}
	logRepo := &fakeNotificationLogRepo{}

	sub := newSubscription("123")
	sub.SendCommon = true
	p := newTestProcessor(updates, &fakeSubscriptionRepo{common: []*model.Subscription{sub}}, &fakeProducerRepo{}, sender, logRepo)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "123", sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "Открытие ярмарки")

	require.Len(t, logRepo.entries, 1)
	assert.Equal(t, model.DeliverySent, logRepo.entries[0].Status)
	assert.Equal(t, sub.ID, logRepo.entries[0].SubscriptionID)
	assert.Equal(t, "news", logRepo.entries[0].Type)
	require.NotNil(t, logRepo.entries[0].EntityID)
	assert.Equal(t, u.EntityID, *logRepo.entries[0].EntityID)

	assert.True(t, updates.isProcessed(u.ID))
	assert.Equal(t, Summary{Fetched: 1, Processed: 1, Sent: 1}, sum)
}

func TestRunContinuesAfterDeliveryFailure(t *testing.T) {
	u := newUpdate(model.EntityNews, model.UpdateData{"title": "Новость"})
	updates := &fakeUpdateRepo{pending: []*model.ContentUpdate{u}}
	logRepo := &fakeNotificationLogRepo{}

	failing := newSubscription("111")
	failing.SendCommon = true
	healthy := newSubscription("222")
	healthy.SendCommon = true

	sender := &fakeSender{failFor: map[string]error{"111": errSendFailed}}
	p := newTestProcessor(updates, &fakeSubscriptionRepo{common: []*model.Subscription{failing, healthy}}, &fakeProducerRepo{}, sender, logRepo)

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	// The failure is logged with its error text and the fan-out
	// continues to the next subscriber.
	require.Len(t, logRepo.entries, 2)
	assert.Equal(t, model.DeliveryFailed, logRepo.entries[0].Status)
	require.NotNil(t, logRepo.entries[0].ErrorMessage)
	assert.Contains(t, *logRepo.entries[0].ErrorMessage, "sendMessage failed")
	assert.Equal(t, model.DeliverySent, logRepo.entries[1].Status)

	// Partially failed records are still retired, never retried.
	assert.True(t, updates.isProcessed(u.ID))
	assert.Equal(t, Summary{Fetched: 1, Processed: 1, Sent: 1, Failed: 1}, sum)
}

func TestRunRecordFailureDoesNotAbortPass(t *testing.T) {
	bad := newUpdate(model.EntityNews, nil)
	good := newUpdate(model.EntityNews, model.UpdateData{"title": "Вторая"})
	updates := &fakeUpdateRepo{pending: []*model.ContentUpdate{bad, good}}

	sub := newSubscription("123")
	sub.SendCommon = true
	subs := &fakeSubscriptionRepo{common: []*model.Subscription{sub}}

	// Resolver error on the first record only.
	callCount := 0
	failingSubs := &flakySubscriptionRepo{inner: subs, failOnCall: &callCount}

	sender := &fakeSender{}
	logRepo := &fakeNotificationLogRepo{}
	lgp := newTestProcessor(updates, &fakeSubscriptionRepo{}, &fakeProducerRepo{}, sender, logRepo)
	lgp.resolver = NewResolver(failingSubs)

	sum, err := lgp.Run(context.Background())
	require.NoError(t, err)

	// First record stays eligible for the next pass; second went through.
	assert.False(t, updates.isProcessed(bad.ID))
	assert.True(t, updates.isProcessed(good.ID))
	assert.Equal(t, Summary{Fetched: 2, Processed: 1, Sent: 1}, sum)
}

// flakySubscriptionRepo fails the first ListCommon call and delegates
// afterwards.
type flakySubscriptionRepo struct {
	inner      *fakeSubscriptionRepo
	failOnCall *int
}

func (f *flakySubscriptionRepo) ListForProducer(ctx context.Context, producerID string) ([]*model.Subscription, error) {
	return f.inner.ListForProducer(ctx, producerID)
}

func (f *flakySubscriptionRepo) ListCommon(ctx context.Context) ([]*model.Subscription, error) {
	*f.failOnCall++
	if *f.failOnCall == 1 {
		return nil, errors.New("temporary failure")
	}
	return f.inner.ListCommon(ctx)
}

func (f *flakySubscriptionRepo) ListPromotions(ctx context.Context) ([]*model.Subscription, error) {
	return f.inner.ListPromotions(ctx)
}

func TestRunMarkFailureStillCountsDeliveries(t *testing.T) {
	u := newUpdate(model.EntityNews, model.UpdateData{"title": "Новость"})
	updates := &fakeUpdateRepo{pending: []*model.ContentUpdate{u}, markErr: errors.New("deadlock detected")}

	sub := newSubscription("123")
	sub.SendCommon = true
	sender := &fakeSender{}
	p := newTestProcessor(updates, &fakeSubscriptionRepo{common: []*model.Subscription{sub}}, &fakeProducerRepo{}, sender, &fakeNotificationLogRepo{})

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	// The message went out before the mark failed; the record stays
	// eligible but the delivery shows up in the pass totals.
	require.Len(t, sender.sent, 1)
	assert.False(t, updates.isProcessed(u.ID))
	assert.Equal(t, Summary{Fetched: 1, Sent: 1}, sum)
}

func TestRunProducerScopedUsesDisplayName(t *testing.T) {
	u := newUpdate(model.EntityProduct, model.UpdateData{"name": "Мёд", "price": float64(500)})
	u.ProducerID = strPtr("u1")
	u.Action = model.ActionInsert
	updates := &fakeUpdateRepo{pending: []*model.ContentUpdate{u}}

	follower := newSubscription("777")
	follower.SendProfiles = []string{"u1"}
	subs := &fakeSubscriptionRepo{byProducer: map[string][]*model.Subscription{"u1": {follower}}}

	producers := &fakeProducerRepo{names: map[string]string{"u1": "Пасека Петровых"}}
	sender := &fakeSender{}
	p := newTestProcessor(updates, subs, producers, sender, &fakeNotificationLogRepo{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Пасека Петровых")
	assert.Contains(t, sender.sent[0].Text, "Мёд — 500 ₽")
}

func TestNotifyProducerScoped(t *testing.T) {
	follower := newSubscription("777")
	subs := &fakeSubscriptionRepo{byProducer: map[string][]*model.Subscription{"u1": {follower}}}
	producers := &fakeProducerRepo{names: map[string]string{"u1": "Ферма Ивановых"}}
	sender := &fakeSender{}
	logRepo := &fakeNotificationLogRepo{}
	p := newTestProcessor(&fakeUpdateRepo{}, subs, producers, sender, logRepo)

	res, err := p.Notify(context.Background(), DirectNotification{
		Type:       "new_product",
		ProducerID: "u1",
		Title:      "Новый товар",
		Message:    "Сыр",
		EntityID:   strPtr("p1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Zero(t, res.Failed)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Ферма Ивановых")
	require.Len(t, logRepo.entries, 1)
	assert.Equal(t, "new_product", logRepo.entries[0].Type)
}

func TestNotifyCachesProducerName(t *testing.T) {
	subs := &fakeSubscriptionRepo{byProducer: map[string][]*model.Subscription{"u1": {newSubscription("1")}}}
	producers := &fakeProducerRepo{names: map[string]string{"u1": "Ферма"}}
	p := newTestProcessor(&fakeUpdateRepo{}, subs, producers, &fakeSender{}, &fakeNotificationLogRepo{})

	n := DirectNotification{Type: "common", ProducerID: "u1", Title: "t", Message: "m"}
	_, err := p.Notify(context.Background(), n)
	require.NoError(t, err)
	_, err = p.Notify(context.Background(), n)
	require.NoError(t, err)

	assert.Equal(t, 1, producers.calls)
}

func TestNotifyCommonAudience(t *testing.T) {
	common := newSubscription("200")
	subs := &fakeSubscriptionRepo{common: []*model.Subscription{common}}
	sender := &fakeSender{}
	p := newTestProcessor(&fakeUpdateRepo{}, subs, &fakeProducerRepo{}, sender, &fakeNotificationLogRepo{})

	res, err := p.Notify(context.Background(), DirectNotification{
		Type:    "common",
		Title:   "Анонс",
		Message: "Ярмарка в субботу",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Фермерский портал")
}
