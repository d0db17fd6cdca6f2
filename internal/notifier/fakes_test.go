package notifier

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/pkg/logger"
	"github.com/fermaport/notifier/pkg/metrics"
)

type fakeUpdateRepo struct {
	mu        sync.Mutex
	pending   []*model.ContentUpdate
	processed []uuid.UUID
	fetchErr  error
	markErr   error
}

func (f *fakeUpdateRepo) GetPending(ctx context.Context, limit int) ([]*model.ContentUpdate, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeUpdateRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeUpdateRepo) isProcessed(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.processed {
		if p == id {
			return true
		}
	}
	return false
}

type fakeSubscriptionRepo struct {
	byProducer map[string][]*model.Subscription
	common     []*model.Subscription
	promotions []*model.Subscription
	err        error
}

func (f *fakeSubscriptionRepo) ListForProducer(ctx context.Context, producerID string) ([]*model.Subscription, error) {
	return f.byProducer[producerID], f.err
}

func (f *fakeSubscriptionRepo) ListCommon(ctx context.Context) ([]*model.Subscription, error) {
	return f.common, f.err
}

func (f *fakeSubscriptionRepo) ListPromotions(ctx context.Context) ([]*model.Subscription, error) {
	return f.promotions, f.err
}

type fakeNotificationLogRepo struct {
	mu      sync.Mutex
	entries []*model.NotificationLogEntry
}

func (f *fakeNotificationLogRepo) Create(ctx context.Context, entry *model.NotificationLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakeProducerRepo struct {
	names map[string]string
	calls int
}

func (f *fakeProducerRepo) GetName(ctx context.Context, id string) (string, error) {
	f.calls++
	return f.names[id], nil
}

type sentMessage struct {
	ChatID string
	Text   string
	Link   string
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failFor  map[string]error
	failNext error
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID, text, link string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[chatID]; err != nil {
		return 0, err
	}
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Link: link})
	return int64(len(f.sent)), nil
}

var errSendFailed = errors.New("telegram sendMessage failed: 500 Internal Server Error")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func newTestProcessor(updates *fakeUpdateRepo, subs *fakeSubscriptionRepo, producers *fakeProducerRepo, sender *fakeSender, logRepo *fakeNotificationLogRepo) *Processor {
	lg := testLogger()
	m := metrics.New("test")
	relay := NewRelay(sender, logRepo, rate.NewLimiter(rate.Inf, 1), lg, m)
	return NewProcessor(
		updates,
		producers,
		NewResolver(subs),
		relay,
		cache.New(time.Minute, time.Minute),
		ProcessorConfig{BatchSize: 50, BaseURL: "https://fermaport.ru"},
		lg,
		m,
	)
}

func strPtr(s string) *string { return &s }

func newSubscription(chatID string) *model.Subscription {
	return &model.Subscription{
		ID:      uuid.New(),
		Enabled: true,
		ChatID:  strPtr(chatID),
	}
}

func newUpdate(t model.EntityType, data model.UpdateData) *model.ContentUpdate {
	return &model.ContentUpdate{
		ID:         uuid.New(),
		EntityType: t,
		EntityID:   uuid.NewString(),
		NewData:    data,
		CreatedAt:  time.Now(),
	}
}
