package notifier

import (
	"context"
	"fmt"

	cache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/repository"
	"github.com/fermaport/notifier/pkg/logger"
	"github.com/fermaport/notifier/pkg/metrics"
)

const defaultBatchSize = 50

// ProcessorConfig holds batch processing configuration.
type ProcessorConfig struct {
	// BatchSize caps how many eligible updates one pass picks up.
	BatchSize int
	// BaseURL is the portal address deep links are built from.
	BaseURL string
}

// Processor orchestrates one batch pass over the content-update log:
// fetch eligible rows, resolve subscribers, format, deliver, mark
// processed. Also serves direct notifications that bypass the log.
type Processor struct {
	updates   repository.UpdateRepository
	producers repository.ProducerRepository
	resolver  *Resolver
	relay     *Relay
	names     *cache.Cache
	cfg       ProcessorConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewProcessor(
	updates repository.UpdateRepository,
	producers repository.ProducerRepository,
	resolver *Resolver,
	relay *Relay,
	names *cache.Cache,
	cfg ProcessorConfig,
	lg *logger.Logger,
	m *metrics.Metrics,
) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Processor{
		updates:   updates,
		producers: producers,
		resolver:  resolver,
		relay:     relay,
		names:     names,
		cfg:       cfg,
		logger:    lg,
		metrics:   m,
	}
}

// BaseURL exposes the configured portal address for entry points that
// build links of their own.
func (p *Processor) BaseURL() string {
	return p.cfg.BaseURL
}

// Summary tallies one batch pass across all records.
type Summary struct {
	Fetched   int
	Processed int
	Sent      int
	Failed    int
}

// Run executes one batch pass. A read failure aborts the pass; a
// failure inside one record's work is logged, the record stays
// eligible for the next pass, and the loop moves on. "Processed"
// tracks attempted fan-outs, not successful deliveries.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	timer := prometheus.NewTimer(p.metrics.ProcessingLatency)
	defer timer.ObserveDuration()

	updates, err := p.updates.GetPending(ctx, p.cfg.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_updates", "error").Inc()
		return Summary{}, fmt.Errorf("failed to fetch pending updates: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_updates", "success").Inc()

	sum := Summary{Fetched: len(updates)}
	for _, u := range updates {
		res, err := p.processUpdate(ctx, u)
		// Deliveries already happened by the time a mark failure
		// surfaces; they count even when the record stays eligible.
		sum.Sent += res.Sent
		sum.Failed += res.Failed
		if err != nil {
			p.logger.Error(err, "failed to process content update",
				"update_id", u.ID.String(), "entity_type", string(u.EntityType))
			continue
		}
		sum.Processed++
	}

	return sum, nil
}

func (p *Processor) processUpdate(ctx context.Context, u *model.ContentUpdate) (DeliveryResult, error) {
	subs, err := p.resolver.Resolve(ctx, u)
	if err != nil {
		return DeliveryResult{}, err
	}

	// No audience is a normal outcome, not a failure; the record is
	// still retired.
	if len(subs) == 0 {
		if err := p.markProcessed(ctx, u); err != nil {
			return DeliveryResult{}, err
		}
		return DeliveryResult{}, nil
	}

	var producerName string
	if u.ProducerScoped() {
		producerName = p.producerName(ctx, *u.ProducerID)
	}

	msg := FormatUpdate(u, producerName, p.cfg.BaseURL)
	res := p.relay.Deliver(ctx, subs, msg, string(u.EntityType), &u.EntityID)

	// Marked processed regardless of delivery outcomes: retirement
	// tracks "attempted", and a partially failed record is never
	// retried.
	if err := p.markProcessed(ctx, u); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Processor) markProcessed(ctx context.Context, u *model.ContentUpdate) error {
	if err := p.updates.MarkProcessed(ctx, u.ID); err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "error").Inc()
		return fmt.Errorf("failed to mark update processed: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("mark_processed", "success").Inc()
	p.metrics.UpdatesProcessed.Inc()
	return nil
}

// DirectNotification is a pre-composed notification from the direct or
// webhook entry points; it never touches the update log.
type DirectNotification struct {
	// Type goes into the notification log (e.g. "common", "news",
	// "new_product").
	Type string
	// ProducerID scopes the audience to one producer's followers;
	// empty means the common audience.
	ProducerID string
	Title      string
	Message    string
	Link       string
	EntityID   *string
}

// Notify resolves the audience from the notification fields and
// delivers immediately.
func (p *Processor) Notify(ctx context.Context, n DirectNotification) (DeliveryResult, error) {
	var (
		subs []*model.Subscription
		err  error
	)
	if n.ProducerID != "" {
		subs, err = p.resolver.ForProducer(ctx, n.ProducerID)
	} else {
		subs, err = p.resolver.Common(ctx)
	}
	if err != nil {
		return DeliveryResult{}, err
	}

	var producerName string
	if n.ProducerID != "" {
		producerName = p.producerName(ctx, n.ProducerID)
	}

	msg := FormatDirect(producerName, n.Title, n.Message, n.Link)
	return p.relay.Deliver(ctx, subs, msg, n.Type, n.EntityID), nil
}

// producerName resolves a display name through the TTL cache. Lookup
// failures degrade to the generic label rather than failing the
// notification.
func (p *Processor) producerName(ctx context.Context, id string) string {
	if v, ok := p.names.Get(id); ok {
		return v.(string)
	}
	name, err := p.producers.GetName(ctx, id)
	if err != nil {
		p.logger.Error(err, "failed to look up producer name", "producer_id", id)
		return ""
	}
	p.names.Set(id, name, cache.DefaultExpiration)
	return name
}
