package notifier

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/repository"
	"github.com/fermaport/notifier/pkg/logger"
	"github.com/fermaport/notifier/pkg/metrics"
)

// Sender delivers one message to a chat. Implemented by the Telegram
// client; tests substitute fakes.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text, link string) (int64, error)
}

// Relay fans one formatted message out to a list of subscribers,
// records each outcome in the notification log, and paces outbound
// calls with the injected limiter. A recipient's failure never stops
// the fan-out.
type Relay struct {
	sender  Sender
	logRepo repository.NotificationLogRepository
	limiter *rate.Limiter
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRelay(sender Sender, logRepo repository.NotificationLogRepository, limiter *rate.Limiter, lg *logger.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		sender:  sender,
		logRepo: logRepo,
		limiter: limiter,
		logger:  lg,
		metrics: m,
	}
}

// DeliveryResult tallies one fan-out.
type DeliveryResult struct {
	Sent   int
	Failed int
	Errors []string
}

// maxReportedErrors caps the error list carried back to HTTP callers.
const maxReportedErrors = 10

// Deliver sends msg to every deliverable subscription. notifType and
// entityID go into the notification log verbatim.
func (r *Relay) Deliver(ctx context.Context, subs []*model.Subscription, msg Message, notifType string, entityID *string) DeliveryResult {
	var res DeliveryResult

	for _, sub := range subs {
		if !sub.Deliverable() {
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			// Context cancelled mid-batch; remaining recipients are
			// abandoned, already-attempted outcomes stand.
			r.logger.Error(err, "delivery pacing interrupted")
			return res
		}

		entry := &model.NotificationLogEntry{
			SubscriptionID: sub.ID,
			Type:           notifType,
			EntityID:       entityID,
		}

		_, err := r.sender.SendMessage(ctx, *sub.ChatID, msg.Text, msg.Link)
		if err != nil {
			res.Failed++
			if len(res.Errors) < maxReportedErrors {
				res.Errors = append(res.Errors, err.Error())
			}
			errText := err.Error()
			entry.Status = model.DeliveryFailed
			entry.ErrorMessage = &errText
			r.metrics.NotificationsFailed.Inc()
			r.logger.Error(err, "notification delivery failed",
				"subscription_id", sub.ID.String(), "type", notifType)
		} else {
			res.Sent++
			entry.Status = model.DeliverySent
			r.metrics.NotificationsSent.Inc()
		}

		if logErr := r.logRepo.Create(ctx, entry); logErr != nil {
			r.logger.Error(logErr, "failed to record delivery outcome",
				"subscription_id", sub.ID.String())
		}
	}

	return res
}
