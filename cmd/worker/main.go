package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/fermaport/notifier/internal/config"
	"github.com/fermaport/notifier/internal/notifier"
	"github.com/fermaport/notifier/internal/repository/postgres"
	"github.com/fermaport/notifier/pkg/logger"
	"github.com/fermaport/notifier/pkg/metrics"
	"github.com/fermaport/notifier/pkg/telegram"
)

// The worker runs the same batch pass the /process endpoint exposes,
// on a fixed poll interval. Deployments that already trigger the
// endpoint from an external scheduler do not need this binary.
func main() {
	lg := logger.NewLogger(nil)

	cfg, err := config.Load()
	if err != nil {
		lg.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database.URL)
	if err != nil {
		lg.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	tg, err := telegram.NewClient(telegram.Config{
		Token:   cfg.Telegram.BotToken,
		APIHost: cfg.Telegram.APIHost,
	})
	if err != nil {
		lg.Fatal(err, "failed to create telegram client")
	}

	m := metrics.New("notifier_worker")
	m.MustRegister(prometheus.DefaultRegisterer)

	base := postgres.NewBaseRepository(db)
	resolver := notifier.NewResolver(postgres.NewSubscriptionRepository(base))
	limiter := rate.NewLimiter(rate.Every(cfg.Batch.SendInterval), 1)
	relay := notifier.NewRelay(tg, postgres.NewNotificationLogRepository(base), limiter, lg, m)
	names := cache.New(cfg.Batch.ProducerCacheTTL, 2*cfg.Batch.ProducerCacheTTL)

	processor := notifier.NewProcessor(
		postgres.NewUpdateRepository(base),
		postgres.NewProducerRepository(base),
		resolver,
		relay,
		names,
		notifier.ProcessorConfig{
			BatchSize: cfg.Batch.Size,
			BaseURL:   cfg.App.BaseURL,
		},
		lg,
		m,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("starting notification worker", "poll_interval", cfg.Batch.PollInterval.String())

	ticker := time.NewTicker(cfg.Batch.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("shutting down notification worker")
			return
		case <-ticker.C:
			sum, err := processor.Run(ctx)
			if err != nil {
				lg.Error(err, "batch pass failed")
				continue
			}
			if sum.Fetched > 0 {
				lg.Info("batch pass finished",
					"fetched", sum.Fetched,
					"processed", sum.Processed,
					"sent", sum.Sent,
					"failed", sum.Failed)
			}
		}
	}
}
