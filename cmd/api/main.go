package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/fermaport/notifier/internal/config"
	"github.com/fermaport/notifier/internal/handler/notify"
	"github.com/fermaport/notifier/internal/middleware"
	"github.com/fermaport/notifier/internal/notifier"
	"github.com/fermaport/notifier/internal/repository/postgres"
	"github.com/fermaport/notifier/internal/router"
	"github.com/fermaport/notifier/pkg/logger"
	"github.com/fermaport/notifier/pkg/metrics"
	"github.com/fermaport/notifier/pkg/telegram"
)

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

	m := metrics.New("notifier")
	m.MustRegister(prometheus.DefaultRegisterer)

	base := postgres.NewBaseRepository(db)
	updateRepo := postgres.NewUpdateRepository(base)
	subscriptionRepo := postgres.NewSubscriptionRepository(base)
	notificationLogRepo := postgres.NewNotificationLogRepository(base)
	producerRepo := postgres.NewProducerRepository(base)

	resolver := notifier.NewResolver(subscriptionRepo)
	limiter := rate.NewLimiter(rate.Every(cfg.Batch.SendInterval), 1)
	relay := notifier.NewRelay(tg, notificationLogRepo, limiter, lg, m)
	names := cache.New(cfg.Batch.ProducerCacheTTL, 2*cfg.Batch.ProducerCacheTTL)

	processor := notifier.NewProcessor(
		updateRepo,
		producerRepo,
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

	auth := middleware.NewAuthMiddleware(cfg.App.APISecret)
	notifyHandler := notify.NewHandler(processor, lg)

	r := router.New(auth, notifyHandler, db, router.Config{
		RateLimitRPS: cfg.Server.RateLimitRPS,
		RateBurst:    cfg.Server.RateBurst,
		CORS:         middleware.DefaultCORSConfig(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		lg.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Fatal(err, "server forced to shutdown")
	}

	lg.Info("server exited properly")
}
