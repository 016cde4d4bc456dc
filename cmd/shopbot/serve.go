package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_shopbot/internal/bot"
	"github.com/fjod/go_shopbot/internal/config"
	shophttp "github.com/fjod/go_shopbot/internal/http"
	"github.com/fjod/go_shopbot/internal/notify"
	"github.com/fjod/go_shopbot/internal/publisher"
	"github.com/fjod/go_shopbot/internal/service"
	"github.com/fjod/go_shopbot/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	repo, err := openRepository(cfg, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		return err
	}
	log.Info("database migrations completed")

	sessions, closeSessions, err := openSessionStore(ctx, cfg.Session, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	var sender notify.Sender = notify.NewLogSender(log.Named("delivery"))
	if cfg.Delivery.URL != "" {
		sender = notify.NewWebhookSender(notify.WebhookConfig{
			URL:     cfg.Delivery.URL,
			Timeout: cfg.Delivery.Timeout,
		}, log.Named("delivery"))
	} else {
		log.Warn("DELIVERY_URL is not set, outbound messages are only logged")
	}
	fanout := notify.NewBroadcaster(sender, cfg.Delivery.BroadcastRate, cfg.Delivery.Timeout, log.Named("broadcast"))

	svcLog := log.Named("service")
	broadcasts := service.NewBroadcastService(repo, fanout, sender, svcLog)
	shop := bot.New(bot.Deps{
		Catalog:     service.NewCatalogService(repo, svcLog),
		Cart:        service.NewCartService(repo, svcLog),
		Orders:      service.NewOrderService(repo, repo, fanout, cfg.AdminIDs, svcLog),
		Users:       service.NewUserService(repo, svcLog),
		Broadcaster: broadcasts,
		Sessions:    sessions,
	}, bot.Options{
		AdminIDs:   cfg.AdminIDs,
		AdminPhone: cfg.AdminPhone,
	}, log.Named("bot"))

	var wg sync.WaitGroup
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaBrokers...), time.Second, log.Named("outbox"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollCtx)
			if err := poller.Close(); err != nil {
				log.Error("failed to close kafka writer", zap.Error(err))
			}
		}()
		log.Info("outbox poller started", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		log.Info("KAFKA_BROKERS is not set, order events stay in the outbox")
	}

	events := shophttp.NewEventsHandler(shop, cfg.RequestTimeout, log.Named("http"))
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      shophttp.NewRouter(events, cfg.RequestTimeout, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("shopbot listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := broadcasts.Shutdown(shutdownCtx); err != nil {
		log.Error("broadcasts interrupted", zap.Error(err))
	}
	cancelPoll()
	wg.Wait()

	log.Info("server exited")
	return nil
}

// openSessionStore returns the configured backend and its cleanup.
func openSessionStore(ctx context.Context, cfg config.SessionConfig, log *zap.Logger) (session.Store, func(), error) {
	switch cfg.Backend {
	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("session store: redis", zap.String("addr", cfg.RedisAddr))
		return session.NewRedisStore(client, cfg.TTL), func() { client.Close() }, nil

	case config.SessionMongo:
		db, err := session.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewMongoStore(db, cfg.TTL)
		if err := store.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info("session store: mongo", zap.String("db", cfg.MongoDBName))
		return store, func() { _ = db.Client().Disconnect(context.Background()) }, nil
	}

	store := session.NewMemoryStore(cfg.TTL, session.CleanupInterval)
	log.Info("session store: memory")
	return store, func() { store.Close() }, nil
}
