package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"os/signal"

	"payauth-platform/config"
	redisQueue "payauth-platform/internal/adapter/queue"
	pgStorage "payauth-platform/internal/adapter/storage/postgres"
	redisStorage "payauth-platform/internal/adapter/storage/redis"
	"payauth-platform/internal/observability"
	"payauth-platform/internal/service"
	"payauth-platform/pkg/logger"
)

// relayPollInterval and relayBatchSize bound how aggressively the Outbox
// Relay drains undelivered rows; both are deliberately conservative since
// the relay competes with the API's own transactions for the outbox table.
const (
	relayPollInterval = 500 * time.Millisecond
	relayBatchSize    = 100
)

// main runs the Outbox Relay process: it polls the outbox table for
// undelivered event notifications and republishes them onto the message
// queue, giving the Authorization Worker an at-least-once path to learn
// about new authorization requests that is decoupled from the API's own
// request/response cycle.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Msg("Starting Outbox Relay")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "relay", nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		defer shutdownTracing(context.Background())
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to primary PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	outboxRepo := pgStorage.NewOutboxRepository(pool)
	queue := redisQueue.NewRedisQueue(rdb, cfg.Queue.DedupTTL, cfg.Queue.VisibilityTimeout)

	relay := service.NewOutboxRelay(outboxRepo, queue, log, relayPollInterval, relayBatchSize)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		if err := http.ListenAndServe(":9092", mux); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("relay metrics server stopped")
		}
	}()

	if err := relay.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Outbox Relay stopped")
	}

	log.Info().Msg("Outbox Relay exited")
}
