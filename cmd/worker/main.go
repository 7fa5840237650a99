package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"payauth-platform/config"
	redisQueue "payauth-platform/internal/adapter/queue"
	pgStorage "payauth-platform/internal/adapter/storage/postgres"
	redisStorage "payauth-platform/internal/adapter/storage/redis"
	"payauth-platform/internal/observability"
	"payauth-platform/internal/service"
	"payauth-platform/internal/service/processor"
	"payauth-platform/pkg/logger"

	"github.com/google/uuid"
)

// main runs the Authorization Worker process: it consumes queued
// authorization requests, takes the distributed lock for each aggregate,
// and dispatches attempts to the resolved processor adapter. It links the
// Token Store in-process rather than calling it over HTTP, since both live
// in the same deployable and the extra hop would buy nothing but latency.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Msg("Starting Authorization Worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "worker", nil)
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

	tokenPool, err := pgStorage.NewPool(ctx, cfg.TokenStoreDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to token store PostgreSQL")
	}
	defer tokenPool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	eventRepo := pgStorage.NewEventRepository(pool)
	readModelRepo := pgStorage.NewReadModelRepository(pool)
	outboxRepo := pgStorage.NewOutboxRepository(pool)
	restaurantCfgRepo := pgStorage.NewRestaurantConfigRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	tokenRepo := pgStorage.NewPaymentTokenRepository(tokenPool)
	tokenIdemRepo := pgStorage.NewTokenIdempotencyRepository(tokenPool)
	decryptAuditRepo := pgStorage.NewDecryptAuditRepository(tokenPool)
	encKeyRepo := pgStorage.NewEncryptionKeyRepository(tokenPool)
	tokenTransactor := pgStorage.NewTransactor(tokenPool)

	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	deviceKeys := service.NewDeviceKeyDeriver([]byte(cfg.TokenStore.DeviceKeyMasterSecret))
	tokenStoreSvc := service.NewTokenStoreService(tokenTransactor, tokenRepo, tokenIdemRepo, decryptAuditRepo, encKeyRepo, encSvc, deviceKeys)

	waiters := service.NewInProcessWaiterRegistry()
	eventLogSvc := service.NewEventLogService(transactor, eventRepo, readModelRepo, outboxRepo, waiters)

	queue := redisQueue.NewRedisQueue(rdb, cfg.Queue.DedupTTL, cfg.Queue.VisibilityTimeout)
	lock := redisStorage.NewLockStore(rdb, cfg.Lock.RetryDelay)

	registry := processor.NewRegistry(
		processor.NewMockProcessor(cfg.Processor.MockLatency),
		processor.NewStripeProcessor(cfg.Processor.StripeSecretKey),
	)

	workerID := fmt.Sprintf("auth-worker-%s", uuid.NewString()[:8])
	lockTTL := int64(cfg.Lock.TTL.Seconds())
	worker := service.NewAuthWorker(workerID, queue, lock, readModelRepo, restaurantCfgRepo, eventLogSvc, tokenStoreSvc, registry, log, lockTTL, cfg.Worker.MaxRetries)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		if err := http.ListenAndServe(":9091", mux); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("worker metrics server stopped")
		}
	}()

	log.Info().Str("worker_id", workerID).Msg("Authorization Worker consuming")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Authorization Worker stopped")
	}

	log.Info().Msg("Authorization Worker exited")
}
