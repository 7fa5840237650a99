package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payauth-platform/config"
	httpHandler "payauth-platform/internal/adapter/http/handler"
	pgStorage "payauth-platform/internal/adapter/storage/postgres"
	redisStorage "payauth-platform/internal/adapter/storage/redis"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/observability"
	"payauth-platform/internal/service"
	"payauth-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Payment Authorization Platform API")

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, "api", nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		defer shutdownTracing(context.Background())
	}

	// Primary database: events, read model, outbox, idempotency, restaurant
	// config and credentials.
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to primary PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("Primary PostgreSQL connected")

	// Token Store database is physically isolated from the primary
	// database -- it is the only store that ever holds cardholder data.
	tokenPool, err := pgStorage.NewPool(ctx, cfg.TokenStoreDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to token store PostgreSQL")
	}
	defer tokenPool.Close()
	log.Info().Msg("Token store PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Primary-database repositories
	eventRepo := pgStorage.NewEventRepository(pool)
	readModelRepo := pgStorage.NewReadModelRepository(pool)
	outboxRepo := pgStorage.NewOutboxRepository(pool)
	authIdemRepo := pgStorage.NewAuthIdempotencyRepository(pool)
	voidIdemRepo := pgStorage.NewVoidIdempotencyRepository(pool)
	credentialRepo := pgStorage.NewRestaurantCredentialRepository(pool)
	operatorRepo := pgStorage.NewOperatorRepository(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Token-store-database repositories
	tokenRepo := pgStorage.NewPaymentTokenRepository(tokenPool)
	tokenIdemRepo := pgStorage.NewTokenIdempotencyRepository(tokenPool)
	decryptAuditRepo := pgStorage.NewDecryptAuditRepository(tokenPool)
	encKeyRepo := pgStorage.NewEncryptionKeyRepository(tokenPool)
	tokenTransactor := pgStorage.NewTransactor(tokenPool)

	// Redis-backed stores
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Crypto and identity services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	deviceKeys := service.NewDeviceKeyDeriver([]byte(cfg.TokenStore.DeviceKeyMasterSecret))
	hashSvc := service.NewArgon2HashService()

	// Core domain services
	waiters := service.NewInProcessWaiterRegistry()
	eventLogSvc := service.NewEventLogService(transactor, eventRepo, readModelRepo, outboxRepo, waiters)
	ingressSvc := service.NewIngressService(transactor, authIdemRepo, voidIdemRepo, readModelRepo, eventLogSvc, waiters, cfg.FastPath.WaitTimeout)
	tokenStoreSvc := service.NewTokenStoreService(tokenTransactor, tokenRepo, tokenIdemRepo, decryptAuditRepo, encKeyRepo, encSvc, deviceKeys)
	reportingSvc := service.NewReportingService(readModelRepo)
	auditSvc := service.NewAuditLogService(auditRepo, log)
	loginSvc := service.NewLoginService(operatorRepo, hashSvc, tokenSvc)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	tokenPgHealth := pgStorage.NewHealthCheck(tokenPool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IngressSvc:     ingressSvc,
		TokenSvc:       tokenStoreSvc,
		ReportingSvc:   reportingSvc,
		LoginSvc:       loginSvc,
		CredentialRepo: credentialRepo,
		EncSvc:         encSvc,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		JWTSvc:         tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, tokenPgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
