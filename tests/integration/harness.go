package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"payauth-platform/internal/adapter/http/handler"
	redisQueue "payauth-platform/internal/adapter/queue"
	redisStorage "payauth-platform/internal/adapter/storage/redis"
	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Fixed, non-secret values used only to satisfy constructors in tests.
const (
	testAESKey             = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testDeviceKeyMaster    = "test-device-key-master-secret"
	testFastPathTimeout    = 2 * time.Second
	testVisibilityTimeout  = 200 * time.Millisecond
	testDedupTTL           = time.Hour
	testLockRetryDelay     = 10 * time.Millisecond
	testLockTTLSeconds     = int64(2)
	testOutboxPollInterval = 20 * time.Millisecond
	testOutboxBatchSize    = 50
	testMaxRetries         = 3
)

// testApp wires a full authorization platform stack -- real HTTP router,
// real ingress/worker/relay services, real Redis (via miniredis) for
// locking, queueing, and nonce tracking -- against in-memory stand-ins for
// the Postgres repositories, so end-to-end scenarios run without a
// database. Modeled on the teacher's own integration harness: fake the
// storage layer, keep everything above it real.
type testApp struct {
	server     *httptest.Server
	mr         *miniredis.Miniredis
	rdb        *goredis.Client
	sigSvc     ports.SignatureService
	accessKey  string
	secretKey  string
	restaurant uuid.UUID

	readModel *inMemoryReadModelRepository
	events    *inMemoryEventRepository
	tokenSvc  ports.TokenStoreService

	// Dependencies kept around so a scenario can start additional workers
	// after the fact (the void-before-auth race needs the queued message
	// to sit unconsumed until after the void call lands).
	queue         ports.MessageQueue
	lock          ports.LockManager
	restaurantCfg ports.RestaurantConfigRepository
	eventLogSvc   ports.EventLogService
	workerLog     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// appOptions configures a testApp. WorkerCount is not defaulted: pass 0
// deliberately (the void-before-auth race needs the queued message to sit
// unconsumed until the scenario calls startWorkers itself).
type appOptions struct {
	Processors  ports.ProcessorRegistry
	WorkerCount int
	MaxRetries  int
}

// newTestApp starts a test application with opts.WorkerCount Authorization
// Worker instances dispatching through opts.Processors. Each scenario
// supplies the processor fake it needs (flaky, always-fail, slow, or the
// deterministic mock).
func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	if opts.MaxRetries == 0 {
		opts.MaxRetries = testMaxRetries
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	nonceStore := redisStorage.NewNonceStore(rdb)
	lockStore := redisStorage.NewLockStore(rdb, testLockRetryDelay)
	queue := redisQueue.NewRedisQueue(rdb, testDedupTTL, testVisibilityTimeout)

	events := newInMemoryEventRepository()
	readModel := newInMemoryReadModelRepository()
	outbox := newInMemoryOutboxRepository()
	authIdem := newInMemoryAuthIdempotencyRepository()
	voidIdem := newInMemoryVoidIdempotencyRepository()
	restaurantCfg := newInMemoryRestaurantConfigRepository()
	credRepo := newInMemoryCredentialRepository()

	tokenRepo := newInMemoryTokenRepository()
	tokenIdem := newInMemoryTokenIdempotencyRepository()
	decryptAudit := newInMemoryDecryptAuditRepository()
	encKeys := newInMemoryEncryptionKeyRepository()

	transactor := inMemoryTransactor{}

	encSvc, err := service.NewAESEncryptionService(testAESKey)
	if err != nil {
		t.Fatalf("building encryption service: %v", err)
	}
	sigSvc := service.NewHMACSignatureService()
	deviceKeys := service.NewDeviceKeyDeriver([]byte(testDeviceKeyMaster))
	tokenSvc := service.NewTokenStoreService(transactor, tokenRepo, tokenIdem, decryptAudit, encKeys, encSvc, deviceKeys)

	waiters := service.NewInProcessWaiterRegistry()
	eventLogSvc := service.NewEventLogService(transactor, events, readModel, outbox, waiters)
	ingressSvc := service.NewIngressService(transactor, authIdem, voidIdem, readModel, eventLogSvc, waiters, testFastPathTimeout)

	restaurantID := uuid.New()
	now := time.Now()
	if err := restaurantCfg.Upsert(context.Background(), domain.RestaurantPaymentConfig{
		RestaurantID:  restaurantID,
		ProcessorName: "mock",
		ProcessorMode: "test",
		MerchantRef:   "merchant-" + restaurantID.String()[:8],
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("seeding restaurant config: %v", err)
	}

	accessKey := "ak_" + uuid.NewString()
	secretKey := "sk_" + uuid.NewString()
	encryptedSecret, err := encSvc.Encrypt(secretKey)
	if err != nil {
		t.Fatalf("encrypting fixture secret: %v", err)
	}
	credRepo.byAccessKey[accessKey] = domain.RestaurantCredential{
		RestaurantID:    restaurantID,
		AccessKey:       accessKey,
		EncryptedSecret: encryptedSecret,
		Active:          true,
		CreatedAt:       now,
	}

	log := zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < opts.WorkerCount; i++ {
		workerID := fmt.Sprintf("test-worker-%d", i)
		worker := service.NewAuthWorker(workerID, queue, lockStore, readModel, restaurantCfg, eventLogSvc, tokenSvc, opts.Processors, log, testLockTTLSeconds, opts.MaxRetries)
		go worker.Run(ctx)
	}

	relay := service.NewOutboxRelay(outbox, queue, log, testOutboxPollInterval, testOutboxBatchSize)
	go relay.Run(ctx)

	router := handler.SetupRouter(handler.RouterDeps{
		IngressSvc:     ingressSvc,
		TokenSvc:       tokenSvc,
		CredentialRepo: credRepo,
		EncSvc:         encSvc,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		Logger:         log,
	})
	server := httptest.NewServer(router)

	app := &testApp{
		server:     server,
		mr:         mr,
		rdb:        rdb,
		sigSvc:     sigSvc,
		accessKey:  accessKey,
		secretKey:  secretKey,
		restaurant: restaurantID,
		readModel:     readModel,
		events:        events,
		tokenSvc:      tokenSvc,
		queue:         queue,
		lock:          lockStore,
		restaurantCfg: restaurantCfg,
		eventLogSvc:   eventLogSvc,
		workerLog:     log,
		ctx:           ctx,
		cancel:        cancel,
	}
	t.Cleanup(app.close)
	return app
}

// startWorkers launches n more Authorization Worker instances against
// processors, sharing this app's queue, lock, and event log. Scenarios
// that need to control exactly when a queued message is first picked up
// (the void-before-auth race) start the app with WorkerCount: 0 and call
// this once the race's precondition is in place.
func (a *testApp) startWorkers(processors ports.ProcessorRegistry, n int) {
	for i := 0; i < n; i++ {
		workerID := "late-worker-" + uuid.NewString()[:8]
		worker := service.NewAuthWorker(workerID, a.queue, a.lock, a.readModel, a.restaurantCfg, a.eventLogSvc, a.tokenSvc, processors, a.workerLog, testLockTTLSeconds, testMaxRetries)
		go worker.Run(a.ctx)
	}
}

// fixtureToken creates a usable payment token for this app's restaurant and
// returns its token id, the same string a client would send as
// AuthorizeRequest.PaymentToken.
func (a *testApp) fixtureToken(t *testing.T, pan string) string {
	t.Helper()
	token, err := a.tokenSvc.CreatePaymentToken(context.Background(), ports.CreatePaymentTokenRequest{
		RestaurantID: a.restaurant,
		Card: domain.PaymentData{
			PAN:         pan,
			CVV:         "123",
			ExpiryMonth: 12,
			ExpiryYear:  2030,
			CardBrand:   "visa",
		},
		IdempotencyKey: "fixture-" + uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("creating fixture payment token: %v", err)
	}
	return token.TokenID
}

func (a *testApp) close() {
	a.cancel()
	a.server.Close()
	a.rdb.Close()
	a.mr.Close()
}

// signedHeaders computes the HMAC headers a real ingress client would send
// for method/path/body, exactly as middleware.HMACAuth verifies them.
func (a *testApp) signedHeaders(method, path, body string) map[string]string {
	timestamp := time.Now().Unix()
	nonce := uuid.NewString()
	canonical := a.sigSvc.BuildCanonicalString(method, path, timestamp, nonce, body)
	signature := a.sigSvc.Sign(a.secretKey, canonical)
	return map[string]string{
		"X-Restaurant-Access-Key": a.accessKey,
		"X-Signature":             signature,
		"X-Timestamp":             fmt.Sprintf("%d", timestamp),
		"X-Nonce":                 nonce,
	}
}

func (a *testApp) url(path string) string {
	return a.server.URL + path
}
