package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payauth-platform/internal/core/domain"
)

// EncryptionService encrypts and decrypts cardholder data at rest. The Token
// Store is its only caller; nothing else ever sees plaintext PAN/CVV.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService verifies the HMAC request signature ingress clients sign
// every authorize/void call with.
type SignatureService interface {
	Sign(secretKey, payload string) string
	Verify(secretKey, payload, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce, body string) string
}

// HashService hashes operator passwords for the dashboard login path.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// SubjectKind distinguishes a dashboard-operator JWT from a
// service-to-service identity token; both are issued by the same
// TokenService but carry different claims.
type SubjectKind string

const (
	SubjectKindRestaurant SubjectKind = "restaurant"
	SubjectKindService    SubjectKind = "service"
)

// TokenClaims is what TokenService.Validate extracts from a JWT.
type TokenClaims struct {
	Kind         SubjectKind
	RestaurantID uuid.UUID
	ServiceName  string
	AccessKey    string
}

// TokenService issues and validates JWTs for both the tenant dashboard and
// internal X-Service-Auth service identity.
type TokenService interface {
	GenerateForRestaurant(restaurantID uuid.UUID, accessKey string) (string, time.Time, error)
	GenerateForService(serviceName string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// NonceStore rejects a replayed (merchantID, nonce) pair within the request
// signing window.
type NonceStore interface {
	CheckAndSet(ctx context.Context, scopeID, nonce string, ttl time.Duration) (bool, error)
}

// IdempotencyCache is the Redis fast path consulted before the database for
// a previously-completed idempotent request.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AuthorizeRequest is AuthIngressService.Authorize's input, already
// authenticated by the HMAC middleware.
type AuthorizeRequest struct {
	RestaurantID   uuid.UUID
	PaymentToken   string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
	CorrelationID  string
}

// AuthorizeResult is AuthIngressService.Authorize's output: either the fast
// path resolved within the request's budget, or the caller should poll
// GetStatus with AuthRequestID.
type AuthorizeResult struct {
	AuthRequestID uuid.UUID
	Status        domain.AuthRequestStatus
	Synchronous   bool
}

// VoidRequest is AuthIngressService.Void's input.
type VoidRequest struct {
	RestaurantID   uuid.UUID
	AuthRequestID  uuid.UUID
	Reason         string
	IdempotencyKey string
	CorrelationID  string
}

// AuthIngressService is the Authorization Ingress component: validates,
// deduplicates, appends AuthRequestCreated, enqueues the worker message, and
// waits a bounded time for a synchronous answer before falling back to
// polling.
type AuthIngressService interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
	Void(ctx context.Context, req VoidRequest) (*AuthorizeResult, error)
	GetStatus(ctx context.Context, restaurantID, authRequestID uuid.UUID) (*domain.AuthRequestState, error)
}

// WaiterRegistry is the in-process fast-path wait mechanism: ingress
// registers interest in an AuthRequestID, and the worker notifies it the
// instant a terminal event is appended, without either side polling.
type WaiterRegistry interface {
	// Wait blocks until notify is called for id, ctx is done, or timeout
	// elapses, whichever comes first.
	Wait(ctx context.Context, id uuid.UUID, timeout time.Duration) (*domain.AuthRequestState, bool)
	// Notify wakes any waiter registered for id. A no-op if nobody is
	// waiting.
	Notify(id uuid.UUID, state domain.AuthRequestState)
}

// EventLogService appends events to the append-only log, synchronously
// projecting the read model in the same transaction. Only
// AppendAuthRequestCreatedTx also writes an outbox row.
type EventLogService interface {
	// AppendAuthRequestCreatedTx is the only entry point that creates a new
	// aggregate; everything after it is AppendEvent against sequence 1+. It
	// writes through the caller-owned tx instead of opening its own, so
	// ingress can fold the idempotency-key reservation into the same commit
	// (the aggregate's creation and its idempotency binding must never be
	// observed out of sync).
	AppendAuthRequestCreatedTx(ctx context.Context, tx Tx, aggregateID uuid.UUID, payload domain.AuthRequestCreatedPayload, correlationID string) (*domain.AuthRequestState, error)
	AppendEvent(ctx context.Context, aggregateID uuid.UUID, kind domain.EventKind, payload any, expectedSequence int64, correlationID, causationID string) (*domain.AuthRequestState, error)
	// AppendEventTx behaves like AppendEvent but writes through the
	// caller-owned tx, for the same reason AppendAuthRequestCreatedTx does.
	AppendEventTx(ctx context.Context, tx Tx, aggregateID uuid.UUID, kind domain.EventKind, payload any, expectedSequence int64, correlationID, causationID string) (*domain.AuthRequestState, error)
}

// OutboxRelay is the Outbox Relay component: polls OutboxRepository for
// undelivered rows and republishes them to MessageQueue with exponential
// backoff on failure.
type OutboxRelay interface {
	// Run blocks, polling and relaying until ctx is done.
	Run(ctx context.Context) error
}

// AuthWorker is the Authorization Worker component: consumes
// AuthRequestQueuedMessage from the queue, acquires the distributed lock,
// resolves the token and tenant config, dispatches to the Processor
// Adapter, and appends the outcome event.
type AuthWorker interface {
	// Run blocks, consuming and processing messages until ctx is done.
	Run(ctx context.Context) error
}

// ProcessorAdapter is the Processor Adapter component: a uniform facade
// over whichever concrete payment processor a tenant is configured to use.
type ProcessorAdapter interface {
	Name() string
	Authorize(ctx context.Context, req domain.ProcessorAuthorizeRequest) (*domain.ProcessorAuthorizeResult, error)
	Void(ctx context.Context, req domain.ProcessorVoidRequest) (*domain.ProcessorVoidResult, error)
}

// ProcessorRegistry resolves the configured ProcessorAdapter for a tenant's
// RestaurantPaymentConfig.ProcessorName.
type ProcessorRegistry interface {
	Resolve(processorName string) (ProcessorAdapter, error)
}

// CreatePaymentTokenRequest is TokenStoreService.CreatePaymentToken's input.
type CreatePaymentTokenRequest struct {
	RestaurantID   uuid.UUID
	Card           domain.PaymentData
	DeviceID       string
	IdempotencyKey string
}

// TokenStoreService is the Token Store component: the only part of the
// system that ever holds cardholder data in the clear, and only for the
// duration of a single call.
type TokenStoreService interface {
	CreatePaymentToken(ctx context.Context, req CreatePaymentTokenRequest) (*domain.PaymentToken, error)
	GetTokenMetadata(ctx context.Context, restaurantID uuid.UUID, tokenID string) (*domain.PaymentToken, error)
	// DecryptForProcessing resolves a token to the plaintext card data the
	// Authorization Worker hands the Processor Adapter; every call is
	// recorded to DecryptAuditRepository.
	DecryptForProcessing(ctx context.Context, tokenID, requestedBy, reason, correlationID string) (*domain.PaymentData, error)
	RevokeToken(ctx context.Context, restaurantID uuid.UUID, tokenID string) error
	// RotateKeys re-encrypts every token still on an old key version under
	// the current active version.
	RotateKeys(ctx context.Context, batchSize int) (rotated int, err error)
}

// AuditService records administrative and dashboard actions.
type AuditService interface {
	Record(ctx context.Context, actorID, action, resource string, metadata map[string]string) error
}

// ReportingService serves dashboard aggregates over the read model.
type ReportingService interface {
	Summary(ctx context.Context, restaurantID uuid.UUID, since time.Time) (map[domain.AuthRequestStatus]int64, error)
}

// LoginService authenticates a dashboard operator and issues a JWT.
type LoginService interface {
	Login(ctx context.Context, email, password string) (token string, expiresAt time.Time, err error)
}
