package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"payauth-platform/internal/core/domain"
)

// Pool is the subset of pgxpool.Pool used by the storage adapters. Defined
// here rather than referencing pgxpool directly so DBTransactor and the
// repositories can be satisfied by either a pool or an open transaction.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DBTransactor opens a transaction and hands the caller a Pool-shaped handle
// bound to it, so a service can compose several repositories' writes into one
// atomic unit without each repository knowing about transactions itself.
type DBTransactor interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open database transaction.
type Tx interface {
	Pool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// EventRepository is the append-only store backing the Event Log component.
// Append enforces the per-aggregate sequence compare-and-set described by
// ErrSequenceConflict.
type EventRepository interface {
	// Append inserts ev if ev.SequenceNumber == expectedSequence+1 for
	// ev.AggregateID, inside tx. Returns ErrSequenceConflict otherwise.
	Append(ctx context.Context, tx Pool, ev domain.Event, expectedSequence int64) error
	// ListByAggregate returns every event for aggregateID in sequence order.
	ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]domain.Event, error)
	// LatestSequence returns the highest sequence number recorded for
	// aggregateID, or 0 if none exist.
	LatestSequence(ctx context.Context, tx Pool, aggregateID uuid.UUID) (int64, error)
}

// ReadModelRepository persists and serves the AuthRequestState materialized
// view, projected synchronously from the event log in the same transaction
// as the Append call that produced it.
type ReadModelRepository interface {
	Upsert(ctx context.Context, tx Pool, state domain.AuthRequestState) error
	GetByID(ctx context.Context, authRequestID uuid.UUID) (*domain.AuthRequestState, error)
	// ListByRestaurant returns the most recent requests for a tenant,
	// newest first, for the dashboard.
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]domain.AuthRequestState, error)
}

// OutboxRepository is the transactional outbox backing the Outbox Relay.
type OutboxRepository interface {
	// Insert writes row inside tx, in the same transaction as the event
	// that produced it.
	Insert(ctx context.Context, tx Pool, row domain.OutboxRow) error
	// ClaimUndelivered returns up to limit rows with ProcessedAt IS NULL
	// and NextAttemptAt <= now, ordered by ID, for the relay to retry.
	ClaimUndelivered(ctx context.Context, limit int) ([]domain.OutboxRow, error)
	// MarkDelivered sets ProcessedAt on successful publish.
	MarkDelivered(ctx context.Context, id int64) error
	// MarkAttempt increments AttemptCount and sets NextAttemptAt after a
	// failed publish.
	MarkAttempt(ctx context.Context, id int64, nextAttemptAt int64) error
}

// AuthIdempotencyRepository backs idempotent POST /v1/authorize.
type AuthIdempotencyRepository interface {
	// Reserve attempts to bind key to authRequestID/fingerprint inside tx;
	// returns the existing binding and false if one already exists.
	Reserve(ctx context.Context, tx Pool, key domain.AuthIdempotencyKey) (*domain.AuthIdempotencyKey, bool, error)
	Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.AuthIdempotencyKey, error)
}

// VoidIdempotencyRepository backs idempotent POST /v1/authorize/{id}/void.
type VoidIdempotencyRepository interface {
	Reserve(ctx context.Context, tx Pool, key domain.VoidIdempotencyKey) (*domain.VoidIdempotencyKey, bool, error)
	Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.VoidIdempotencyKey, error)
}

// RestaurantConfigRepository serves per-tenant processor routing config to
// the Authorization Worker.
type RestaurantConfigRepository interface {
	GetByRestaurantID(ctx context.Context, restaurantID uuid.UUID) (*domain.RestaurantPaymentConfig, error)
	Upsert(ctx context.Context, cfg domain.RestaurantPaymentConfig) error
}

// PaymentTokenRepository is the Token Store's persistence layer. It lives in
// its own database from the Event Log/Outbox so cardholder data access can
// be scoped and audited independently.
type PaymentTokenRepository interface {
	Insert(ctx context.Context, tx Pool, token domain.PaymentToken) error
	GetByID(ctx context.Context, tokenID string) (*domain.PaymentToken, error)
	// UpdateEncryption rewrites the ciphertext and KeyVersion during key
	// rotation, leaving every other field untouched.
	UpdateEncryption(ctx context.Context, tokenID string, encryptedPAN, encryptedCVV []byte, keyVersion int) error
	Revoke(ctx context.Context, tokenID string) error
	// ListByKeyVersion pages through tokens still encrypted under an old
	// key version, for the rotation job.
	ListByKeyVersion(ctx context.Context, keyVersion int, limit int, afterTokenID string) ([]domain.PaymentToken, error)
}

// TokenIdempotencyRepository backs idempotent POST /v1/payment-tokens.
type TokenIdempotencyRepository interface {
	Reserve(ctx context.Context, tx Pool, key domain.TokenIdempotencyKey) (*domain.TokenIdempotencyKey, bool, error)
	Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.TokenIdempotencyKey, error)
}

// DecryptAuditRepository is the append-only log of every PAN/CVV decryption
// the Token Store performs.
type DecryptAuditRepository interface {
	Insert(ctx context.Context, entry domain.DecryptAudit) error
	ListByToken(ctx context.Context, tokenID string, limit int) ([]domain.DecryptAudit, error)
}

// EncryptionKeyRepository tracks the active and historical AES key versions
// used by the Token Store, keyed by version number; the key material itself
// is resolved from configuration/secret storage, never from this table.
type EncryptionKeyRepository interface {
	ActiveVersion(ctx context.Context) (int, error)
	SetActiveVersion(ctx context.Context, version int) error
}

// AuditRepository persists administrative and dashboard actions recorded by
// AuditService.
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditLog) error
	ListByActor(ctx context.Context, actorID string, limit int) ([]domain.AuditLog, error)
}

// RestaurantCredentialRepository backs the ingress HMAC middleware's access
// key lookup.
type RestaurantCredentialRepository interface {
	GetByAccessKey(ctx context.Context, accessKey string) (*domain.RestaurantCredential, error)
}

// OperatorRepository backs the dashboard login path.
type OperatorRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Operator, error)
}
