// Package integration exercises the authorization platform end to end:
// real HTTP router, real services, real Redis (via miniredis) for locking
// and queueing, backed by in-memory stand-ins for the Postgres repositories
// so the scenarios run without a database.
package integration

import (
	"context"
	"errors"
	"sort"
	"sync"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// errSequenceConflict mirrors postgres.ErrSequenceConflict for the
// in-memory event store: Append refuses to write if another event has
// already landed past the expected sequence.
var errSequenceConflict = errors.New("integration: event sequence conflict")

// inMemoryTx is a no-op transaction: every in-memory repo below writes
// straight into its own guarded map rather than through tx, so Commit and
// Rollback exist only to satisfy ports.Tx and let the services' own
// transactional discipline (begin/write/commit/rollback-on-error) run
// unmodified against this harness.
type inMemoryTx struct{}

func (inMemoryTx) Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	return pgx.CommandTag{}, nil
}
func (inMemoryTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (inMemoryTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (inMemoryTx) Begin(ctx context.Context) (pgx.Tx, error)                    { return nil, nil }
func (inMemoryTx) Commit(ctx context.Context) error                            { return nil }
func (inMemoryTx) Rollback(ctx context.Context) error                          { return nil }

type inMemoryTransactor struct{}

func (inMemoryTransactor) Begin(ctx context.Context) (ports.Tx, error) {
	return inMemoryTx{}, nil
}

// inMemoryEventRepository implements ports.EventRepository.
type inMemoryEventRepository struct {
	mu     sync.Mutex
	events map[uuid.UUID][]domain.Event
}

func newInMemoryEventRepository() *inMemoryEventRepository {
	return &inMemoryEventRepository{events: make(map[uuid.UUID][]domain.Event)}
}

func (r *inMemoryEventRepository) Append(ctx context.Context, tx ports.Pool, ev domain.Event, expectedSequence int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events[ev.AggregateID] {
		if existing.SequenceNumber >= ev.SequenceNumber {
			return errSequenceConflict
		}
	}
	r.events[ev.AggregateID] = append(r.events[ev.AggregateID], ev)
	return nil
}

func (r *inMemoryEventRepository) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events[aggregateID]))
	copy(out, r.events[aggregateID])
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (r *inMemoryEventRepository) LatestSequence(ctx context.Context, tx ports.Pool, aggregateID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, ev := range r.events[aggregateID] {
		if ev.SequenceNumber > max {
			max = ev.SequenceNumber
		}
	}
	return max, nil
}

// inMemoryReadModelRepository implements ports.ReadModelRepository.
type inMemoryReadModelRepository struct {
	mu     sync.Mutex
	states map[uuid.UUID]domain.AuthRequestState
}

func newInMemoryReadModelRepository() *inMemoryReadModelRepository {
	return &inMemoryReadModelRepository{states: make(map[uuid.UUID]domain.AuthRequestState)}
}

func (r *inMemoryReadModelRepository) Upsert(ctx context.Context, tx ports.Pool, state domain.AuthRequestState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.states[state.AuthRequestID]; ok && existing.LatestSequence >= state.LatestSequence {
		return nil
	}
	r.states[state.AuthRequestID] = state
	return nil
}

func (r *inMemoryReadModelRepository) GetByID(ctx context.Context, authRequestID uuid.UUID) (*domain.AuthRequestState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[authRequestID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (r *inMemoryReadModelRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit, offset int) ([]domain.AuthRequestState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuthRequestState
	for _, s := range r.states {
		if s.RestaurantID == restaurantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// inMemoryOutboxRepository implements ports.OutboxRepository.
type inMemoryOutboxRepository struct {
	mu     sync.Mutex
	rows   []domain.OutboxRow
	nextID int64
}

func newInMemoryOutboxRepository() *inMemoryOutboxRepository {
	return &inMemoryOutboxRepository{nextID: 1}
}

func (r *inMemoryOutboxRepository) Insert(ctx context.Context, tx ports.Pool, row domain.OutboxRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row.ID = r.nextID
	r.nextID++
	r.rows = append(r.rows, row)
	return nil
}

func (r *inMemoryOutboxRepository) ClaimUndelivered(ctx context.Context, limit int) ([]domain.OutboxRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OutboxRow
	for _, row := range r.rows {
		if row.ProcessedAt != nil {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *inMemoryOutboxRepository) MarkDelivered(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			now := r.rows[i].NextAttemptAt
			r.rows[i].ProcessedAt = &now
			return nil
		}
	}
	return nil
}

func (r *inMemoryOutboxRepository) MarkAttempt(ctx context.Context, id int64, nextAttemptAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].AttemptCount++
		}
	}
	return nil
}

func idemCompositeKey(restaurantID uuid.UUID, key string) string {
	return restaurantID.String() + "|" + key
}

// inMemoryAuthIdempotencyRepository implements ports.AuthIdempotencyRepository.
type inMemoryAuthIdempotencyRepository struct {
	mu       sync.Mutex
	bindings map[string]domain.AuthIdempotencyKey
}

func newInMemoryAuthIdempotencyRepository() *inMemoryAuthIdempotencyRepository {
	return &inMemoryAuthIdempotencyRepository{bindings: make(map[string]domain.AuthIdempotencyKey)}
}

func (r *inMemoryAuthIdempotencyRepository) Reserve(ctx context.Context, tx ports.Pool, key domain.AuthIdempotencyKey) (*domain.AuthIdempotencyKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	composite := idemCompositeKey(key.RestaurantID, key.Key)
	if existing, ok := r.bindings[composite]; ok {
		return &existing, false, nil
	}
	r.bindings[composite] = key
	return &key, true, nil
}

func (r *inMemoryAuthIdempotencyRepository) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.AuthIdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.bindings[idemCompositeKey(restaurantID, key)]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

// inMemoryVoidIdempotencyRepository implements ports.VoidIdempotencyRepository.
type inMemoryVoidIdempotencyRepository struct {
	mu       sync.Mutex
	bindings map[string]domain.VoidIdempotencyKey
}

func newInMemoryVoidIdempotencyRepository() *inMemoryVoidIdempotencyRepository {
	return &inMemoryVoidIdempotencyRepository{bindings: make(map[string]domain.VoidIdempotencyKey)}
}

func (r *inMemoryVoidIdempotencyRepository) Reserve(ctx context.Context, tx ports.Pool, key domain.VoidIdempotencyKey) (*domain.VoidIdempotencyKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	composite := idemCompositeKey(key.RestaurantID, key.Key)
	if existing, ok := r.bindings[composite]; ok {
		return &existing, false, nil
	}
	r.bindings[composite] = key
	return &key, true, nil
}

func (r *inMemoryVoidIdempotencyRepository) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.VoidIdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.bindings[idemCompositeKey(restaurantID, key)]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

// inMemoryRestaurantConfigRepository implements ports.RestaurantConfigRepository.
type inMemoryRestaurantConfigRepository struct {
	mu      sync.Mutex
	configs map[uuid.UUID]domain.RestaurantPaymentConfig
}

func newInMemoryRestaurantConfigRepository() *inMemoryRestaurantConfigRepository {
	return &inMemoryRestaurantConfigRepository{configs: make(map[uuid.UUID]domain.RestaurantPaymentConfig)}
}

func (r *inMemoryRestaurantConfigRepository) GetByRestaurantID(ctx context.Context, restaurantID uuid.UUID) (*domain.RestaurantPaymentConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[restaurantID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (r *inMemoryRestaurantConfigRepository) Upsert(ctx context.Context, cfg domain.RestaurantPaymentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.RestaurantID] = cfg
	return nil
}

// inMemoryCredentialRepository implements ports.RestaurantCredentialRepository.
type inMemoryCredentialRepository struct {
	mu          sync.Mutex
	byAccessKey map[string]domain.RestaurantCredential
}

func newInMemoryCredentialRepository() *inMemoryCredentialRepository {
	return &inMemoryCredentialRepository{byAccessKey: make(map[string]domain.RestaurantCredential)}
}

func (r *inMemoryCredentialRepository) GetByAccessKey(ctx context.Context, accessKey string) (*domain.RestaurantCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.byAccessKey[accessKey]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

// inMemoryTokenRepository implements ports.PaymentTokenRepository.
type inMemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.PaymentToken
}

func newInMemoryTokenRepository() *inMemoryTokenRepository {
	return &inMemoryTokenRepository{tokens: make(map[string]domain.PaymentToken)}
}

func (r *inMemoryTokenRepository) Insert(ctx context.Context, tx ports.Pool, token domain.PaymentToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.TokenID] = token
	return nil
}

func (r *inMemoryTokenRepository) GetByID(ctx context.Context, tokenID string) (*domain.PaymentToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[tokenID]
	if !ok {
		return nil, nil
	}
	return &tok, nil
}

func (r *inMemoryTokenRepository) UpdateEncryption(ctx context.Context, tokenID string, encryptedPAN, encryptedCVV []byte, keyVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[tokenID]
	if !ok {
		return nil
	}
	tok.EncryptedPAN, tok.EncryptedCVV, tok.KeyVersion = encryptedPAN, encryptedCVV, keyVersion
	r.tokens[tokenID] = tok
	return nil
}

func (r *inMemoryTokenRepository) Revoke(ctx context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[tokenID]
	if !ok {
		return nil
	}
	tok.Status = domain.PaymentTokenStatusRevoked
	r.tokens[tokenID] = tok
	return nil
}

func (r *inMemoryTokenRepository) ListByKeyVersion(ctx context.Context, keyVersion int, limit int, afterTokenID string) ([]domain.PaymentToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PaymentToken
	for _, tok := range r.tokens {
		if tok.KeyVersion == keyVersion {
			out = append(out, tok)
		}
	}
	return out, nil
}

// inMemoryTokenIdempotencyRepository implements ports.TokenIdempotencyRepository.
type inMemoryTokenIdempotencyRepository struct {
	mu       sync.Mutex
	bindings map[string]domain.TokenIdempotencyKey
}

func newInMemoryTokenIdempotencyRepository() *inMemoryTokenIdempotencyRepository {
	return &inMemoryTokenIdempotencyRepository{bindings: make(map[string]domain.TokenIdempotencyKey)}
}

func (r *inMemoryTokenIdempotencyRepository) Reserve(ctx context.Context, tx ports.Pool, key domain.TokenIdempotencyKey) (*domain.TokenIdempotencyKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	composite := idemCompositeKey(key.RestaurantID, key.Key)
	if existing, ok := r.bindings[composite]; ok {
		return &existing, false, nil
	}
	r.bindings[composite] = key
	return &key, true, nil
}

func (r *inMemoryTokenIdempotencyRepository) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.TokenIdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.bindings[idemCompositeKey(restaurantID, key)]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

// inMemoryDecryptAuditRepository implements ports.DecryptAuditRepository.
type inMemoryDecryptAuditRepository struct {
	mu      sync.Mutex
	entries []domain.DecryptAudit
}

func newInMemoryDecryptAuditRepository() *inMemoryDecryptAuditRepository {
	return &inMemoryDecryptAuditRepository{}
}

func (r *inMemoryDecryptAuditRepository) Insert(ctx context.Context, entry domain.DecryptAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *inMemoryDecryptAuditRepository) ListByToken(ctx context.Context, tokenID string, limit int) ([]domain.DecryptAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DecryptAudit
	for _, e := range r.entries {
		if e.TokenID == tokenID {
			out = append(out, e)
		}
	}
	return out, nil
}

// inMemoryEncryptionKeyRepository implements ports.EncryptionKeyRepository.
type inMemoryEncryptionKeyRepository struct {
	mu      sync.Mutex
	version int
}

func newInMemoryEncryptionKeyRepository() *inMemoryEncryptionKeyRepository {
	return &inMemoryEncryptionKeyRepository{version: 1}
}

func (r *inMemoryEncryptionKeyRepository) ActiveVersion(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version, nil
}

func (r *inMemoryEncryptionKeyRepository) SetActiveVersion(ctx context.Context, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = version
	return nil
}
