package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx is a no-op ports.Tx: the fake repositories below ignore the tx
// handle entirely, so it only needs to exist and track Commit/Rollback for
// assertions about transactional discipline.
type fakeTx struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	return pgx.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error)                    { return nil, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// fakeTransactor hands out a fresh fakeTx per Begin and keeps every one it
// ever opened, so a test can assert none was left both uncommitted and
// unrolled-back (the partial-failure window Comment 1 closed).
type fakeTransactor struct {
	mu   sync.Mutex
	txns []*fakeTx
}

func (f *fakeTransactor) Begin(ctx context.Context) (ports.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &fakeTx{}
	f.txns = append(f.txns, tx)
	return tx, nil
}

type fakeAuthIdemRepo struct {
	mu       sync.Mutex
	bindings map[string]domain.AuthIdempotencyKey
}

func newFakeAuthIdemRepo() *fakeAuthIdemRepo {
	return &fakeAuthIdemRepo{bindings: make(map[string]domain.AuthIdempotencyKey)}
}

func authIdemCompositeKey(restaurantID uuid.UUID, key string) string {
	return restaurantID.String() + "|" + key
}

func (r *fakeAuthIdemRepo) Reserve(ctx context.Context, tx ports.Pool, key domain.AuthIdempotencyKey) (*domain.AuthIdempotencyKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	composite := authIdemCompositeKey(key.RestaurantID, key.Key)
	if existing, ok := r.bindings[composite]; ok {
		return &existing, false, nil
	}
	r.bindings[composite] = key
	return &key, true, nil
}

func (r *fakeAuthIdemRepo) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.AuthIdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.bindings[authIdemCompositeKey(restaurantID, key)]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

type fakeVoidIdemRepo struct {
	mu       sync.Mutex
	bindings map[string]domain.VoidIdempotencyKey
}

func newFakeVoidIdemRepo() *fakeVoidIdemRepo {
	return &fakeVoidIdemRepo{bindings: make(map[string]domain.VoidIdempotencyKey)}
}

func (r *fakeVoidIdemRepo) Reserve(ctx context.Context, tx ports.Pool, key domain.VoidIdempotencyKey) (*domain.VoidIdempotencyKey, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	composite := authIdemCompositeKey(key.RestaurantID, key.Key)
	if existing, ok := r.bindings[composite]; ok {
		return &existing, false, nil
	}
	r.bindings[composite] = key
	return &key, true, nil
}

func (r *fakeVoidIdemRepo) Get(ctx context.Context, restaurantID uuid.UUID, key string) (*domain.VoidIdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.bindings[authIdemCompositeKey(restaurantID, key)]
	if !ok {
		return nil, nil
	}
	return &existing, nil
}

// fakeIngressEventLog implements ports.EventLogService, projecting straight
// into a shared fakeReadModel the same way EventLogService folds into the
// real read model inside its transaction -- so ingress's own
// readModel.GetByID calls observe exactly what the event log produced.
type fakeIngressEventLog struct {
	mu        sync.Mutex
	readModel *fakeReadModel
	appends   []domain.EventKind
}

func (e *fakeIngressEventLog) AppendAuthRequestCreatedTx(ctx context.Context, tx ports.Tx, aggregateID uuid.UUID, payload domain.AuthRequestCreatedPayload, correlationID string) (*domain.AuthRequestState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appends = append(e.appends, domain.EventAuthRequestCreated)
	state := domain.AuthRequestState{
		AuthRequestID:  aggregateID,
		RestaurantID:   payload.RestaurantID,
		PaymentToken:   payload.PaymentToken,
		AmountMinor:    payload.AmountMinor,
		Currency:       payload.Currency,
		Status:         domain.AuthRequestStatusPending,
		LatestSequence: 1,
	}
	e.readModel.states[aggregateID] = &state
	return &state, nil
}

func (e *fakeIngressEventLog) AppendEvent(ctx context.Context, aggregateID uuid.UUID, kind domain.EventKind, payload any, expectedSequence int64, correlationID, causationID string) (*domain.AuthRequestState, error) {
	return e.AppendEventTx(ctx, nil, aggregateID, kind, payload, expectedSequence, correlationID, causationID)
}

func (e *fakeIngressEventLog) AppendEventTx(ctx context.Context, tx ports.Tx, aggregateID uuid.UUID, kind domain.EventKind, payload any, expectedSequence int64, correlationID, causationID string) (*domain.AuthRequestState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appends = append(e.appends, kind)

	next := *e.readModel.states[aggregateID]
	next.LatestSequence = expectedSequence + 1

	switch p := payload.(type) {
	case domain.AuthVoidRequestedPayload:
		next.Status = domain.AuthRequestStatusProcessing
		next.VoidRequested = true
	case domain.AuthResponseReceivedPayload:
		next.Status = p.Status
	case domain.AuthRequestExpiredPayload:
		next.Status = domain.AuthRequestStatusExpired
	}
	e.readModel.states[aggregateID] = &next
	return &next, nil
}

func newTestIngressService(t *testing.T, readModel *fakeReadModel, eventLog *fakeIngressEventLog, authIdem *fakeAuthIdemRepo, voidIdem *fakeVoidIdemRepo) (*IngressService, *fakeTransactor) {
	t.Helper()
	transactor := &fakeTransactor{}
	waiters := NewInProcessWaiterRegistry()
	svc := NewIngressService(transactor, authIdem, voidIdem, readModel, eventLog, waiters, 20*time.Millisecond)
	return svc, transactor
}

func TestIngressService_Authorize_CreatesNewRequest(t *testing.T) {
	readModel := &fakeReadModel{states: map[uuid.UUID]*domain.AuthRequestState{}}
	eventLog := &fakeIngressEventLog{readModel: readModel}
	svc, transactor := newTestIngressService(t, readModel, eventLog, newFakeAuthIdemRepo(), newFakeVoidIdemRepo())

	restaurantID := uuid.New()
	result, err := svc.Authorize(context.Background(), ports.AuthorizeRequest{
		RestaurantID:   restaurantID,
		PaymentToken:   "tok_1",
		AmountMinor:    1000,
		Currency:       "USD",
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthRequestStatusPending, result.Status)
	assert.Equal(t, []domain.EventKind{domain.EventAuthRequestCreated}, eventLog.appends)

	require.Len(t, transactor.txns, 1)
	assert.True(t, transactor.txns[0].committed, "Authorize must commit the single transaction it opened")
	assert.False(t, transactor.txns[0].rolledBack)
}

// TestIngressService_Authorize_IdempotentReplay checks that a retried
// Authorize call with the same idempotency key and the same request body
// returns the original auth_request_id without appending a second
// AuthRequestCreated -- the scenario Comment 1's transaction fold exists to
// make safe to retry after an INTERNAL error.
func TestIngressService_Authorize_IdempotentReplay(t *testing.T) {
	readModel := &fakeReadModel{states: map[uuid.UUID]*domain.AuthRequestState{}}
	eventLog := &fakeIngressEventLog{readModel: readModel}
	svc, _ := newTestIngressService(t, readModel, eventLog, newFakeAuthIdemRepo(), newFakeVoidIdemRepo())

	req := ports.AuthorizeRequest{
		RestaurantID:   uuid.New(),
		PaymentToken:   "tok_1",
		AmountMinor:    1000,
		Currency:       "USD",
		IdempotencyKey: "idem-1",
	}

	first, err := svc.Authorize(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Authorize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.AuthRequestID, second.AuthRequestID)
	assert.Equal(t, []domain.EventKind{domain.EventAuthRequestCreated}, eventLog.appends, "a replayed idempotency key must never append a second AuthRequestCreated")
}

func TestIngressService_Authorize_IdempotencyConflict(t *testing.T) {
	readModel := &fakeReadModel{states: map[uuid.UUID]*domain.AuthRequestState{}}
	eventLog := &fakeIngressEventLog{readModel: readModel}
	svc, _ := newTestIngressService(t, readModel, eventLog, newFakeAuthIdemRepo(), newFakeVoidIdemRepo())

	restaurantID := uuid.New()
	_, err := svc.Authorize(context.Background(), ports.AuthorizeRequest{
		RestaurantID: restaurantID, PaymentToken: "tok_1", AmountMinor: 1000, Currency: "USD", IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), ports.AuthorizeRequest{
		RestaurantID: restaurantID, PaymentToken: "tok_1", AmountMinor: 2000, Currency: "USD", IdempotencyKey: "idem-1",
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTHZ_001", appErr.Code)
}

// TestIngressService_Void_BeforeAuthIsAccepted checks the void-before-auth
// race's precondition: a void requested while the request is still PENDING
// must be accepted (not rejected as not-voidable), leaving VoidRequested set
// for the worker to observe.
func TestIngressService_Void_BeforeAuthIsAccepted(t *testing.T) {
	authRequestID := uuid.New()
	restaurantID := uuid.New()
	readModel := &fakeReadModel{states: map[uuid.UUID]*domain.AuthRequestState{
		authRequestID: {
			AuthRequestID:  authRequestID,
			RestaurantID:   restaurantID,
			Status:         domain.AuthRequestStatusPending,
			LatestSequence: 1,
		},
	}}
	eventLog := &fakeIngressEventLog{readModel: readModel}
	svc, _ := newTestIngressService(t, readModel, eventLog, newFakeAuthIdemRepo(), newFakeVoidIdemRepo())

	result, err := svc.Void(context.Background(), ports.VoidRequest{
		RestaurantID:   restaurantID,
		AuthRequestID:  authRequestID,
		Reason:         "customer requested cancellation",
		IdempotencyKey: "void-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthRequestStatusProcessing, result.Status)
	assert.True(t, readModel.states[authRequestID].VoidRequested)
}

func TestIngressService_Void_TerminalNonAuthorizedIsRejected(t *testing.T) {
	authRequestID := uuid.New()
	restaurantID := uuid.New()
	readModel := &fakeReadModel{states: map[uuid.UUID]*domain.AuthRequestState{
		authRequestID: {
			AuthRequestID: authRequestID,
			RestaurantID:  restaurantID,
			Status:        domain.AuthRequestStatusDenied,
		},
	}}
	eventLog := &fakeIngressEventLog{readModel: readModel}
	svc, _ := newTestIngressService(t, readModel, eventLog, newFakeAuthIdemRepo(), newFakeVoidIdemRepo())

	_, err := svc.Void(context.Background(), ports.VoidRequest{
		RestaurantID:   restaurantID,
		AuthRequestID:  authRequestID,
		IdempotencyKey: "void-1",
	})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTHZ_003", appErr.Code)
}
