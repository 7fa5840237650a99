package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/observability"
	"payauth-platform/pkg/apperror"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrIdempotencyConflict is returned when a client reuses an idempotency
// key with a request body that does not match the one that first used it.
var ErrIdempotencyConflict = errors.New("ingress: idempotency key conflict")

// IngressService implements ports.AuthIngressService: the entry point for
// POST /v1/authorize and POST /v1/authorize/{id}/void. It deduplicates on
// the client idempotency key, appends the creating event inside the Event
// Log's transaction, and waits a bounded time on the fast-path
// WaiterRegistry before telling the caller to poll.
type IngressService struct {
	transactor  ports.DBTransactor
	authIdem    ports.AuthIdempotencyRepository
	voidIdem    ports.VoidIdempotencyRepository
	readModel   ports.ReadModelRepository
	eventLog    ports.EventLogService
	waiters     ports.WaiterRegistry
	fastPathTTL time.Duration
	tracer      trace.Tracer
}

// NewIngressService creates a new authorization ingress service.
func NewIngressService(
	transactor ports.DBTransactor,
	authIdem ports.AuthIdempotencyRepository,
	voidIdem ports.VoidIdempotencyRepository,
	readModel ports.ReadModelRepository,
	eventLog ports.EventLogService,
	waiters ports.WaiterRegistry,
	fastPathTTL time.Duration,
) *IngressService {
	return &IngressService{
		transactor:  transactor,
		authIdem:    authIdem,
		voidIdem:    voidIdem,
		readModel:   readModel,
		eventLog:    eventLog,
		waiters:     waiters,
		fastPathTTL: fastPathTTL,
		tracer:      observability.Tracer("ingress"),
	}
}

// Authorize validates and deduplicates req, appends AuthRequestCreated, and
// waits up to fastPathTTL for a synchronous answer.
func (s *IngressService) Authorize(ctx context.Context, req ports.AuthorizeRequest) (*ports.AuthorizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "ingress.authorize",
		trace.WithAttributes(
			attribute.String("restaurant.id", req.RestaurantID.String()),
			attribute.String("correlation.id", req.CorrelationID),
		))
	defer span.End()

	fingerprint := domain.BuildFingerprint(
		req.RestaurantID.String(), req.PaymentToken,
		fmt.Sprintf("%d", req.AmountMinor), req.Currency,
	)

	authRequestID := uuid.New()
	// The idempotency-key reservation and the AuthRequestCreated append
	// share one transaction: either both land or neither does, so a client
	// that retries after an INTERNAL error on the same key always finds a
	// reservation with a real aggregate behind it, never a dangling one.
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reservation, reserved, err := s.authIdem.Reserve(ctx, tx, domain.AuthIdempotencyKey{
		RestaurantID:  req.RestaurantID,
		Key:           req.IdempotencyKey,
		AuthRequestID: authRequestID,
		Fingerprint:   fingerprint,
		CreatedAt:     now(),
		ExpiresAt:     now().Add(24 * time.Hour),
	})
	if err != nil {
		return nil, fmt.Errorf("reserving idempotency key: %w", err)
	}

	if !reserved {
		if reservation.Fingerprint != fingerprint {
			return nil, apperror.ErrIdempotencyConflict(ErrIdempotencyConflict)
		}
		state, err := s.readModel.GetByID(ctx, reservation.AuthRequestID)
		if err != nil {
			return nil, fmt.Errorf("fetching existing auth request: %w", err)
		}
		if state == nil {
			return &ports.AuthorizeResult{AuthRequestID: reservation.AuthRequestID, Status: domain.AuthRequestStatusPending}, nil
		}
		return &ports.AuthorizeResult{AuthRequestID: state.AuthRequestID, Status: state.Status, Synchronous: true}, nil
	}

	if _, err := s.eventLog.AppendAuthRequestCreatedTx(ctx, tx, authRequestID, domain.AuthRequestCreatedPayload{
		RestaurantID:   req.RestaurantID,
		PaymentToken:   req.PaymentToken,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	}, req.CorrelationID); err != nil {
		return nil, fmt.Errorf("appending auth request created: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	if state, ok := s.waiters.Wait(ctx, authRequestID, s.fastPathTTL); ok {
		return &ports.AuthorizeResult{AuthRequestID: authRequestID, Status: state.Status, Synchronous: true}, nil
	}

	return &ports.AuthorizeResult{AuthRequestID: authRequestID, Status: domain.AuthRequestStatusPending, Synchronous: false}, nil
}

// Void requests reversal of a previously authorized charge.
func (s *IngressService) Void(ctx context.Context, req ports.VoidRequest) (*ports.AuthorizeResult, error) {
	state, err := s.readModel.GetByID(ctx, req.AuthRequestID)
	if err != nil {
		return nil, fmt.Errorf("fetching auth request: %w", err)
	}
	if state == nil || !state.IsOwnedBy(req.RestaurantID) {
		return nil, apperror.ErrAuthRequestNotFound()
	}
	// A void may be requested against AUTHORIZED (the ordinary reversal
	// path) or against any non-terminal status (PENDING/PROCESSING): that
	// second case is the void-before-auth race, resolved by the worker
	// finding VoidRequested set when it next looks at this aggregate.
	// Any other terminal status (DENIED/FAILED/EXPIRED/VOIDED) cannot be
	// voided.
	if state.Status != domain.AuthRequestStatusAuthorized && state.Status.IsTerminal() {
		return nil, apperror.ErrAuthNotVoidable()
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reservation, reserved, err := s.voidIdem.Reserve(ctx, tx, domain.VoidIdempotencyKey{
		RestaurantID:  req.RestaurantID,
		Key:           req.IdempotencyKey,
		AuthRequestID: req.AuthRequestID,
		CreatedAt:     now(),
	})
	if err != nil {
		return nil, fmt.Errorf("reserving void idempotency key: %w", err)
	}
	if !reserved {
		_ = reservation
		return &ports.AuthorizeResult{AuthRequestID: req.AuthRequestID, Status: state.Status, Synchronous: true}, nil
	}

	updated, err := s.eventLog.AppendEventTx(ctx, tx, req.AuthRequestID, domain.EventAuthVoidRequested,
		domain.AuthVoidRequestedPayload{Reason: req.Reason, IdempotencyKey: req.IdempotencyKey},
		state.LatestSequence, req.CorrelationID, "")
	if err != nil {
		return nil, fmt.Errorf("appending void requested: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	if final, ok := s.waiters.Wait(ctx, req.AuthRequestID, 2*time.Second); ok {
		return &ports.AuthorizeResult{AuthRequestID: req.AuthRequestID, Status: final.Status, Synchronous: true}, nil
	}

	return &ports.AuthorizeResult{AuthRequestID: req.AuthRequestID, Status: updated.Status, Synchronous: false}, nil
}

// GetStatus returns the current materialized state of an authorization
// request, scoped to the calling tenant.
func (s *IngressService) GetStatus(ctx context.Context, restaurantID, authRequestID uuid.UUID) (*domain.AuthRequestState, error) {
	state, err := s.readModel.GetByID(ctx, authRequestID)
	if err != nil {
		return nil, fmt.Errorf("fetching auth request: %w", err)
	}
	if state == nil || !state.IsOwnedBy(restaurantID) {
		return nil, apperror.ErrAuthRequestNotFound()
	}
	return state, nil
}
