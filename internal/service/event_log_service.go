package service

import (
	"context"
	"encoding/json"
	"fmt"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventLogService implements ports.EventLogService: appends an event to the
// append-only log and synchronously folds it onto the read model inside one
// database transaction, so the two are never observed out of sync. Only
// AppendAuthRequestCreatedTx also writes an outbox row (the worker's queue
// message) in that transaction; AppendEvent and AppendEventTx write none.
type EventLogService struct {
	transactor ports.DBTransactor
	events     ports.EventRepository
	readModel  ports.ReadModelRepository
	outbox     ports.OutboxRepository
	waiters    ports.WaiterRegistry
	tracer     trace.Tracer
}

// NewEventLogService creates a new event log service.
func NewEventLogService(
	transactor ports.DBTransactor,
	events ports.EventRepository,
	readModel ports.ReadModelRepository,
	outbox ports.OutboxRepository,
	waiters ports.WaiterRegistry,
) *EventLogService {
	return &EventLogService{
		transactor: transactor,
		events:     events,
		readModel:  readModel,
		outbox:     outbox,
		waiters:    waiters,
		tracer:     observability.Tracer("event-log"),
	}
}

// AppendAuthRequestCreatedTx appends AuthRequestCreated through tx rather
// than opening its own transaction, so a caller that needs to write
// something else in the same commit (ingress's idempotency-key reservation)
// can do so without a partial-failure window between the two writes.
func (s *EventLogService) AppendAuthRequestCreatedTx(ctx context.Context, tx ports.Tx, aggregateID uuid.UUID, payload domain.AuthRequestCreatedPayload, correlationID string) (state *domain.AuthRequestState, err error) {
	ctx, span := s.tracer.Start(ctx, "event_log.append_auth_request_created",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("correlation.id", correlationID),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling AuthRequestCreated payload: %w", err)
	}

	ev := domain.Event{
		EventID:        uuid.New(),
		AggregateID:    aggregateID,
		SequenceNumber: 1,
		Kind:           domain.EventAuthRequestCreated,
		Payload:        body,
		CorrelationID:  correlationID,
		CreatedAt:      now(),
	}

	if err := s.events.Append(ctx, tx, ev, 0); err != nil {
		return nil, fmt.Errorf("appending AuthRequestCreated: %w", err)
	}

	state, err = projectEvent(nil, ev)
	if err != nil {
		return nil, err
	}
	if err := s.readModel.Upsert(ctx, tx, *state); err != nil {
		return nil, fmt.Errorf("projecting read model: %w", err)
	}

	queuedPayload, err := json.Marshal(domain.AuthRequestQueuedMessage{
		AuthRequestID: aggregateID,
		RestaurantID:  payload.RestaurantID,
		CreatedAt:     ev.CreatedAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling outbox payload: %w", err)
	}

	outboxRow := domain.OutboxRow{
		Destination:   domain.DestinationAuthRequests,
		MessageGroup:  aggregateID.String(),
		DedupKey:      fmt.Sprintf("%s:%d", aggregateID, ev.SequenceNumber),
		Payload:       queuedPayload,
		CreatedAt:     ev.CreatedAt,
		NextAttemptAt: ev.CreatedAt,
	}
	if err := s.outbox.Insert(ctx, tx, outboxRow); err != nil {
		return nil, fmt.Errorf("inserting outbox row: %w", err)
	}

	return state, nil
}

// AppendEvent appends a subsequent event against expectedSequence,
// returning the new read-model state on success. If the event carries a
// terminal status, any fast-path waiter for this aggregate is notified.
func (s *EventLogService) AppendEvent(ctx context.Context, aggregateID uuid.UUID, kind domain.EventKind, payload any, expectedSequence int64, correlationID, causationID string) (state *domain.AuthRequestState, err error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err = s.AppendEventTx(ctx, tx, aggregateID, kind, payload, expectedSequence, correlationID, causationID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	if state.Status.IsTerminal() {
		s.waiters.Notify(aggregateID, *state)
		observability.AuthRequestsTotal.WithLabelValues(string(state.Status)).Inc()
	}
	return state, nil
}

// AppendEventTx behaves like AppendEvent but writes through tx rather than
// opening its own transaction, for the same fold-into-one-commit reason as
// AppendAuthRequestCreatedTx. Callers that use this directly are
// responsible for committing tx and notifying waiters themselves.
func (s *EventLogService) AppendEventTx(ctx context.Context, tx ports.Tx, aggregateID uuid.UUID, kind domain.EventKind, payload any, expectedSequence int64, correlationID, causationID string) (state *domain.AuthRequestState, err error) {
	ctx, span := s.tracer.Start(ctx, "event_log.append_event",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("event.kind", string(kind)),
			attribute.String("correlation.id", correlationID),
			attribute.String("causation.id", causationID),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", kind, err)
	}

	ev := domain.Event{
		EventID:        uuid.New(),
		AggregateID:    aggregateID,
		SequenceNumber: expectedSequence + 1,
		Kind:           kind,
		Payload:        body,
		CorrelationID:  correlationID,
		CausationID:    causationID,
		CreatedAt:      now(),
	}

	if err := s.events.Append(ctx, tx, ev, expectedSequence); err != nil {
		return nil, fmt.Errorf("appending %s: %w", kind, err)
	}

	prior, err := s.readModel.GetByID(ctx, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("fetching prior state: %w", err)
	}

	state, err = projectEvent(prior, ev)
	if err != nil {
		return nil, err
	}
	if err := s.readModel.Upsert(ctx, tx, *state); err != nil {
		return nil, fmt.Errorf("projecting read model: %w", err)
	}

	return state, nil
}
