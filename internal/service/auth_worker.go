package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/observability"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthWorker implements ports.AuthWorker: consumes AuthRequestQueuedMessage
// off the FIFO queue, takes the Distributed Lock for the aggregate,
// resolves the tenant's processor and the token's plaintext card data, and
// dispatches the authorization attempt.
type AuthWorker struct {
	workerID      string
	queue         ports.MessageQueue
	lock          ports.LockManager
	readModel     ports.ReadModelRepository
	restaurantCfg ports.RestaurantConfigRepository
	eventLog      ports.EventLogService
	tokenStore    ports.TokenStoreService
	processors    ports.ProcessorRegistry
	log           zerolog.Logger
	lockTTL       int64
	maxRetries    int
	consumerGroup string
}

// NewAuthWorker creates a new authorization worker. maxRetries bounds the
// number of processing attempts across redeliveries before a retryable
// failure is escalated to terminal.
func NewAuthWorker(
	workerID string,
	queue ports.MessageQueue,
	lock ports.LockManager,
	readModel ports.ReadModelRepository,
	restaurantCfg ports.RestaurantConfigRepository,
	eventLog ports.EventLogService,
	tokenStore ports.TokenStoreService,
	processors ports.ProcessorRegistry,
	log zerolog.Logger,
	lockTTL int64,
	maxRetries int,
) *AuthWorker {
	return &AuthWorker{
		workerID:      workerID,
		queue:         queue,
		lock:          lock,
		readModel:     readModel,
		restaurantCfg: restaurantCfg,
		eventLog:      eventLog,
		tokenStore:    tokenStore,
		processors:    processors,
		log:           log,
		lockTTL:       lockTTL,
		maxRetries:    maxRetries,
		consumerGroup: "authorization-worker",
	}
}

// Run blocks, consuming and processing messages until ctx is done.
func (w *AuthWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := w.queue.Consume(ctx, string(domain.DestinationAuthRequests), w.consumerGroup, w.workerID, 10)
		if err != nil {
			w.log.Error().Err(err).Msg("auth worker consume failed")
			continue
		}

		for _, msg := range messages {
			if err := w.handle(ctx, msg); err != nil {
				w.log.Error().Err(err).Str("message_id", msg.ID).Msg("auth worker handle failed")
				if nackErr := w.queue.Nack(ctx, string(domain.DestinationAuthRequests), w.consumerGroup, msg); nackErr != nil {
					w.log.Error().Err(nackErr).Msg("auth worker nack failed")
				}
				continue
			}
			if err := w.queue.Ack(ctx, string(domain.DestinationAuthRequests), w.consumerGroup, msg); err != nil {
				w.log.Error().Err(err).Msg("auth worker ack failed")
			}
		}
	}
}

func (w *AuthWorker) handle(ctx context.Context, msg ports.Message) error {
	var queued domain.AuthRequestQueuedMessage
	if err := json.Unmarshal(msg.Payload, &queued); err != nil {
		return fmt.Errorf("unmarshaling queued message: %w", err)
	}

	lockName := "auth-request:" + queued.AuthRequestID.String()
	holderID, err := w.lock.Acquire(ctx, lockName, w.lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer w.lock.Release(ctx, lockName, holderID)

	state, err := w.readModel.GetByID(ctx, queued.AuthRequestID)
	if err != nil {
		return fmt.Errorf("fetching read model: %w", err)
	}
	if state == nil {
		return fmt.Errorf("auth request %s has no read model", queued.AuthRequestID)
	}
	if state.Status.IsTerminal() {
		return nil
	}
	// A void requested while this request was still PENDING/PROCESSING
	// raced ahead of any processor response. There is nothing to reverse
	// yet, so the request expires rather than proceeding to an attempt.
	if state.VoidRequested {
		_, err := w.eventLog.AppendEvent(ctx, state.AuthRequestID, domain.EventAuthRequestExpired,
			domain.AuthRequestExpiredPayload{Reason: "void_before_auth"},
			state.LatestSequence, uuid.NewString(), "")
		if err != nil {
			return fmt.Errorf("appending request expired for void-before-auth: %w", err)
		}
		return nil
	}

	cfg, err := w.restaurantCfg.GetByRestaurantID(ctx, state.RestaurantID)
	if err != nil {
		return fmt.Errorf("fetching restaurant payment config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("no payment config for restaurant %s", state.RestaurantID)
	}

	processor, err := w.processors.Resolve(cfg.ProcessorName)
	if err != nil {
		return fmt.Errorf("resolving processor: %w", err)
	}

	return w.attempt(ctx, state, cfg, processor, queued)
}

// attempt makes exactly one dispatch to the processor. A transient failure
// is appended as a retryable AuthAttemptFailed and the error is returned so
// Run nacks the message, leaving redelivery (to this worker or any other)
// to the queue's own visibility timeout rather than looping in-process.
// Once the attempt count reaches maxRetries the failure is escalated to
// terminal instead, and attempt returns nil since there is nothing left to
// redeliver.
func (w *AuthWorker) attempt(ctx context.Context, state *domain.AuthRequestState, cfg *domain.RestaurantPaymentConfig, processor ports.ProcessorAdapter, queued domain.AuthRequestQueuedMessage) error {
	attemptNumber := state.RetryCount + 1
	startedState, err := w.eventLog.AppendEvent(ctx, queued.AuthRequestID, domain.EventAuthAttemptStarted,
		domain.AuthAttemptStartedPayload{
			WorkerID:                       w.workerID,
			RestaurantPaymentConfigVersion: cfg.Version,
			Attempt:                        attemptNumber,
		}, state.LatestSequence, uuid.NewString(), "")
	if err != nil {
		return fmt.Errorf("appending attempt started: %w", err)
	}

	result, dispatchErr := w.dispatch(ctx, processor, state, cfg)
	if dispatchErr == nil {
		return w.recordResult(ctx, startedState, result)
	}

	exhausted := attemptNumber >= w.maxRetries
	failPayload := domain.AuthAttemptFailedPayload{
		IsRetryable:  !exhausted,
		ErrorCode:    "PROCESSOR_ERROR",
		ErrorMessage: dispatchErr.Error(),
		RetryCount:   attemptNumber,
	}
	if exhausted {
		failPayload.ErrorCode = "max_retries_exceeded"
	}

	if _, appendErr := w.eventLog.AppendEvent(ctx, queued.AuthRequestID, domain.EventAuthAttemptFailed,
		failPayload, startedState.LatestSequence, uuid.NewString(), ""); appendErr != nil {
		return fmt.Errorf("appending attempt failed: %w", appendErr)
	}

	if exhausted {
		return nil
	}
	return dispatchErr
}

func (w *AuthWorker) dispatch(ctx context.Context, processor ports.ProcessorAdapter, state *domain.AuthRequestState, cfg *domain.RestaurantPaymentConfig) (*domain.ProcessorAuthorizeResult, error) {
	card, err := w.tokenStore.DecryptForProcessing(ctx, state.PaymentTokenID(), "authorization-worker", "payment authorization attempt", uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("resolving card data: %w", err)
	}

	start := time.Now()
	result, err := processor.Authorize(ctx, domain.ProcessorAuthorizeRequest{
		AuthRequestID:         state.AuthRequestID.String(),
		IdempotencyKey:        state.AuthRequestID.String(),
		AmountMinor:           state.AmountMinor,
		Currency:              state.Currency,
		Card:                  *card,
		MerchantRef:           cfg.MerchantRef,
		TreatInvalidRequestAs: cfg.TreatInvalidRequestAs,
	})

	outcome := "error"
	switch {
	case err != nil:
		outcome = "error"
	case result.Approved:
		outcome = "approved"
	default:
		outcome = "denied"
	}
	observability.ProcessorLatency.WithLabelValues(processor.Name(), outcome).Observe(time.Since(start).Seconds())

	return result, err
}

func (w *AuthWorker) recordResult(ctx context.Context, state *domain.AuthRequestState, result *domain.ProcessorAuthorizeResult) error {
	status := domain.AuthRequestStatusDenied
	if result.Approved {
		status = domain.AuthRequestStatusAuthorized
	}

	_, err := w.eventLog.AppendEvent(ctx, state.AuthRequestID, domain.EventAuthResponseReceived,
		domain.AuthResponseReceivedPayload{
			Status:             status,
			ProcessorAuthID:    result.ProcessorAuthID,
			AuthorizationCode:  result.AuthorizationCode,
			AuthorizedAmount:   result.AuthorizedAmount,
			AuthorizedCurrency: result.AuthorizedCurrency,
			DenialCode:         result.DenialCode,
			DenialReason:       result.DenialReason,
			ProcessorMetadata:  result.Metadata,
			AuthorizedAt:       result.RespondedAt,
		}, state.LatestSequence, uuid.NewString(), "")
	if err != nil {
		return fmt.Errorf("appending auth response received: %w", err)
	}
	return nil
}
