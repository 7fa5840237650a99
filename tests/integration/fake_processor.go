package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/google/uuid"
)

// flakyProcessor fails Authorize with a transient error failCount times
// before approving, modeling a processor recovering from a blip. Grounded
// on the worker unit tests' fakeWorkerProcessor convention, extended here
// to fail a bounded number of times rather than deterministically.
type flakyProcessor struct {
	name      string
	failCount int

	mu    sync.Mutex
	calls int
}

func newFlakyProcessor(name string, failCount int) *flakyProcessor {
	return &flakyProcessor{name: name, failCount: failCount}
}

func (p *flakyProcessor) Name() string { return p.name }

func (p *flakyProcessor) Authorize(ctx context.Context, req domain.ProcessorAuthorizeRequest) (*domain.ProcessorAuthorizeResult, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	if call <= p.failCount {
		return nil, errors.New("simulated transient processor timeout")
	}
	return &domain.ProcessorAuthorizeResult{
		Approved:           true,
		ProcessorAuthID:    "flaky_" + uuid.NewString(),
		AuthorizationCode:  uuid.NewString()[:6],
		AuthorizedAmount:   req.AmountMinor,
		AuthorizedCurrency: req.Currency,
		RespondedAt:        time.Now(),
	}, nil
}

func (p *flakyProcessor) Void(ctx context.Context, req domain.ProcessorVoidRequest) (*domain.ProcessorVoidResult, error) {
	return &domain.ProcessorVoidResult{Voided: true, RespondedAt: time.Now()}, nil
}

func (p *flakyProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// alwaysFailProcessor fails every Authorize call with a retryable error,
// for exercising the worker's max-retries exhaustion path.
type alwaysFailProcessor struct {
	name string

	mu    sync.Mutex
	calls int
}

func newAlwaysFailProcessor(name string) *alwaysFailProcessor {
	return &alwaysFailProcessor{name: name}
}

func (p *alwaysFailProcessor) Name() string { return p.name }

func (p *alwaysFailProcessor) Authorize(ctx context.Context, req domain.ProcessorAuthorizeRequest) (*domain.ProcessorAuthorizeResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return nil, errors.New("simulated permanent processor outage")
}

func (p *alwaysFailProcessor) Void(ctx context.Context, req domain.ProcessorVoidRequest) (*domain.ProcessorVoidResult, error) {
	return nil, errors.New("simulated permanent processor outage")
}

func (p *alwaysFailProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// slowProcessor approves deterministically, but only after latency -- long
// enough to hold the distributed lock past the queue's visibility timeout,
// forcing a concurrent redelivery.
type slowProcessor struct {
	name    string
	latency time.Duration

	mu    sync.Mutex
	calls int
}

func newSlowProcessor(name string, latency time.Duration) *slowProcessor {
	return &slowProcessor{name: name, latency: latency}
}

func (p *slowProcessor) Name() string { return p.name }

func (p *slowProcessor) Authorize(ctx context.Context, req domain.ProcessorAuthorizeRequest) (*domain.ProcessorAuthorizeResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.ProcessorAuthorizeResult{
		Approved:           true,
		ProcessorAuthID:    "slow_" + uuid.NewString(),
		AuthorizationCode:  uuid.NewString()[:6],
		AuthorizedAmount:   req.AmountMinor,
		AuthorizedCurrency: req.Currency,
		RespondedAt:        time.Now(),
	}, nil
}

func (p *slowProcessor) Void(ctx context.Context, req domain.ProcessorVoidRequest) (*domain.ProcessorVoidResult, error) {
	return &domain.ProcessorVoidResult{Voided: true, RespondedAt: time.Now()}, nil
}

func (p *slowProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

