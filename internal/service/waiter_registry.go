package service

import (
	"context"
	"sync"
	"time"

	"payauth-platform/internal/core/domain"

	"github.com/google/uuid"
)

// InProcessWaiterRegistry implements ports.WaiterRegistry: ingress
// registers a buffered channel for an AuthRequestID and blocks on it;
// Notify sends the new state on that channel without blocking, waking the
// waiter without either side polling. Modeled on the in-flight request
// dedup pattern used elsewhere in the ecosystem for blocking a caller on a
// result some other goroutine is computing.
type InProcessWaiterRegistry struct {
	mu      sync.Mutex
	waiters map[uuid.UUID]chan domain.AuthRequestState
}

// NewInProcessWaiterRegistry creates a new in-process waiter registry.
func NewInProcessWaiterRegistry() *InProcessWaiterRegistry {
	return &InProcessWaiterRegistry{
		waiters: make(map[uuid.UUID]chan domain.AuthRequestState),
	}
}

// Wait blocks until Notify is called for id, ctx is done, or timeout
// elapses, whichever comes first. Returns (state, true) if notified, or
// (nil, false) on timeout/cancellation — the caller falls back to polling
// GetStatus in that case.
func (r *InProcessWaiterRegistry) Wait(ctx context.Context, id uuid.UUID, timeout time.Duration) (*domain.AuthRequestState, bool) {
	ch := r.register(id)
	defer r.deregister(id, ch)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case state, ok := <-ch:
		if !ok {
			return nil, false
		}
		return &state, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Notify wakes any waiter registered for id. A no-op if nobody is waiting.
func (r *InProcessWaiterRegistry) Notify(id uuid.UUID, state domain.AuthRequestState) {
	r.mu.Lock()
	ch, ok := r.waiters[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- state:
	default:
	}
}

func (r *InProcessWaiterRegistry) register(id uuid.UUID) chan domain.AuthRequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.waiters[id]; ok {
		return ch
	}
	ch := make(chan domain.AuthRequestState, 1)
	r.waiters[id] = ch
	return ch
}

func (r *InProcessWaiterRegistry) deregister(id uuid.UUID, ch chan domain.AuthRequestState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.waiters[id]; ok && current == ch {
		delete(r.waiters, id)
	}
}
