package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutboxRepo struct {
	mu         sync.Mutex
	rows       []domain.OutboxRow
	delivered  []int64
	attempts   []int64
}

func (f *fakeOutboxRepo) Insert(ctx context.Context, tx ports.Pool, row domain.OutboxRow) error {
	return nil
}

func (f *fakeOutboxRepo) ClaimUndelivered(ctx context.Context, limit int) ([]domain.OutboxRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeOutboxRepo) MarkDelivered(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeOutboxRepo) MarkAttempt(ctx context.Context, id int64, nextAttemptAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, id)
	return nil
}

type fakeQueue struct {
	published []string
	failOn    map[string]bool
}

func (f *fakeQueue) Publish(ctx context.Context, destination, messageGroup, dedupKey string, payload []byte) error {
	if f.failOn[destination] {
		return errors.New("publish failed")
	}
	f.published = append(f.published, destination)
	return nil
}

func (f *fakeQueue) Consume(ctx context.Context, destination, consumerGroup, consumerName string, maxMessages int) ([]ports.Message, error) {
	return nil, nil
}

func (f *fakeQueue) Ack(ctx context.Context, destination, consumerGroup string, msg ports.Message) error {
	return nil
}

func (f *fakeQueue) Nack(ctx context.Context, destination, consumerGroup string, msg ports.Message) error {
	return nil
}

func TestOutboxRelay_RelayOnce_PublishesAndMarksDelivered(t *testing.T) {
	repo := &fakeOutboxRepo{rows: []domain.OutboxRow{
		{ID: 1, Destination: domain.DestinationAuthRequests, Payload: []byte("{}")},
	}}
	queue := &fakeQueue{}
	relay := NewOutboxRelay(repo, queue, zerolog.Nop(), time.Second, 10)

	err := relay.relayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, repo.delivered)
	assert.Equal(t, []string{string(domain.DestinationAuthRequests)}, queue.published)
}

func TestOutboxRelay_RelayOnce_PublishFailureSchedulesRetry(t *testing.T) {
	repo := &fakeOutboxRepo{rows: []domain.OutboxRow{
		{ID: 2, Destination: domain.DestinationVoidRequests, Payload: []byte("{}")},
	}}
	queue := &fakeQueue{failOn: map[string]bool{string(domain.DestinationVoidRequests): true}}
	relay := NewOutboxRelay(repo, queue, zerolog.Nop(), time.Second, 10)

	err := relay.relayOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, repo.delivered)
	assert.Equal(t, []int64{2}, repo.attempts)
}

func TestOutboxRelay_RelayOnce_InternalAuditIsLocalNoOp(t *testing.T) {
	repo := &fakeOutboxRepo{rows: []domain.OutboxRow{
		{ID: 3, Destination: domain.DestinationInternalAudit, Payload: []byte("{}")},
	}}
	queue := &fakeQueue{}
	relay := NewOutboxRelay(repo, queue, zerolog.Nop(), time.Second, 10)

	err := relay.relayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, repo.delivered)
	assert.Empty(t, queue.published, "internal.audit rows must never reach the queue")
}

func TestOutboxRelay_Run_StopsOnContextCancel(t *testing.T) {
	repo := &fakeOutboxRepo{}
	queue := &fakeQueue{}
	relay := NewOutboxRelay(repo, queue, zerolog.Nop(), 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after context cancellation")
	}
}
