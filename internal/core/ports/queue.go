package ports

import "context"

// Message is one delivery off a MessageQueue.
type Message struct {
	ID           string
	Destination  string
	MessageGroup string
	DedupKey     string
	Payload      []byte
	// DeliveryToken must be passed back to Ack/Nack; implementations use it
	// to identify the specific delivery being acknowledged (e.g. a Redis
	// Streams consumer-group message id).
	DeliveryToken string
}

// MessageQueue is the durable transport the Outbox Relay publishes to and
// the Authorization Worker consumes from. FIFO destinations preserve
// per-MessageGroup order and dedup on DedupKey within a configurable window;
// non-FIFO destinations (the void queue) give neither guarantee.
type MessageQueue interface {
	// Publish enqueues payload under destination/messageGroup. A redelivery
	// with the same dedupKey within the dedup window is a no-op.
	Publish(ctx context.Context, destination, messageGroup, dedupKey string, payload []byte) error
	// Consume blocks until at least one message is available for
	// consumerGroup on destination, or ctx is done.
	Consume(ctx context.Context, destination, consumerGroup, consumerName string, maxMessages int) ([]Message, error)
	// Ack acknowledges successful processing of msg.
	Ack(ctx context.Context, destination, consumerGroup string, msg Message) error
	// Nack returns msg to the queue for redelivery.
	Nack(ctx context.Context, destination, consumerGroup string, msg Message) error
}

// LockManager backs the Distributed Lock component: mutual exclusion across
// Authorization Worker processes on a single AuthRequestID, with a fencing
// holder id so a released-then-reacquired lock can never be confused with
// the lock a timed-out holder thinks it still has.
type LockManager interface {
	// Acquire blocks up to ctx's deadline trying to take the named lock for
	// ttl, returning a holder id on success. ErrLockHeld if it times out
	// without acquiring.
	Acquire(ctx context.Context, name string, ttl int64) (holderID string, err error)
	// Release frees the lock only if holderID still matches the current
	// holder; a mismatch is a no-op, not an error, since it means the TTL
	// already expired and somebody else acquired it.
	Release(ctx context.Context, name, holderID string) error
	// Extend pushes the lock's TTL out, failing if holderID no longer
	// matches (used by long-running attempts to avoid losing the lock
	// mid-attempt).
	Extend(ctx context.Context, name, holderID string, ttl int64) error
}
