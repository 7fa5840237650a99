package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payauth-platform/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// RedisQueue implements ports.MessageQueue on Redis Streams. Each
// destination gets one stream, so ordering is the stream's global append
// order; the message group is not used for routing (see streamKey).
// Cross-redelivery dedup on DedupKey is a separate SET NX keyed on DedupKey,
// modeled on the exactly-once idempotency reservation pattern used
// elsewhere in the ecosystem for at-least-once queues.
type RedisQueue struct {
	client            *goredis.Client
	dedupTTL          time.Duration
	streamMax         int64
	blockTime         time.Duration
	visibilityTimeout time.Duration
}

// NewRedisQueue creates a new Redis Streams-backed message queue. dedupTTL
// is how long a DedupKey is remembered; a redelivery of the same key within
// that window is silently dropped. visibilityTimeout is how long a message
// stays invisible to other consumers after delivery before Consume will
// reclaim it on Nack or on its original consumer's crash.
func NewRedisQueue(client *goredis.Client, dedupTTL, visibilityTimeout time.Duration) *RedisQueue {
	return &RedisQueue{
		client:            client,
		dedupTTL:          dedupTTL,
		streamMax:         100_000,
		blockTime:         2 * time.Second,
		visibilityTimeout: visibilityTimeout,
	}
}

// streamKey is destination-scoped only: FIFO ordering is a stream-wide
// guarantee, and per-group exclusivity is enforced upstream by the
// Distributed Lock rather than by routing groups to separate streams (doing
// the latter would spread one group's messages across independent
// consumers with no ordering relationship between them).
func streamKey(destination, _messageGroup string) string {
	return "stream:" + destination
}

func dedupKeyOf(destination, dedupKey string) string {
	return "dedup:" + destination + ":" + dedupKey
}

// Publish enqueues payload under destination/messageGroup. A redelivery
// with the same dedupKey within the dedup window is a no-op.
func (q *RedisQueue) Publish(ctx context.Context, destination, messageGroup, dedupKey string, payload []byte) error {
	if dedupKey != "" {
		reserved, err := q.client.SetNX(ctx, dedupKeyOf(destination, dedupKey), 1, q.dedupTTL).Result()
		if err != nil {
			return fmt.Errorf("redis queue dedup reserve: %w", err)
		}
		if !reserved {
			return nil
		}
	}

	key := streamKey(destination, messageGroup)
	args := &goredis.XAddArgs{
		Stream: key,
		MaxLen: q.streamMax,
		Approx: true,
		Values: map[string]any{
			"dedup_key": dedupKey,
			"payload":   payload,
		},
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis queue publish: %w", err)
	}
	return nil
}

// Consume blocks until at least one message is available for consumerGroup
// on destination, or ctx is done. The stream name here must match the
// fan-out the queue was published under; destination-level (non-grouped)
// queues like the void queue pass an empty message group at Publish time.
//
// Pending entries idle longer than visibilityTimeout are reclaimed first
// (to this consumer, whoever it is) ahead of any new message, so a Nack'd
// or crash-abandoned delivery is redelivered without waiting for the
// stream's new-message tail to catch up.
func (q *RedisQueue) Consume(ctx context.Context, destination, consumerGroup, consumerName string, maxMessages int) ([]ports.Message, error) {
	key := streamKey(destination, "")
	if err := q.ensureGroup(ctx, key, consumerGroup); err != nil {
		return nil, err
	}

	claimed, err := q.claimIdle(ctx, key, consumerGroup, consumerName, maxMessages)
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		return toMessages(destination, claimed), nil
	}

	res, err := q.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumerName,
		Streams:  []string{key, ">"},
		Count:    int64(maxMessages),
		Block:    q.blockTime,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis queue consume: %w", err)
	}

	var messages []goredis.XMessage
	for _, stream := range res {
		messages = append(messages, stream.Messages...)
	}
	return toMessages(destination, messages), nil
}

// claimIdle reassigns pending entries that have sat unacknowledged past
// visibilityTimeout to consumerName via XAUTOCLAIM. This is what makes Nack
// (a no-op that leaves the entry pending under its original consumer)
// actually result in redelivery.
func (q *RedisQueue) claimIdle(ctx context.Context, key, group, consumerName string, count int) ([]goredis.XMessage, error) {
	messages, _, err := q.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   key,
		Group:    group,
		Consumer: consumerName,
		MinIdle:  q.visibilityTimeout,
		Start:    "0",
		Count:    int64(count),
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis queue claim idle: %w", err)
	}
	return messages, nil
}

func toMessages(destination string, raw []goredis.XMessage) []ports.Message {
	messages := make([]ports.Message, 0, len(raw))
	for _, m := range raw {
		payload, _ := m.Values["payload"].(string)
		dedup, _ := m.Values["dedup_key"].(string)
		messages = append(messages, ports.Message{
			ID:            m.ID,
			Destination:   destination,
			DedupKey:      dedup,
			Payload:       []byte(payload),
			DeliveryToken: m.ID,
		})
	}
	return messages
}

// Ack acknowledges successful processing of msg.
func (q *RedisQueue) Ack(ctx context.Context, destination, consumerGroup string, msg ports.Message) error {
	key := streamKey(destination, "")
	if err := q.client.XAck(ctx, key, consumerGroup, msg.DeliveryToken).Err(); err != nil {
		return fmt.Errorf("redis queue ack: %w", err)
	}
	return nil
}

// Nack returns msg to the queue for redelivery by leaving it unacknowledged
// in the consumer group's pending entries list; claimIdle reclaims it, to
// whichever consumer polls next, once it has sat idle past
// visibilityTimeout.
func (q *RedisQueue) Nack(ctx context.Context, destination, consumerGroup string, msg ports.Message) error {
	return nil
}

func (q *RedisQueue) ensureGroup(ctx context.Context, key, group string) error {
	err := q.client.XGroupCreateMkStream(ctx, key, group, "0").Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		if isBusyGroupErr(err) {
			return nil
		}
		return fmt.Errorf("redis queue ensure group: %w", err)
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 8 && err.Error()[:8] == "BUSYGROU"
}
