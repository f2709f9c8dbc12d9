package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisEventQueue carries audit entries over a redis stream with a consumer
// group on the draining side.
type RedisEventQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisEventQueue(log *slog.Logger, rdb *redis.Client) *RedisEventQueue {
	return &RedisEventQueue{rdb: rdb, log: log}
}

func (q *RedisEventQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

// SubscribeToStream blocks on a group-read loop until the context is
// cancelled, invoking handler per entry. Acking is the handler's job.
// Entries left pending by a previous consumer are claimed and replayed
// before new reads start, so unacked work survives restarts.
func (q *RedisEventQueue) SubscribeToStream(
	ctx context.Context,
	topic string,
	group string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) error {
	err := q.rdb.XGroupCreateMkStream(ctx, topic, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	q.claimPending(ctx, topic, group, consumerName, handler)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumerName,
				Streams:  []string{topic, ">"},
				Count:    10,
				Block:    2 * time.Second,
			}).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					q.log.Error("queue - subscribe - read failed", "topic", topic, "err", err)
				}
				continue
			}
			for _, stream := range res {
				for _, msg := range stream.Messages {
					raw, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
						q.log.Error("queue - subscribe - handler failed", "topic", topic, "message_id", msg.ID, "err", err)
					}
				}
			}
		}
	}
}

// claimPending takes over the group's unacked entries, whatever consumer
// name they were read under, and replays them through the handler. Each run
// uses a fresh consumer name, so without this pass an entry whose persist
// failed would sit in the pending list forever.
func (q *RedisEventQueue) claimPending(
	ctx context.Context,
	topic string,
	group string,
	consumer string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) {
	start := "0-0"
	for {
		msgs, next, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   topic,
			Group:    group,
			Consumer: consumer,
			MinIdle:  0,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				q.log.Error("queue - claim pending - autoclaim failed", "topic", topic, "err", err)
			}
			return
		}
		for _, msg := range msgs {
			raw, ok := msg.Values["data"].(string)
			if !ok {
				continue
			}
			if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
				q.log.Error("queue - claim pending - handler failed", "topic", topic, "message_id", msg.ID, "err", err)
			}
		}
		if next == "0-0" {
			return
		}
		start = next
	}
}

func (q *RedisEventQueue) AcknowledgeMessage(ctx context.Context, topic, group, messageID string) error {
	return q.rdb.XAck(ctx, topic, group, messageID).Err()
}

func (q *RedisEventQueue) DeleteMessage(ctx context.Context, topic, messageID string) error {
	return q.rdb.XDel(ctx, topic, messageID).Err()
}
