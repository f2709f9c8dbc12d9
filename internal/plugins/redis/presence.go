package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore tracks live dispatchers per venture in a ZSET scored by
// last-seen time. Stale members are trimmed on read, so a silent disconnect
// cleans itself up.
type RedisPresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPresenceStore(rdb *redis.Client, ttl time.Duration) *RedisPresenceStore {
	return &RedisPresenceStore{rdb: rdb, ttl: ttl}
}

func presenceKey(ventureID int64) string {
	return "presence:venture:" + strconv.FormatInt(ventureID, 10)
}

// MarkOnline refreshes the dispatcher's score with the current timestamp.
func (p *RedisPresenceStore) MarkOnline(ctx context.Context, ventureID, userID int64, ttl time.Duration) error {
	key := presenceKey(ventureID)
	err := p.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: strconv.FormatInt(userID, 10),
	}).Err()
	if err != nil {
		return err
	}
	// Expire the whole set so an idle venture does not leak memory.
	return p.rdb.Expire(ctx, key, ttl*2).Err()
}

// OnlineDispatchers returns user ids seen within the presence window.
func (p *RedisPresenceStore) OnlineDispatchers(ctx context.Context, ventureID int64) ([]int64, error) {
	key := presenceKey(ventureID)
	threshold := time.Now().Add(-p.ttl).Unix()

	// Trim stale members first.
	p.rdb.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(threshold, 10))

	members, err := p.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (p *RedisPresenceStore) MarkOffline(ctx context.Context, ventureID, userID int64) error {
	return p.rdb.ZRem(ctx, presenceKey(ventureID), strconv.FormatInt(userID, 10)).Err()
}
