package freqstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisFreqPrefix string = "freq/"

// RedisFrequencyStore keeps send history in redis sorted sets, one per
// recipient, scored by unix milliseconds. Redis serializes commands per key,
// which gives the same per-recipient atomicity as the in-memory store, and
// key TTLs stand in for janitor pruning.
type RedisFrequencyStore struct {
	Client *redis.Client
	limits Limits
}

func NewRedisFrequencyStore(redisURL string, limits Limits) (*RedisFrequencyStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return &RedisFrequencyStore{Client: rdb, limits: limits}, nil
}

func (s *RedisFrequencyStore) key(recipient string) string {
	return redisFreqPrefix + recipient
}

func (s *RedisFrequencyStore) Check(ctx context.Context, recipient string, now time.Time) (Check, error) {
	key := s.key(recipient)

	// trim and count three windows in a single redis round-trip
	multi := s.Client.Pipeline()
	multi.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", now.Add(-s.limits.Retention).UnixMilli()))
	hour := multi.ZCount(ctx, key, fmt.Sprintf("(%d", now.Add(-time.Hour).UnixMilli()), "+inf")
	day := multi.ZCount(ctx, key, fmt.Sprintf("(%d", now.Add(-24*time.Hour).UnixMilli()), "+inf")
	week := multi.ZCount(ctx, key, fmt.Sprintf("(%d", now.Add(-7*24*time.Hour).UnixMilli()), "+inf")
	if _, err := multi.Exec(ctx); err != nil {
		return Check{}, err
	}
	return evaluate(int(hour.Val()), int(day.Val()), int(week.Val()), s.limits), nil
}

func (s *RedisFrequencyStore) RecordSend(ctx context.Context, recipient string, now time.Time) error {
	key := s.key(recipient)
	member := fmt.Sprintf("%d", now.UnixNano())

	multi := s.Client.Pipeline()
	multi.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	multi.Expire(ctx, key, s.limits.Retention+s.limits.Grace)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisFrequencyStore) CountSince(ctx context.Context, recipient string, since time.Time) (int, error) {
	n, err := s.Client.ZCount(ctx, s.key(recipient), fmt.Sprintf("(%d", since.UnixMilli()), "+inf").Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Prune is a light no-op for redis: history is trimmed lazily on Check and
// whole keys expire via TTL.
func (s *RedisFrequencyStore) Prune(ctx context.Context, now time.Time) (PruneStats, error) {
	return PruneStats{}, nil
}

func (s *RedisFrequencyStore) ReadStats(ctx context.Context, now time.Time) (Stats, error) {
	// keyspace-wide scans are too expensive for a health endpoint; report
	// nothing rather than something stale
	return Stats{}, nil
}

var _ FrequencyStore = (*RedisFrequencyStore)(nil)
