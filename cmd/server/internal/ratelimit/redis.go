package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const window = time.Minute

// Fixed one minute window counter shared by every instance using the same redis
type RedisLimiterStore struct {
	db         *redis.Client
	limiterKey string
	perMinute  int64
	failOpen   bool
	timeout    time.Duration
}

type RedisLimiterConfig struct {
	RedisClient *redis.Client
	LimiterKey  string
	PerMinute   int64
	FailOpen    bool
}

func (store *RedisLimiterStore) key(identifier string) string {
	return "judgeapi-ratelimit-" + store.limiterKey + "-" + identifier
}

func (store *RedisLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), store.timeout)
	defer cancel()

	key := store.key(identifier)

	var count *redis.IntCmd
	_, err := store.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		// only the first request of a window starts the clock
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return store.failOpen, err
	}

	return count.Val() <= store.perMinute, nil
}

func NewRedisLimitStore(config RedisLimiterConfig) *RedisLimiterStore {
	return &RedisLimiterStore{
		perMinute:  config.PerMinute,
		db:         config.RedisClient,
		limiterKey: config.LimiterKey,
		failOpen:   config.FailOpen,
		timeout:    time.Second,
	}
}
