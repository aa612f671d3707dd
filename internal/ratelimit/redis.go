package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns, with the caller supplying the composed
// per-actor-per-conversation key:
// - ratelimit:send:{actor} - per-actor window across all conversations
// - ratelimit:send:{actor}:{conversation} - per-actor-per-conversation window

// RedisLimiter shares the send budget across instances. Both counters
// are checked and consumed inside one Lua script so the
// increment-and-check stays atomic under concurrent callers.
type RedisLimiter struct {
	client *goredis.Client
	config Config
}

func NewRedisLimiter(client *goredis.Client, config Config) *RedisLimiter {
	return &RedisLimiter{client: client, config: config}
}

var allowSendScript = goredis.NewScript(`
	local actorKey = KEYS[1]
	local convKey = KEYS[2]
	local actorLimit = tonumber(ARGV[1])
	local actorWindow = tonumber(ARGV[2])
	local convLimit = tonumber(ARGV[3])
	local convWindow = tonumber(ARGV[4])

	local actorCount = tonumber(redis.call('GET', actorKey) or '0')
	local convCount = tonumber(redis.call('GET', convKey) or '0')

	if actorCount >= actorLimit then
		local ttl = redis.call('TTL', actorKey)
		if ttl < 0 then ttl = actorWindow end
		return {0, 0, ttl, actorLimit}
	end
	if convCount >= convLimit then
		local ttl = redis.call('TTL', convKey)
		if ttl < 0 then ttl = convWindow end
		return {0, 0, ttl, convLimit}
	end

	redis.call('INCR', actorKey)
	if redis.call('TTL', actorKey) < 0 then
		redis.call('EXPIRE', actorKey, actorWindow)
	end
	redis.call('INCR', convKey)
	if redis.call('TTL', convKey) < 0 then
		redis.call('EXPIRE', convKey, convWindow)
	end

	local actorRemaining = actorLimit - actorCount - 1
	local convRemaining = convLimit - convCount - 1
	if actorRemaining < convRemaining then
		return {1, actorRemaining, 0, actorLimit}
	end
	return {1, convRemaining, 0, convLimit}
`)

func (r *RedisLimiter) AllowSend(ctx context.Context, actorKey, conversationKey string) (Decision, error) {
	keys := []string{
		fmt.Sprintf("ratelimit:send:%s", actorKey),
		fmt.Sprintf("ratelimit:send:%s", conversationKey),
	}
	result, err := allowSendScript.Run(ctx, r.client, keys,
		r.config.ActorLimit, int(r.config.ActorWindow.Seconds()),
		r.config.ConversationLimit, int(r.config.ConversationWindow.Seconds()),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 4 {
		return Decision{}, fmt.Errorf("unexpected rate limit result format")
	}

	return Decision{
		Allowed:    resultSlice[0].(int64) == 1,
		Remaining:  int(resultSlice[1].(int64)),
		RetryAfter: time.Duration(resultSlice[2].(int64)) * time.Second,
		Limit:      int(resultSlice[3].(int64)),
	}, nil
}

// Reset clears the windows for an actor (admin operation).
func (r *RedisLimiter) Reset(ctx context.Context, actorKey string) error {
	pattern := fmt.Sprintf("ratelimit:send:%s*", actorKey)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
