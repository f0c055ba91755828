package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// token bucket: ведро на limit команд, пополняется равномерно за window
var tokenBucket = redis.NewScript(`
	local tokens_key = KEYS[1] .. ":tokens"
	local timestamp_key = KEYS[1] .. ":ts"
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local tokens = tonumber(redis.call('GET', tokens_key))
	local last = tonumber(redis.call('GET', timestamp_key))
	if tokens == nil or last == nil then
		tokens = limit
		last = now
	end

	local refilled = math.min(limit, tokens + (now - last) * limit / window)
	local allowed = 0
	if refilled >= 1 then
		refilled = refilled - 1
		allowed = 1
	end

	redis.call('SET', tokens_key, refilled, 'PX', window * 2)
	redis.call('SET', timestamp_key, now, 'PX', window * 2)
	return {allowed, math.floor(refilled)}
`)

// RedisRateLimiter ограничивает частоту команд игрока, общий для бота и websocket
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	now       func() time.Time
}

type Config struct {
	KeyPrefix string
	Limit     int
	Window    time.Duration
}

func NewRedisRateLimiter(client *redis.Client, cfg Config) *RedisRateLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "connect4:ratelimit:"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		limit:     cfg.Limit,
		window:    cfg.Window,
		now:       time.Now,
	}
}

// Allow списывает один токен игрока. false - лимит исчерпан
func (r *RedisRateLimiter) Allow(ctx context.Context, playerID int64) (bool, error) {
	allowed, _, err := r.AllowWithRemaining(ctx, playerID)
	return allowed, err
}

func (r *RedisRateLimiter) AllowWithRemaining(ctx context.Context, playerID int64) (bool, int, error) {
	key := r.key(playerID)
	res, err := tokenBucket.Run(ctx, r.client, []string{key},
		r.limit, r.window.Milliseconds(), r.now().UnixMilli()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) < 2 {
		return false, 0, fmt.Errorf("rate limit script: unexpected result %v", res)
	}
	return res[0] == 1, int(res[1]), nil
}

func (r *RedisRateLimiter) Reset(ctx context.Context, playerID int64) error {
	key := r.key(playerID)
	if err := r.client.Del(ctx, key+":tokens", key+":ts").Err(); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}

func (r *RedisRateLimiter) key(playerID int64) string {
	return r.keyPrefix + strconv.FormatInt(playerID, 10)
}
