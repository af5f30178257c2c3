package redis_limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// 使用Lua脚本确保原子性操作
// 脚本逻辑：
// 1. 获取当前值
// 2. 如果当前值小于最大并发数，则增加1并设置过期时间，返回新值
// 3. 否则返回当前值+1 表示失败
var acquireScript = redis.NewScript(
	`local current = redis.call('GET', KEYS[1])
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current >= tonumber(ARGV[1]) then
		return current + 1
	end

	local newCount = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
	return newCount`,
)

// 脚本逻辑：
// 1. 减少计数
// 2. 如果结果 <= 0，删除key；否则重新设置过期时间
var releaseScript = redis.NewScript(
	`local count = redis.call('DECR', KEYS[1])
	if tonumber(count) <= 0 then
		redis.call('DEL', KEYS[1])
		return 0
	else
		redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
		return count
	end`,
)

// ErrLimitReached 并发槽位已满
var ErrLimitReached = fmt.Errorf("并发限制已达到上限")

// RedisLimiter 基于Redis的并发限制器，多个实例共享同一组槽位
type RedisLimiter struct {
	client        redis.UniversalClient
	maxConcurrent int
	keyPrefix     string
	ttl           time.Duration
	logger        logrus.FieldLogger
}

// NewRedisLimiter 创建基于Redis的并发限制器
func NewRedisLimiter(client redis.UniversalClient, maxConcurrent int, keyPrefix string, ttl time.Duration, logger logrus.FieldLogger) *RedisLimiter {
	return &RedisLimiter{
		client:        client,
		maxConcurrent: maxConcurrent,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
		logger:        logger.WithField("component", "redis_limiter"),
	}
}

// Acquire 获取并发槽位，槽位已满时立即返回 ErrLimitReached
func (rl *RedisLimiter) Acquire(ctx context.Context, key string) error {
	redisKey := rl.keyPrefix + key

	result, err := acquireScript.Run(ctx, rl.client, []string{redisKey}, rl.maxConcurrent, int(rl.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("执行Lua脚本失败: %w", err)
	}

	// 检查是否超过了限制
	if result > rl.maxConcurrent {
		rl.logger.WithFields(logrus.Fields{"key": key, "max": rl.maxConcurrent}).Warn("槽位已满")
		return fmt.Errorf("%w: %d", ErrLimitReached, rl.maxConcurrent)
	}

	rl.logger.WithFields(logrus.Fields{"key": key, "in_use": result}).Debug("成功获取槽位")
	return nil
}

// Release 释放并发槽位
func (rl *RedisLimiter) Release(ctx context.Context, key string) {
	redisKey := rl.keyPrefix + key

	remaining, err := releaseScript.Run(ctx, rl.client, []string{redisKey}, int(rl.ttl.Seconds())).Int()
	if err != nil {
		rl.logger.WithError(err).WithField("key", key).Error("释放槽位失败")
		return
	}

	rl.logger.WithFields(logrus.Fields{"key": key, "in_use": remaining}).Debug("成功释放槽位")
}

// GetCurrent 获取当前并发数
func (rl *RedisLimiter) GetCurrent(ctx context.Context, key string) (int, error) {
	current, err := rl.client.Get(ctx, rl.keyPrefix+key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("获取当前并发数失败: %w", err)
	}
	return current, nil
}

// GetMaxConcurrent 获取最大并发数
func (rl *RedisLimiter) GetMaxConcurrent() int {
	return rl.maxConcurrent
}
