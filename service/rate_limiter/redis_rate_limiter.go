/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的分布式限流器，多副本部署时共享各集成的调用配额窗口
 * @architecture 工具层 - 分布式限流能力
 * @documentReference ai_docs/rate_limit_design.md
 * @stateFlow 申请配额 -> Redis原子计数 -> 超限时等待TTL后重试
 * @rules 使用Redis INCR和EXPIRE实现固定窗口限流；与WindowLimiter实现同一接口
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/rate_limiter/window_limiter.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter Redis分布式限流器
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

// NewRedisLimiter 从环境变量创建Redis限流器
func NewRedisLimiter(maxRequests int, window time.Duration) (*RedisLimiter, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("Redis限流器初始化成功", "redis_host", host, "redis_port", port)

	if maxRequests <= 0 {
		maxRequests = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RedisLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}, nil
}

// 原子限流脚本：计数并在首次请求时设置窗口过期
const acquireScript = `
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current >= max_requests then
		local ttl = redis.call('TTL', key)
		if ttl == -1 then
			ttl = window
		end
		return {0, ttl}
	end

	local new_count = redis.call('INCR', key)
	if new_count == 1 then
		redis.call('EXPIRE', key, window)
	end

	local ttl = redis.call('TTL', key)
	if ttl == -1 then
		ttl = window
	end

	return {1, ttl}
`

// Acquire 申请一次调用配额，超限时等待窗口TTL后重试
func (l *RedisLimiter) Acquire(ctx context.Context, key string) error {
	windowSeconds := int(l.window.Seconds())
	redisKey := l.buildKey(key)

	for {
		result, err := l.client.Eval(ctx, acquireScript, []string{redisKey}, l.maxRequests, windowSeconds).Result()
		if err != nil {
			return fmt.Errorf("限流检查失败: %w", err)
		}

		results := result.([]interface{})
		allowed := results[0].(int64) == 1
		ttl := time.Duration(results[1].(int64)) * time.Second

		if allowed {
			return nil
		}

		slog.Debug("分布式配额耗尽，等待窗口重置", "key", key, "ttl", ttl)

		timer := time.NewTimer(ttl)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Observe 回填上游配额状态
// Redis实现以本地计数为准，上游元数据仅在上游比本地更紧时收紧剩余额度
func (l *RedisLimiter) Observe(key string, remaining int, resetAt time.Time) {
	if remaining != 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ttl := l.window
	if !resetAt.IsZero() {
		if d := time.Until(resetAt); d > 0 {
			ttl = d
		}
	}

	// 上游明确告知额度耗尽，直接把本地窗口打满
	if err := l.client.Set(ctx, l.buildKey(key), l.maxRequests, ttl).Err(); err != nil {
		slog.Warn("回填限流配额失败", "key", key, "error", err)
	}
}

// buildKey 构造限流Key
func (l *RedisLimiter) buildKey(key string) string {
	currentWindow := time.Now().Unix() / int64(l.window.Seconds())
	return fmt.Sprintf("rate_limit:%s:%d", key, currentWindow)
}

// Close 关闭Redis客户端
func (l *RedisLimiter) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
