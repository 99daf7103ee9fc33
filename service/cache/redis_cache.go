/*
 * @module service/cache/redis_cache
 * @description 基于Redis的TTL缓存实现，多副本部署时共享缓存窗口
 * @architecture 工具层 - 分布式缓存
 * @documentReference ai_docs/cache_design.md
 * @stateFlow 写入(SET EX) -> 窗口内命中 -> Redis按TTL自动过期
 * @rules 与MemoryCache行为一致：过期即未命中；值以JSON序列化存储
 * @dependencies github.com/go-redis/redis/v8, encoding/json
 * @refs service/cache/ttl_cache.go
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache Redis缓存实现
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache 从环境变量创建Redis缓存
func NewRedisCache(keyPrefix string) (*RedisCache, error) {
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

	slog.Info("Redis缓存初始化成功", "redis_host", host, "redis_port", port, "prefix", keyPrefix)

	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// buildKey 构造带前缀的缓存键
func (c *RedisCache) buildKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + ":" + key
}

// Get 获取缓存值
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	data, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("Redis缓存读取失败", "key", key, "error", err)
		}
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		// 无法反序列化的条目按未命中处理
		return nil, false
	}
	return value, true
}

// Set 写入缓存值
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存值失败: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("写入Redis缓存失败: %w", err)
	}
	return nil
}

// Delete 删除指定键
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.buildKey(key)).Err()
}

// Clear 清空当前前缀下的全部条目
func (c *RedisCache) Clear(ctx context.Context) error {
	pattern := c.buildKey("*")

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close 关闭Redis客户端
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
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
