/*
 * @module service/cache/ttl_cache
 * @description 按键独立TTL的内存缓存，供连接器FetchData在轮询窗口内避免重复上游调用
 * @architecture 工具层 - 进程内缓存
 * @documentReference ai_docs/cache_design.md
 * @stateFlow 写入(带TTL) -> 窗口内命中 -> 过期读取时惰性淘汰
 * @rules get在 now - insertedAt >= ttl 时必须淘汰条目并返回未命中
 * @dependencies sync, time
 * @refs service/connector/base.go
 */

package cache

import (
	"context"
	"sync"
	"time"
)

// Cache 缓存统一接口，内存实现与Redis实现行为一致
type Cache interface {
	// Get 获取缓存值，过期条目视为未命中并被淘汰
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set 写入缓存值并设置独立TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete 删除指定键
	Delete(ctx context.Context, key string) error

	// Clear 清空全部条目
	Clear(ctx context.Context) error
}

// CacheEntry 缓存条目
type CacheEntry struct {
	Key        string
	Value      interface{}
	InsertedAt time.Time
	TTL        time.Duration
}

// Expired 判断条目在指定时刻是否已过期
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) >= e.TTL
}

// MemoryCache 进程内TTL缓存
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	now     func() time.Time // 测试注入时钟
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		now:     time.Now,
	}
}

// Get 获取缓存值
func (c *MemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if entry.Expired(c.now()) {
		// 过期读即淘汰
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.Value, true
}

// Set 写入缓存值
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &CacheEntry{
		Key:        key,
		Value:      value,
		InsertedAt: c.now(),
		TTL:        ttl,
	}
	return nil
}

// Delete 删除指定键
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear 清空全部条目
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	return nil
}

// Len 返回当前条目数（含未被惰性淘汰的过期条目）
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep 主动清理过期条目，由调用方按需定期触发
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
