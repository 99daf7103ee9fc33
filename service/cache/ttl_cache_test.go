/*
 * @module service/cache/ttl_cache_test
 * @description 内存TTL缓存的单元测试
 * @architecture 测试驱动开发 - 验证TTL淘汰法则与并发安全基本行为
 * @documentReference ai_docs/cache_design.md
 * @stateFlow 测试准备 -> 写入/读取 -> 时钟推进 -> 淘汰验证
 * @rules get在 now - insertedAt >= ttl 时必须淘汰条目并返回未命中
 * @dependencies testing, testify
 * @refs ttl_cache.go
 */

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newClockedCache 创建带可控时钟的内存缓存
func newClockedCache(start time.Time) (*MemoryCache, *time.Time) {
	current := start
	c := NewMemoryCache()
	c.now = func() time.Time { return current }
	return c, &current
}

// TestMemoryCacheHitWithinTTL 测试窗口内命中
func TestMemoryCacheHitWithinTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newClockedCache(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	assert.NoError(t, c.Set(ctx, "activity:demo", "payload", 5*time.Minute))

	*clock = clock.Add(4 * time.Minute)
	value, hit := c.Get(ctx, "activity:demo")
	assert.True(t, hit)
	assert.Equal(t, "payload", value)
}

// TestMemoryCacheExpiry 测试过期读取即淘汰
func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newClockedCache(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	assert.NoError(t, c.Set(ctx, "activity:demo", "payload", 5*time.Minute))

	// 恰好到达TTL边界视为过期
	*clock = clock.Add(5 * time.Minute)
	_, hit := c.Get(ctx, "activity:demo")
	assert.False(t, hit)

	// 过期读已淘汰条目
	assert.Equal(t, 0, c.Len())
}

// TestMemoryCachePerKeyTTL 测试按键独立TTL
func TestMemoryCachePerKeyTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newClockedCache(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	assert.NoError(t, c.Set(ctx, "short", 1, time.Minute))
	assert.NoError(t, c.Set(ctx, "long", 2, time.Hour))

	*clock = clock.Add(2 * time.Minute)

	_, shortHit := c.Get(ctx, "short")
	_, longHit := c.Get(ctx, "long")
	assert.False(t, shortHit)
	assert.True(t, longHit)
}

// TestMemoryCacheOverwriteRefreshesTTL 测试覆盖写重置插入时间
func TestMemoryCacheOverwriteRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newClockedCache(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	assert.NoError(t, c.Set(ctx, "key", "v1", time.Minute))
	*clock = clock.Add(50 * time.Second)
	assert.NoError(t, c.Set(ctx, "key", "v2", time.Minute))

	*clock = clock.Add(50 * time.Second)
	value, hit := c.Get(ctx, "key")
	assert.True(t, hit)
	assert.Equal(t, "v2", value)
}

// TestMemoryCacheDeleteAndClear 测试删除与清空
func TestMemoryCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	assert.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	assert.NoError(t, c.Set(ctx, "b", 2, time.Minute))

	assert.NoError(t, c.Delete(ctx, "a"))
	_, hit := c.Get(ctx, "a")
	assert.False(t, hit)
	assert.Equal(t, 1, c.Len())

	assert.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

// TestMemoryCacheSweep 测试主动清理过期条目
func TestMemoryCacheSweep(t *testing.T) {
	ctx := context.Background()
	c, clock := newClockedCache(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	assert.NoError(t, c.Set(ctx, "stale1", 1, time.Minute))
	assert.NoError(t, c.Set(ctx, "stale2", 2, time.Minute))
	assert.NoError(t, c.Set(ctx, "fresh", 3, time.Hour))

	*clock = clock.Add(10 * time.Minute)

	removed := c.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())

	_, hit := c.Get(ctx, "fresh")
	assert.True(t, hit)
}
