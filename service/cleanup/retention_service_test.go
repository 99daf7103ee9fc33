/*
 * @module service/cleanup/retention_service_test
 * @description 保留期清理服务的单元测试
 * @architecture 测试驱动开发 - sqlite内存库验证按集成保留天数清理
 * @documentReference ai_docs/storage_design.md 保留期一节
 * @stateFlow 注册集成 -> 写入新旧快照 -> 执行清理 -> 剩余快照断言
 * @rules 清理只删除超过保留期的快照，最新数据不受影响
 * @dependencies testing, testify, gorm, sqlite
 * @refs retention_service.go
 */

package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse-service/service/connector"
	"teampulse-service/service/models"
	"teampulse-service/service/storage"
	"teampulse-service/testutil"
)

// newRetentionEnv 构造注册了单个集成的清理环境
func newRetentionEnv(t *testing.T, retentionDays int) (*RetentionService, *storage.SnapshotStore, string) {
	t.Helper()

	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	snapshots := storage.NewSnapshotStore(tdb.DB)

	integration := testutil.NewIntegration(models.ServiceTypeSlack)
	integration.Config.DataRetentionDays = retentionDays

	registry := connector.NewRegistry()
	conn, err := connector.NewFactory(connector.Deps{}).Create(integration)
	require.NoError(t, err)
	registry.Add(conn)

	return NewRetentionService(registry, snapshots, nil), snapshots, integration.ID
}

// saveSnapshotAt 写入指定时间的快照
func saveSnapshotAt(t *testing.T, snapshots *storage.SnapshotStore, integrationID string, at time.Time) {
	t.Helper()
	require.NoError(t, snapshots.Save(&models.AnalyticsSnapshot{
		IntegrationID: integrationID,
		Metrics:       testutil.NewMetrics(),
		LastUpdated:   at,
	}))
}

// TestCleanupExpiredSnapshots 测试过期快照被清理而新快照保留
func TestCleanupExpiredSnapshots(t *testing.T) {
	service, snapshots, integrationID := newRetentionEnv(t, 30)

	saveSnapshotAt(t, snapshots, integrationID, time.Now().AddDate(0, 0, -60))
	saveSnapshotAt(t, snapshots, integrationID, time.Now().AddDate(0, 0, -45))
	saveSnapshotAt(t, snapshots, integrationID, time.Now().Add(-time.Hour))

	removed, err := service.CleanupExpiredSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	remaining, err := snapshots.List(integrationID, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

// TestCleanupNothingExpired 测试无过期快照时清理为空操作
func TestCleanupNothingExpired(t *testing.T) {
	service, snapshots, integrationID := newRetentionEnv(t, 30)

	saveSnapshotAt(t, snapshots, integrationID, time.Now().Add(-time.Hour))

	removed, err := service.CleanupExpiredSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

// TestStartIdempotence 测试调度器重复启动报错
func TestStartIdempotence(t *testing.T) {
	service, _, _ := newRetentionEnv(t, 30)

	require.NoError(t, service.Start())
	t.Cleanup(service.Stop)

	assert.Error(t, service.Start())
}
