/*
 * @module service/cleanup/retention_service
 * @description 保留期清理服务，按各集成配置的保留天数定期清理历史分析快照
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/storage_design.md 保留期一节
 * @stateFlow 定时触发 -> 遍历注册表 -> 按集成保留天数清理快照 -> 记录结果
 * @rules 清理失败不影响同步主流程；多副本部署时经分布式锁防重
 * @dependencies github.com/robfig/cron/v3, service/connector, service/storage
 * @refs service/storage/snapshot_store.go, service/bootstrap.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"teampulse-service/service/connector"
	"teampulse-service/service/distributed_lock"
	"teampulse-service/service/storage"
)

// 单次全量清理的锁持有时间
const cleanupLockTTL = 10 * time.Minute

// RetentionService 保留期清理服务
type RetentionService struct {
	registry  *connector.Registry
	snapshots *storage.SnapshotStore
	lock      distributed_lock.DistributedLock
	cron      *cron.Cron
	started   bool
}

// NewRetentionService 创建保留期清理服务
// lock可为nil，单副本部署时不需要防重
func NewRetentionService(registry *connector.Registry, snapshots *storage.SnapshotStore, lock distributed_lock.DistributedLock) *RetentionService {
	return &RetentionService{
		registry:  registry,
		snapshots: snapshots,
		lock:      lock,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// CleanupExpiredSnapshots 按各集成的保留天数清理一轮历史快照
func (s *RetentionService) CleanupExpiredSnapshots(ctx context.Context) (int64, error) {
	started := time.Now()
	var total int64

	for _, conn := range s.registry.GetAll() {
		integration := conn.Integration()
		retentionDays := integration.Config.DataRetentionDays
		if retentionDays < 1 {
			continue
		}

		removed, err := s.snapshots.Prune(integration.ID, retentionDays)
		if err != nil {
			slog.Error("清理历史快照失败",
				"integration", integration.ID,
				"retention_days", retentionDays,
				"error", err)
			continue
		}
		if removed > 0 {
			slog.Info("历史快照已清理",
				"integration", integration.ID,
				"removed", removed,
				"retention_days", retentionDays)
		}
		total += removed
	}

	slog.Info("保留期清理完成",
		"total_removed", total,
		"duration_ms", time.Since(started).Milliseconds())
	return total, nil
}

// Start 启动定时清理，每天凌晨2点执行
func (s *RetentionService) Start() error {
	if s.started {
		return fmt.Errorf("保留期清理调度器已经启动")
	}

	_, err := s.cron.AddFunc("0 0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupLockTTL)
		defer cancel()

		err := distributed_lock.ExecuteWithLock(ctx, s.lock, "snapshot-retention", cleanupLockTTL, func() error {
			_, err := s.CleanupExpiredSnapshots(ctx)
			return err
		})
		if err != nil {
			slog.Error("定时保留期清理失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("注册定时清理失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	slog.Info("保留期清理调度器已启动")
	return nil
}

// Stop 停止定时清理
func (s *RetentionService) Stop() {
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	slog.Info("保留期清理调度器已停止")
}
