/*
 * @module service/manager/manager
 * @description 集成编排器，驱动全部连接器的连接/同步/断开，调度周期自动同步并对外发布生命周期事件
 * @architecture 编排器模式 - 进程内唯一协调点，启动时显式构造并按引用传递，不做包级单例
 * @documentReference ai_docs/manager_design.md
 * @stateFlow initialize建立连接器 -> connect/sync/disconnect按ID委派 -> syncAll并发扇出
 *            -> cron按集成间隔触发自动同步 -> 事件经总线广播
 * @rules
 *   - syncAll必须部分失败隔离：单个连接器的失败或panic不影响其余连接器
 *   - 自动同步注册幂等：重复注册先清除既有定时项
 *   - 编排器只依赖连接器契约，从不持有具体厂商类型
 * @dependencies github.com/robfig/cron/v3, github.com/google/uuid, service/connector, service/event, service/storage
 * @refs api/controllers, service/bootstrap.go
 */

package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"teampulse-service/service/connector"
	"teampulse-service/service/event"
	"teampulse-service/service/models"
	"teampulse-service/service/monitoring"
	"teampulse-service/service/storage"
)

// 每集成保留的同步历史条数
const syncHistoryLimit = 20

// Options 编排器依赖，由引导层显式注入
type Options struct {
	Factory   *connector.Factory
	Registry  *connector.Registry
	Bus       *event.Bus
	Store     *storage.IntegrationStore
	Snapshots connector.SnapshotSink
	Metrics   *monitoring.MetricsCollector
}

// Manager 集成编排器
type Manager struct {
	factory   *connector.Factory
	registry  *connector.Registry
	bus       *event.Bus
	store     *storage.IntegrationStore
	snapshots connector.SnapshotSink
	metrics   *monitoring.MetricsCollector

	cron    *cron.Cron
	cronMu  sync.Mutex
	entries map[string]cron.EntryID // integrationID -> 定时项

	historyMu sync.Mutex
	history   map[string][]*models.SyncResult
}

// NewManager 创建编排器
func NewManager(opts Options) *Manager {
	m := &Manager{
		factory:   opts.Factory,
		registry:  opts.Registry,
		bus:       opts.Bus,
		store:     opts.Store,
		snapshots: opts.Snapshots,
		metrics:   opts.Metrics,
		cron:      cron.New(cron.WithSeconds()),
		entries:   make(map[string]cron.EntryID),
		history:   make(map[string][]*models.SyncResult),
	}
	m.cron.Start()
	return m
}

// Initialize 按集成配置批量构建连接器并注册
func (m *Manager) Initialize(ctx context.Context, integrations []*models.Integration) error {
	for _, integration := range integrations {
		conn, err := m.factory.Create(integration)
		if err != nil {
			return fmt.Errorf("构建连接器失败 integration=%s: %w", integration.ID, err)
		}
		m.registry.Add(conn)

		if m.store != nil {
			if err := m.store.SaveIntegration(integration); err != nil {
				return fmt.Errorf("持久化集成失败 integration=%s: %w", integration.ID, err)
			}
		}

		slog.Info("集成已注册",
			"integration", integration.ID,
			"name", integration.Name,
			"service", integration.ServiceType)
	}
	return nil
}

// AddIntegration 运行期新增集成
func (m *Manager) AddIntegration(ctx context.Context, integration *models.Integration) (connector.Connector, error) {
	// 注册表按ID索引，ID必须在入注册表前确定
	if integration.ID == "" {
		integration.ID = uuid.New().String()
	}

	conn, err := m.factory.Create(integration)
	if err != nil {
		return nil, err
	}
	m.registry.Add(conn)

	if m.store != nil {
		if err := m.store.SaveIntegration(integration); err != nil {
			return nil, fmt.Errorf("持久化集成失败: %w", err)
		}
	}
	return conn, nil
}

// RemoveIntegration 移除集成，先断开再出注册表
func (m *Manager) RemoveIntegration(ctx context.Context, integrationID string) error {
	conn, exists := m.registry.Get(integrationID)
	if !exists {
		return fmt.Errorf("集成不存在: %s", integrationID)
	}

	if conn.Status() != models.StatusDisconnected {
		m.Disconnect(ctx, integrationID)
	}
	m.registry.Remove(integrationID)

	if m.store != nil {
		return m.store.DeleteIntegration(integrationID)
	}
	return nil
}

// Connect 委派指定连接器建立连接
func (m *Manager) Connect(ctx context.Context, integrationID string, credentials *models.Credentials) (bool, error) {
	conn, exists := m.registry.Get(integrationID)
	if !exists {
		return false, fmt.Errorf("集成不存在: %s", integrationID)
	}

	m.publish(models.EventConnecting, integrationID, nil)

	ok := conn.Connect(ctx, credentials)
	if !ok {
		m.publish(models.EventConnectionFailed, integrationID, models.JSONB{
			"error": conn.LastError(),
		})
		m.persist(conn)
		return false, nil
	}

	m.publish(models.EventConnected, integrationID, models.JSONB{
		"service_type": conn.ServiceType(),
	})

	m.scheduleAutoSync(conn)
	m.persist(conn)
	m.updateConnectedGauge()
	return true, nil
}

// Disconnect 委派指定连接器断开
func (m *Manager) Disconnect(ctx context.Context, integrationID string) (bool, error) {
	conn, exists := m.registry.Get(integrationID)
	if !exists {
		return false, fmt.Errorf("集成不存在: %s", integrationID)
	}

	m.publish(models.EventDisconnecting, integrationID, nil)
	m.stopAutoSync(integrationID)

	ok := conn.Disconnect(ctx)
	m.publish(models.EventDisconnected, integrationID, nil)

	m.persist(conn)
	m.updateConnectedGauge()
	return ok, nil
}

// Sync 委派指定连接器执行一次同步并广播结果
func (m *Manager) Sync(ctx context.Context, integrationID string) (*models.SyncResult, error) {
	conn, exists := m.registry.Get(integrationID)
	if !exists {
		return nil, fmt.Errorf("集成不存在: %s", integrationID)
	}
	if !conn.Integration().CanSync() {
		return nil, fmt.Errorf("集成当前状态不允许同步: %s", conn.Status())
	}

	m.publish(models.EventSyncStarted, integrationID, nil)

	result := conn.Sync(ctx)
	m.recordResult(conn, result)

	if result.Success {
		m.publish(models.EventSyncCompleted, integrationID, models.JSONB{
			"records_processed": result.RecordsProcessed,
			"used_fallback":     result.UsedFallback,
			"duration_ms":       result.Duration.Milliseconds(),
		})
		// 降级等非致命错误单独广播，便于UI区分提示
		if len(result.Errors) > 0 {
			m.publish(models.EventSyncError, integrationID, models.JSONB{
				"errors": result.Errors,
			})
		}
	} else {
		m.publish(models.EventSyncFailed, integrationID, models.JSONB{
			"errors": result.Errors,
		})
	}

	m.persist(conn)
	return result, nil
}

// SyncAll 并发扇出同步全部connected连接器
// 部分失败隔离：单个连接器的失败或panic收敛为其结果条目
func (m *Manager) SyncAll(ctx context.Context) []*models.SyncResult {
	connected := m.registry.GetConnected()

	m.publish(models.EventSyncAllStarted, "", models.JSONB{
		"total": len(connected),
	})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*models.SyncResult, 0, len(connected))
	)

	for _, conn := range connected {
		wg.Add(1)
		go func(c connector.Connector) {
			defer wg.Done()

			var result *models.SyncResult
			func() {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("连接器同步panic", "integration", c.ID(), "panic", r)
						result = &models.SyncResult{
							Success:       false,
							IntegrationID: c.ID(),
							Errors:        []string{fmt.Sprintf("同步panic: %v", r)},
						}
					}
				}()
				result = c.Sync(ctx)
			}()

			m.recordResult(c, result)
			m.persist(c)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(conn)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	m.publish(models.EventSyncAllCompleted, "", models.JSONB{
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})

	sort.Slice(results, func(i, j int) bool { return results[i].IntegrationID < results[j].IntegrationID })
	return results
}

// GetHealthScore 返回单集成健康分，或全体connected集成的算术平均（忽略非正分）
func (m *Manager) GetHealthScore(integrationID string) (float64, error) {
	if integrationID != "" {
		conn, exists := m.registry.Get(integrationID)
		if !exists {
			return 0, fmt.Errorf("集成不存在: %s", integrationID)
		}
		return float64(conn.HealthScore()), nil
	}

	var sum, count float64
	for _, conn := range m.registry.GetConnected() {
		if score := conn.HealthScore(); score > 0 {
			sum += float64(score)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / count, nil
}

// GetInsights 聚合洞察并按影响级别排序
// integrationID为空时聚合全部connected集成的最新快照
func (m *Manager) GetInsights(integrationID string) ([]models.AnalyticsInsight, error) {
	if m.snapshots == nil {
		return nil, fmt.Errorf("快照存储未配置")
	}

	var targets []connector.Connector
	if integrationID != "" {
		conn, exists := m.registry.Get(integrationID)
		if !exists {
			return nil, fmt.Errorf("集成不存在: %s", integrationID)
		}
		targets = []connector.Connector{conn}
	} else {
		targets = m.registry.GetConnected()
	}

	insights := make([]models.AnalyticsInsight, 0)
	for _, conn := range targets {
		snapshot, err := m.snapshots.Latest(conn.ID())
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			insights = append(insights, snapshot.Insights...)
		}
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Impact.Rank() != insights[j].Impact.Rank() {
			return insights[i].Impact.Rank() > insights[j].Impact.Rank()
		}
		return insights[i].CreatedAt.After(insights[j].CreatedAt)
	})
	return insights, nil
}

// GetAlerts 查询告警并按级别排序
func (m *Manager) GetAlerts(integrationID string, includeResolved bool, limit int) ([]models.AnalyticsAlert, error) {
	if m.store == nil {
		return nil, fmt.Errorf("集成存储未配置")
	}

	alerts, err := m.store.ListAlerts(integrationID, includeResolved, limit)
	if err != nil {
		return nil, err
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// UpdateSettings 更新集成配置并重排自动同步
func (m *Manager) UpdateSettings(ctx context.Context, integrationID string, config models.IntegrationConfig) error {
	conn, exists := m.registry.Get(integrationID)
	if !exists {
		return fmt.Errorf("集成不存在: %s", integrationID)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}

	conn.UpdateConfig(config)

	// 间隔可能变化，重排定时项（注册幂等）
	if conn.Status() == models.StatusConnected {
		m.scheduleAutoSync(conn)
	}

	m.persist(conn)
	m.publish(models.EventSettingsUpdated, integrationID, models.JSONB{
		"sync_interval_minutes": config.SyncIntervalMinutes,
	})
	return nil
}

// SyncHistory 返回集成最近的同步结果
func (m *Manager) SyncHistory(integrationID string) []*models.SyncResult {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	history := m.history[integrationID]
	out := make([]*models.SyncResult, len(history))
	copy(out, history)
	return out
}

// Registry 暴露注册表只读访问
func (m *Manager) Registry() *connector.Registry {
	return m.registry
}

// Stop 停止编排器，等待在途定时任务结束
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	slog.Info("编排器已停止")
}

// scheduleAutoSync 注册周期自动同步，重复注册先清除既有定时项
func (m *Manager) scheduleAutoSync(conn connector.Connector) {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	integrationID := conn.ID()
	if entryID, exists := m.entries[integrationID]; exists {
		m.cron.Remove(entryID)
		delete(m.entries, integrationID)
	}

	interval := conn.Integration().SyncInterval()
	spec := fmt.Sprintf("@every %s", interval)

	entryID, err := m.cron.AddFunc(spec, func() {
		if _, err := m.Sync(context.Background(), integrationID); err != nil {
			slog.Warn("自动同步未执行", "integration", integrationID, "error", err)
		}
	})
	if err != nil {
		slog.Error("注册自动同步失败", "integration", integrationID, "spec", spec, "error", err)
		return
	}

	m.entries[integrationID] = entryID
	slog.Info("自动同步已注册", "integration", integrationID, "interval", interval)
}

// stopAutoSync 清除集成的自动同步定时项，幂等
func (m *Manager) stopAutoSync(integrationID string) {
	m.cronMu.Lock()
	defer m.cronMu.Unlock()

	if entryID, exists := m.entries[integrationID]; exists {
		m.cron.Remove(entryID)
		delete(m.entries, integrationID)
	}
}

// recordResult 记录同步历史与监控指标
func (m *Manager) recordResult(conn connector.Connector, result *models.SyncResult) {
	if result == nil {
		return
	}

	m.historyMu.Lock()
	history := append(m.history[conn.ID()], result)
	if len(history) > syncHistoryLimit {
		history = history[len(history)-syncHistoryLimit:]
	}
	m.history[conn.ID()] = history
	m.historyMu.Unlock()

	if m.metrics != nil {
		m.metrics.ObserveSync(conn.ServiceType(), result)
		m.metrics.SetHealthScore(conn.ID(), conn.ServiceType(), conn.HealthScore())
	}
}

// publish 发布生命周期事件
func (m *Manager) publish(eventType models.EventType, integrationID string, payload models.JSONB) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(models.NewLifecycleEvent(eventType, integrationID, payload))
}

// persist 把集成当前状态写回存储
func (m *Manager) persist(conn connector.Connector) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveIntegration(conn.Integration()); err != nil {
		slog.Error("持久化集成状态失败", "integration", conn.ID(), "error", err)
	}
}

// updateConnectedGauge 刷新connected集成数指标
func (m *Manager) updateConnectedGauge() {
	if m.metrics != nil {
		m.metrics.SetConnectedCount(len(m.registry.GetConnected()))
	}
}
