/*
 * @module service/manager/manager_test
 * @description 集成编排器的单元测试
 * @architecture 测试驱动开发 - 桩连接器直接入注册表，验证编排与事件广播
 * @documentReference ai_docs/manager_design.md
 * @stateFlow 桩连接器注册 -> 编排操作 -> 事件/历史/定时项断言
 * @rules syncAll必须部分失败隔离；自动同步注册必须幂等
 * @dependencies testing, testify, robfig/cron
 * @refs manager.go, dashboard.go
 */

package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse-service/service/connector"
	"teampulse-service/service/event"
	"teampulse-service/service/models"
)

// stubConnector 编排器测试用桩连接器
type stubConnector struct {
	integration *models.Integration
	connectOK   bool
	lastError   string
	syncFn      func(ctx context.Context) *models.SyncResult
}

func newStub(id string, status models.IntegrationStatus) *stubConnector {
	return &stubConnector{
		integration: &models.Integration{
			ID:          id,
			Name:        "桩集成 " + id,
			ServiceType: models.ServiceTypeSlack,
			Status:      status,
			Config: models.IntegrationConfig{
				DataRetentionDays:   30,
				SyncIntervalMinutes: 15,
			},
		},
		connectOK: true,
	}
}

func (s *stubConnector) ID() string                       { return s.integration.ID }
func (s *stubConnector) Name() string                     { return s.integration.Name }
func (s *stubConnector) ServiceType() string              { return s.integration.ServiceType }
func (s *stubConnector) Integration() *models.Integration { return s.integration.Clone() }
func (s *stubConnector) Status() models.IntegrationStatus { return s.integration.Status }
func (s *stubConnector) HealthScore() int                 { return s.integration.HealthScore }
func (s *stubConnector) LastError() string                { return s.lastError }

func (s *stubConnector) UpdateConfig(config models.IntegrationConfig) {
	s.integration.Config = config
}

func (s *stubConnector) Connect(ctx context.Context, credentials *models.Credentials) bool {
	if !s.connectOK {
		s.lastError = "凭证校验失败"
		s.integration.Status = models.StatusDisconnected
		return false
	}
	s.integration.Status = models.StatusConnected
	return true
}

func (s *stubConnector) Disconnect(ctx context.Context) bool {
	s.integration.Status = models.StatusDisconnected
	return true
}

func (s *stubConnector) ValidateCredentials(ctx context.Context, credentials *models.Credentials) bool {
	return s.connectOK
}

func (s *stubConnector) FetchData(ctx context.Context) (*models.RawActivity, error) {
	return &models.RawActivity{}, nil
}

func (s *stubConnector) CalculateMetrics(activity *models.RawActivity) models.AnalyticsMetrics {
	return models.AnalyticsMetrics{}
}

func (s *stubConnector) GenerateInsights(metrics models.AnalyticsMetrics) []models.AnalyticsInsight {
	return nil
}

func (s *stubConnector) Sync(ctx context.Context) *models.SyncResult {
	if s.syncFn != nil {
		return s.syncFn(ctx)
	}
	return &models.SyncResult{Success: true, IntegrationID: s.ID(), RecordsProcessed: 10}
}

// eventRecorder 收集总线事件，供断言轮询
type eventRecorder struct {
	mu     sync.Mutex
	events []*models.LifecycleEvent
}

func recordEvents(b *event.Bus) *eventRecorder {
	r := &eventRecorder{}
	b.Subscribe(func(evt *models.LifecycleEvent) {
		r.mu.Lock()
		r.events = append(r.events, evt)
		r.mu.Unlock()
	})
	return r
}

// waitFor 轮询等待指定类型事件出现
func (r *eventRecorder) waitFor(t *testing.T, eventType models.EventType) *models.LifecycleEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, evt := range r.events {
			if evt.Type == eventType {
				r.mu.Unlock()
				return evt
			}
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("事件未在超时前出现: %s", eventType)
	return nil
}

// has 非阻塞检查事件是否已出现
func (r *eventRecorder) has(eventType models.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, evt := range r.events {
		if evt.Type == eventType {
			return true
		}
	}
	return false
}

// memorySink 内存快照槽
type memorySink struct {
	mu        sync.Mutex
	snapshots map[string]*models.AnalyticsSnapshot
}

func newMemorySink() *memorySink {
	return &memorySink{snapshots: make(map[string]*models.AnalyticsSnapshot)}
}

func (s *memorySink) Save(snapshot *models.AnalyticsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.IntegrationID] = snapshot
	return nil
}

func (s *memorySink) Latest(integrationID string) (*models.AnalyticsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[integrationID], nil
}

// newTestManager 创建无持久化的编排器与事件记录器
func newTestManager(t *testing.T, sink connector.SnapshotSink) (*Manager, *eventRecorder) {
	t.Helper()
	bus := event.NewBus()
	m := NewManager(Options{
		Registry:  connector.NewRegistry(),
		Bus:       bus,
		Snapshots: sink,
	})
	t.Cleanup(m.Stop)
	return m, recordEvents(bus)
}

// TestConnectSchedulesAutoSync 测试连接成功后注册自动同步
func TestConnectSchedulesAutoSync(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusDisconnected)
	m.registry.Add(stub)

	ok, err := m.Connect(context.Background(), "int-1", &models.Credentials{AccessToken: "t"})
	require.NoError(t, err)
	assert.True(t, ok)

	events.waitFor(t, models.EventConnecting)
	evt := events.waitFor(t, models.EventConnected)
	assert.Equal(t, "int-1", evt.IntegrationID)
	assert.Equal(t, models.ServiceTypeSlack, evt.Payload["service_type"])

	m.cronMu.Lock()
	assert.Len(t, m.entries, 1)
	m.cronMu.Unlock()
}

// TestAutoSyncFiresOnInterval 测试注册的定时项确实按间隔触发同步
// 秒级间隔覆盖供短周期验证，断言至少两次自动触发
func TestAutoSyncFiresOnInterval(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusDisconnected)
	stub.integration.Config.CustomSettings = models.JSONB{"sync_interval_seconds": 1}

	var syncs atomic.Int32
	stub.syncFn = func(ctx context.Context) *models.SyncResult {
		syncs.Add(1)
		return &models.SyncResult{Success: true, IntegrationID: "int-1", RecordsProcessed: 1}
	}
	m.registry.Add(stub)

	ok, err := m.Connect(context.Background(), "int-1", &models.Credentials{AccessToken: "t"})
	require.NoError(t, err)
	require.True(t, ok)

	deadline := time.Now().Add(5 * time.Second)
	for syncs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	require.GreaterOrEqual(t, syncs.Load(), int32(2), "定时项未按间隔触发同步")

	events.waitFor(t, models.EventSyncStarted)
	events.waitFor(t, models.EventSyncCompleted)

	// 自动同步与手动同步共用历史记录
	assert.GreaterOrEqual(t, len(m.SyncHistory("int-1")), 2)
}

// TestConnectFailure 测试连接失败的事件与定时项
func TestConnectFailure(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusDisconnected)
	stub.connectOK = false
	m.registry.Add(stub)

	ok, err := m.Connect(context.Background(), "int-1", &models.Credentials{AccessToken: "bad"})
	require.NoError(t, err)
	assert.False(t, ok)

	evt := events.waitFor(t, models.EventConnectionFailed)
	assert.Equal(t, "凭证校验失败", evt.Payload["error"])

	m.cronMu.Lock()
	assert.Empty(t, m.entries)
	m.cronMu.Unlock()
}

// TestConnectUnknownIntegration 测试未知集成报错
func TestConnectUnknownIntegration(t *testing.T) {
	m, _ := newTestManager(t, nil)

	_, err := m.Connect(context.Background(), "ghost", nil)
	assert.Error(t, err)
}

// TestDisconnectRemovesSchedule 测试断开清除自动同步
func TestDisconnectRemovesSchedule(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusDisconnected)
	m.registry.Add(stub)

	_, err := m.Connect(context.Background(), "int-1", &models.Credentials{AccessToken: "t"})
	require.NoError(t, err)

	ok, err := m.Disconnect(context.Background(), "int-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StatusDisconnected, stub.Status())

	events.waitFor(t, models.EventDisconnecting)
	events.waitFor(t, models.EventDisconnected)

	m.cronMu.Lock()
	assert.Empty(t, m.entries)
	m.cronMu.Unlock()
}

// TestSyncGatesOnStatus 测试状态守卫阻止同步
func TestSyncGatesOnStatus(t *testing.T) {
	m, events := newTestManager(t, nil)
	m.registry.Add(newStub("int-1", models.StatusDisconnected))

	_, err := m.Sync(context.Background(), "int-1")
	require.Error(t, err)
	assert.False(t, events.has(models.EventSyncStarted))
}

// TestSyncPublishesCompletedAndError 测试成功同步的事件序列
// 降级等非致命错误在sync_completed之外单独广播sync_error
func TestSyncPublishesCompletedAndError(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusConnected)
	stub.syncFn = func(ctx context.Context) *models.SyncResult {
		return &models.SyncResult{
			Success:          true,
			IntegrationID:    "int-1",
			RecordsProcessed: 320,
			UsedFallback:     true,
			Errors:           []string{"上游超时，使用降级数据"},
		}
	}
	m.registry.Add(stub)

	result, err := m.Sync(context.Background(), "int-1")
	require.NoError(t, err)
	assert.True(t, result.Success)

	events.waitFor(t, models.EventSyncStarted)
	completed := events.waitFor(t, models.EventSyncCompleted)
	assert.Equal(t, 320, completed.Payload["records_processed"])
	assert.Equal(t, true, completed.Payload["used_fallback"])
	events.waitFor(t, models.EventSyncError)
	assert.False(t, events.has(models.EventSyncFailed))
}

// TestSyncFailedEvent 测试失败同步广播sync_failed
func TestSyncFailedEvent(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusConnected)
	stub.syncFn = func(ctx context.Context) *models.SyncResult {
		return &models.SyncResult{Success: false, IntegrationID: "int-1", Errors: []string{"指标越界"}}
	}
	m.registry.Add(stub)

	result, err := m.Sync(context.Background(), "int-1")
	require.NoError(t, err)
	assert.False(t, result.Success)

	events.waitFor(t, models.EventSyncFailed)
	assert.False(t, events.has(models.EventSyncCompleted))
}

// TestSyncAllPartialFailureIsolation 测试全量同步的部分失败隔离
// 单个连接器panic收敛为其结果条目，不影响其余连接器
func TestSyncAllPartialFailureIsolation(t *testing.T) {
	m, events := newTestManager(t, nil)

	healthy := newStub("int-a", models.StatusConnected)
	failing := newStub("int-b", models.StatusConnected)
	failing.syncFn = func(ctx context.Context) *models.SyncResult {
		return &models.SyncResult{Success: false, IntegrationID: "int-b", Errors: []string{"上游不可达"}}
	}
	panicking := newStub("int-c", models.StatusConnected)
	panicking.syncFn = func(ctx context.Context) *models.SyncResult {
		panic("连接器内部异常")
	}
	m.registry.Add(healthy)
	m.registry.Add(failing)
	m.registry.Add(panicking)

	var results []*models.SyncResult
	require.NotPanics(t, func() {
		results = m.SyncAll(context.Background())
	})
	require.Len(t, results, 3)

	// 结果按集成ID排序
	assert.Equal(t, "int-a", results[0].IntegrationID)
	assert.Equal(t, "int-b", results[1].IntegrationID)
	assert.Equal(t, "int-c", results[2].IntegrationID)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.False(t, results[2].Success)
	require.NotEmpty(t, results[2].Errors)
	assert.Contains(t, results[2].Errors[0], "panic")

	events.waitFor(t, models.EventSyncAllStarted)
	completed := events.waitFor(t, models.EventSyncAllCompleted)
	assert.Equal(t, 3, completed.Payload["total"])
	assert.Equal(t, 1, completed.Payload["succeeded"])
	assert.Equal(t, 2, completed.Payload["failed"])
}

// TestSyncAllSkipsDisconnected 测试全量同步只覆盖connected集成
func TestSyncAllSkipsDisconnected(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.registry.Add(newStub("int-a", models.StatusConnected))
	m.registry.Add(newStub("int-b", models.StatusDisconnected))

	results := m.SyncAll(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "int-a", results[0].IntegrationID)
}

// TestGetHealthScoreMean 测试舰队健康分取正分均值
func TestGetHealthScoreMean(t *testing.T) {
	m, _ := newTestManager(t, nil)

	high := newStub("int-a", models.StatusConnected)
	high.integration.HealthScore = 90
	low := newStub("int-b", models.StatusConnected)
	low.integration.HealthScore = 80
	// 未同步过的集成健康分为0，不计入均值
	fresh := newStub("int-c", models.StatusConnected)
	m.registry.Add(high)
	m.registry.Add(low)
	m.registry.Add(fresh)

	mean, err := m.GetHealthScore("")
	require.NoError(t, err)
	assert.InDelta(t, 85, mean, 1e-9)

	single, err := m.GetHealthScore("int-a")
	require.NoError(t, err)
	assert.InDelta(t, 90, single, 1e-9)

	_, err = m.GetHealthScore("ghost")
	assert.Error(t, err)
}

// TestGetHealthScoreEmptyFleet 测试无可用健康分时返回0
func TestGetHealthScoreEmptyFleet(t *testing.T) {
	m, _ := newTestManager(t, nil)

	mean, err := m.GetHealthScore("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, mean)
}

// TestGetInsightsSortedByImpact 测试洞察按影响级别降序聚合
func TestGetInsightsSortedByImpact(t *testing.T) {
	sink := newMemorySink()
	m, _ := newTestManager(t, sink)

	m.registry.Add(newStub("int-a", models.StatusConnected))
	m.registry.Add(newStub("int-b", models.StatusConnected))

	now := time.Now()
	require.NoError(t, sink.Save(&models.AnalyticsSnapshot{
		IntegrationID: "int-a",
		Insights: []models.AnalyticsInsight{
			{Title: "参与度正常", Impact: models.ImpactLow, CreatedAt: now},
			{Title: "倦怠临界", Impact: models.ImpactCritical, CreatedAt: now},
		},
	}))
	require.NoError(t, sink.Save(&models.AnalyticsSnapshot{
		IntegrationID: "int-b",
		Insights: []models.AnalyticsInsight{
			{Title: "响应偏慢", Impact: models.ImpactHigh, CreatedAt: now},
		},
	}))

	insights, err := m.GetInsights("")
	require.NoError(t, err)
	require.Len(t, insights, 3)
	assert.Equal(t, "倦怠临界", insights[0].Title)
	assert.Equal(t, "响应偏慢", insights[1].Title)
	assert.Equal(t, "参与度正常", insights[2].Title)

	// 单集成过滤
	only, err := m.GetInsights("int-b")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "响应偏慢", only[0].Title)
}

// TestUpdateSettingsReschedules 测试配置更新幂等重排定时项
func TestUpdateSettingsReschedules(t *testing.T) {
	m, events := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusDisconnected)
	m.registry.Add(stub)

	_, err := m.Connect(context.Background(), "int-1", &models.Credentials{AccessToken: "t"})
	require.NoError(t, err)

	err = m.UpdateSettings(context.Background(), "int-1", models.IntegrationConfig{
		DataRetentionDays:   60,
		SyncIntervalMinutes: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, stub.integration.Config.SyncIntervalMinutes)

	evt := events.waitFor(t, models.EventSettingsUpdated)
	assert.Equal(t, 5, evt.Payload["sync_interval_minutes"])

	// 重排不叠加定时项
	m.cronMu.Lock()
	assert.Len(t, m.entries, 1)
	m.cronMu.Unlock()
}

// TestUpdateSettingsRejectsInvalid 测试非法配置被拒绝
func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	m, _ := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusConnected)
	m.registry.Add(stub)

	err := m.UpdateSettings(context.Background(), "int-1", models.IntegrationConfig{
		DataRetentionDays:   0,
		SyncIntervalMinutes: 15,
	})
	assert.Error(t, err)
	assert.NotEqual(t, 0, stub.integration.Config.DataRetentionDays)
}

// TestSyncHistoryRing 测试同步历史保留上限
func TestSyncHistoryRing(t *testing.T) {
	m, _ := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusConnected)
	seq := 0
	stub.syncFn = func(ctx context.Context) *models.SyncResult {
		seq++
		return &models.SyncResult{Success: true, IntegrationID: "int-1", RecordsProcessed: seq}
	}
	m.registry.Add(stub)

	for i := 0; i < syncHistoryLimit+5; i++ {
		_, err := m.Sync(context.Background(), "int-1")
		require.NoError(t, err)
	}

	history := m.SyncHistory("int-1")
	require.Len(t, history, syncHistoryLimit)
	// 最旧的5条被淘汰
	assert.Equal(t, 6, history[0].RecordsProcessed)
	assert.Equal(t, syncHistoryLimit+5, history[len(history)-1].RecordsProcessed)

	assert.Empty(t, m.SyncHistory("ghost"))
}

// TestRemoveIntegration 测试移除集成先断开再出注册表
func TestRemoveIntegration(t *testing.T) {
	m, _ := newTestManager(t, nil)
	stub := newStub("int-1", models.StatusDisconnected)
	m.registry.Add(stub)

	_, err := m.Connect(context.Background(), "int-1", &models.Credentials{AccessToken: "t"})
	require.NoError(t, err)

	require.NoError(t, m.RemoveIntegration(context.Background(), "int-1"))
	assert.Equal(t, models.StatusDisconnected, stub.Status())
	_, exists := m.registry.Get("int-1")
	assert.False(t, exists)

	m.cronMu.Lock()
	assert.Empty(t, m.entries)
	m.cronMu.Unlock()

	assert.Error(t, m.RemoveIntegration(context.Background(), "int-1"))
}

// TestInitializeBuildsConnectors 测试批量初始化经工厂构建连接器
func TestInitializeBuildsConnectors(t *testing.T) {
	registry := connector.NewRegistry()
	m := NewManager(Options{
		Factory:  connector.NewFactory(connector.Deps{}),
		Registry: registry,
		Bus:      event.NewBus(),
	})
	t.Cleanup(m.Stop)

	integrations := []*models.Integration{
		newStub("int-slack", models.StatusDisconnected).integration,
	}
	integrations[0].ServiceType = models.ServiceTypeSlack

	require.NoError(t, m.Initialize(context.Background(), integrations))
	assert.Equal(t, 1, registry.Len())

	// 未知服务类型中断初始化
	bad := newStub("int-bad", models.StatusDisconnected).integration
	bad.ServiceType = "teams"
	assert.Error(t, m.Initialize(context.Background(), []*models.Integration{bad}))
}

// TestGetDashboardData 测试仪表盘聚合
func TestGetDashboardData(t *testing.T) {
	sink := newMemorySink()
	m, _ := newTestManager(t, sink)

	connected := newStub("int-a", models.StatusConnected)
	connected.integration.HealthScore = 90
	idle := newStub("int-b", models.StatusDisconnected)
	m.registry.Add(connected)
	m.registry.Add(idle)

	require.NoError(t, sink.Save(&models.AnalyticsSnapshot{
		IntegrationID: "int-a",
		Metrics: models.AnalyticsMetrics{
			MessageVolume:  320,
			EngagementRate: 0.9,
			BurnoutRisk:    10,
		},
		Insights: []models.AnalyticsInsight{
			{Title: "团队健康", Impact: models.ImpactLow, CreatedAt: time.Now()},
		},
	}))

	data, err := m.GetDashboardData()
	require.NoError(t, err)

	assert.Equal(t, 2, data.TotalIntegrations)
	assert.Equal(t, 1, data.ConnectedIntegrations)
	assert.Equal(t, 90, data.OverallHealthScore)
	require.Len(t, data.IntegrationStatus, 2)
	require.Len(t, data.RecentInsights, 1)

	require.Len(t, data.TopMetrics, 4)
	byName := make(map[string]float64, len(data.TopMetrics))
	for _, metric := range data.TopMetrics {
		byName[metric.Name] = metric.Value
	}
	assert.InDelta(t, 0.9, byName["avg_engagement_rate"], 1e-9)
	assert.InDelta(t, 10, byName["avg_burnout_risk"], 1e-9)
	assert.InDelta(t, 320, byName["total_message_volume"], 1e-9)
	assert.False(t, data.GeneratedAt.IsZero())
}

// TestGetDashboardDataEmpty 测试空注册表仪表盘可渲染
func TestGetDashboardDataEmpty(t *testing.T) {
	m, _ := newTestManager(t, nil)

	data, err := m.GetDashboardData()
	require.NoError(t, err)
	assert.Equal(t, 0, data.TotalIntegrations)
	assert.Equal(t, 0, data.OverallHealthScore)
	assert.NotNil(t, data.IntegrationStatus)
	assert.NotNil(t, data.RecentInsights)
	assert.Empty(t, data.TopMetrics)
}

var _ connector.Connector = (*stubConnector)(nil)
