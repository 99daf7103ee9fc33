/*
 * @module service/connector/base
 * @description 连接器基类，提供统一的Connect/Disconnect与模板方法Sync()，厂商连接器只实现差异能力
 * @architecture 模板方法模式 - 基类固定管道骨架，厂商通过self回引提供fetch/指标/洞察差异步骤
 * @documentReference ai_docs/connector_design.md
 * @stateFlow
 *   sync: 重入检查 -> connecting -> 凭证确认(至多一次刷新) -> 限流后带超时fetch
 *         -> 失败降级 -> 指标 -> 洞察 -> 告警 -> 健康分 -> 快照持久化 -> connected/error
 * @rules
 *   - 每个集成同一时刻至多一次sync在途，重入立即拒绝不排队
 *   - fetch失败绝不向上传播，一律转降级路径 + 非致命错误记录
 *   - 状态迁移不跳过connecting；指标一次性整体计算
 *   - 超时取消必须通过context传入fetch，落败调用被真正中止
 * @dependencies service/cache, service/rate_limiter, service/alert, service/models
 * @refs service/connector/slack_connector.go, service/connector/zoom_connector.go, service/manager
 */

package connector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"teampulse-service/service/alert"
	"teampulse-service/service/cache"
	"teampulse-service/service/models"
	"teampulse-service/service/rate_limiter"
)

// 默认fetch超时，可由Deps覆盖
const defaultFetchTimeout = 10 * time.Second

// HealthWeights 健康分权重
// 通用默认为 参与度30% / 响应时间反向25% / 倦怠反向25% / 凝聚力20%，
// 厂商连接器可声明不同权重
type HealthWeights struct {
	Engagement   float64
	ResponseTime float64
	Burnout      float64
	Cohesion     float64
}

// DefaultHealthWeights 通用默认权重
func DefaultHealthWeights() HealthWeights {
	return HealthWeights{
		Engagement:   0.30,
		ResponseTime: 0.25,
		Burnout:      0.25,
		Cohesion:     0.20,
	}
}

// Deps 连接器公共依赖，由引导层显式注入，不使用包级全局
type Deps struct {
	Cache        cache.Cache
	Limiter      rate_limiter.Limiter
	Fallback     *DegradedModeProvider
	Alerts       *alert.Engine
	Snapshots    SnapshotSink
	AlertSink    AlertSink
	Script       *ScriptExecutor
	FetchTimeout time.Duration
}

// BaseConnector 连接器基类
// self回引在厂商构造时指向具体实现，模板方法经self派发差异步骤
type BaseConnector struct {
	mu          sync.RWMutex
	integration *models.Integration
	deps        Deps
	weights     HealthWeights
	syncing     atomic.Bool
	self        Connector
}

// NewBaseConnector 创建连接器基类
func NewBaseConnector(integration *models.Integration, deps Deps, weights HealthWeights) *BaseConnector {
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = defaultFetchTimeout
	}
	if deps.Fallback == nil {
		deps.Fallback = NewDegradedModeProvider()
	}
	return &BaseConnector{
		integration: integration,
		deps:        deps,
		weights:     weights,
	}
}

// bind 绑定具体厂商实现的回引，厂商构造函数最后调用
func (b *BaseConnector) bind(self Connector) {
	b.self = self
}

// ID 集成唯一标识
func (b *BaseConnector) ID() string { return b.integration.ID }

// Name 集成显示名
func (b *BaseConnector) Name() string { return b.integration.Name }

// ServiceType 服务类型标识
func (b *BaseConnector) ServiceType() string { return b.integration.ServiceType }

// Integration 当前集成实体的独立副本
// 返回深拷贝而非共享指针，读侧在锁外安全使用；写入必须经本类型的加锁方法
func (b *BaseConnector) Integration() *models.Integration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.integration.Clone()
}

// Config 当前集成配置的独立副本
func (b *BaseConnector) Config() models.IntegrationConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.integration.Config.Clone()
}

// UpdateConfig 串行化写入集成配置
func (b *BaseConnector) UpdateConfig(config models.IntegrationConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integration.Config = config
	b.integration.UpdatedAt = time.Now()
}

// Status 当前集成状态
func (b *BaseConnector) Status() models.IntegrationStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.integration.Status
}

// HealthScore 当前健康分
func (b *BaseConnector) HealthScore() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.integration.HealthScore
}

// LastError 最近一次错误描述
func (b *BaseConnector) LastError() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.integration.LastError
}

// setStatus 串行化写入集成状态
func (b *BaseConnector) setStatus(status models.IntegrationStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integration.Status = status
	b.integration.UpdatedAt = time.Now()
}

// recordError 记录最近错误并累计错误数
func (b *BaseConnector) recordError(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integration.LastError = message
	b.integration.ErrorCount++
}

// Connect 校验并保存凭证
// 迁移路径 disconnected/error -> connecting -> connected(成功) / disconnected(失败丢弃凭证)
func (b *BaseConnector) Connect(ctx context.Context, credentials *models.Credentials) bool {
	b.setStatus(models.StatusConnecting)

	if credentials.IsEmpty() || !b.self.ValidateCredentials(ctx, credentials) {
		b.mu.Lock()
		b.integration.Credentials = nil
		b.integration.Status = models.StatusDisconnected
		b.integration.LastError = "凭证校验失败"
		b.integration.ErrorCount++
		b.mu.Unlock()

		slog.Warn("连接器认证失败", "integration", b.integration.ID, "service", b.integration.ServiceType)
		return false
	}

	b.mu.Lock()
	b.integration.Credentials = credentials
	b.integration.Status = models.StatusConnected
	b.integration.LastError = ""
	b.mu.Unlock()

	slog.Info("连接器已连接", "integration", b.integration.ID, "service", b.integration.ServiceType)
	return true
}

// Disconnect 清除凭证与缓存数据并迁移到disconnected
func (b *BaseConnector) Disconnect(ctx context.Context) bool {
	if b.deps.Cache != nil {
		if err := b.deps.Cache.Delete(ctx, b.activityCacheKey()); err != nil {
			slog.Warn("清理连接器缓存失败", "integration", b.integration.ID, "error", err)
		}
	}

	b.mu.Lock()
	b.integration.Credentials = nil
	b.integration.Status = models.StatusDisconnected
	b.mu.Unlock()

	slog.Info("连接器已断开", "integration", b.integration.ID)
	return true
}

// activityCacheKey 活动数据缓存键
func (b *BaseConnector) activityCacheKey() string {
	return fmt.Sprintf("activity:%s", b.integration.ID)
}

// Sync 模板方法，完整执行一次同步管道
// 厂商连接器不覆盖该方法，差异步骤经self回引派发
func (b *BaseConnector) Sync(ctx context.Context) (result *models.SyncResult) {
	// 步骤1：在途保护，重入立即拒绝，不发起上游调用
	if !b.syncing.CompareAndSwap(false, true) {
		return &models.SyncResult{
			Success:       false,
			IntegrationID: b.integration.ID,
			Errors:        []string{ErrAlreadySyncing.Error()},
		}
	}
	defer b.syncing.Store(false)

	start := time.Now()
	var syncErrors []string

	// 指标计算等步骤抛出异常时收敛为error状态，不向编排器外泄panic
	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("同步管道异常: %v", r)
			b.setStatus(models.StatusError)
			b.recordError(message)

			slog.Error("同步管道异常", "integration", b.integration.ID, "panic", r)

			result = &models.SyncResult{
				Success:       false,
				IntegrationID: b.integration.ID,
				Errors:        append(syncErrors, message),
				Duration:      time.Since(start),
			}
		}
	}()

	b.setStatus(models.StatusConnecting)

	// 步骤2：凭证确认，过期时至多刷新一次，刷新失败按未认证处理
	unauthenticated := b.ensureAuthenticated(ctx, &syncErrors)

	// 步骤3：带超时的fetch，失败/超时/未认证一律降级，该步骤绝不返回空数据
	activity, usedFallback := b.fetchOrFallback(ctx, unauthenticated, &syncErrors)
	if activity == nil {
		// 降级提供器按契约不会返回空，此处为双重失效兜底
		message := "上游拉取与降级路径均失败"
		b.setStatus(models.StatusError)
		b.recordError(message)
		return &models.SyncResult{
			Success:       false,
			IntegrationID: b.integration.ID,
			Errors:        append(syncErrors, message),
			Duration:      time.Since(start),
		}
	}

	activity = b.applyTransform(activity, &syncErrors)

	// 步骤4：指标 -> 洞察 -> 告警 -> 健康分，同一份活动快照一次性整体计算
	metrics := b.self.CalculateMetrics(activity)
	if err := metrics.Validate(); err != nil {
		panic(fmt.Sprintf("指标区间约束被破坏: %v", err))
	}
	insights := b.self.GenerateInsights(metrics)

	var alerts []models.AnalyticsAlert
	if b.deps.Alerts != nil {
		alerts = b.deps.Alerts.Evaluate(b.integration.ID, metrics)
	}

	healthScore := b.computeHealthScore(metrics)

	// 步骤5：快照持久化与集成状态更新
	now := time.Now()
	b.persistSnapshot(metrics, insights, alerts, healthScore, now, &syncErrors)

	b.mu.Lock()
	b.integration.SetHealthScore(healthScore)
	b.integration.Status = models.StatusConnected
	b.integration.LastSync = &now
	if usedFallback {
		b.integration.ErrorCount++
	} else {
		b.integration.LastError = ""
		b.integration.ErrorCount = 0
	}
	nextSync := now.Add(b.integration.SyncInterval())
	b.mu.Unlock()

	slog.Info("同步完成",
		"integration", b.integration.ID,
		"service", b.integration.ServiceType,
		"health_score", healthScore,
		"records", activity.Records,
		"fallback", usedFallback,
		"duration", time.Since(start))

	// 步骤6：汇总结果，降级路径作为非致命错误上报而非失败
	return &models.SyncResult{
		Success:          true,
		IntegrationID:    b.integration.ID,
		RecordsProcessed: activity.Records,
		Errors:           syncErrors,
		Duration:         time.Since(start),
		NextSync:         &nextSync,
		UsedFallback:     usedFallback,
	}
}

// ensureAuthenticated 凭证确认，返回是否处于未认证状态
func (b *BaseConnector) ensureAuthenticated(ctx context.Context, syncErrors *[]string) bool {
	b.mu.RLock()
	credentials := b.integration.Credentials
	b.mu.RUnlock()

	if credentials.IsEmpty() {
		return true
	}
	if !credentials.IsExpired() {
		return false
	}

	refresher, ok := b.self.(TokenRefresher)
	if !ok {
		*syncErrors = append(*syncErrors, "凭证已过期且连接器不支持刷新")
		return true
	}

	refreshed, err := refresher.RefreshToken(ctx, credentials)
	if err != nil {
		// 刷新失败不中止同步，按未认证走降级
		*syncErrors = append(*syncErrors, fmt.Sprintf("令牌刷新失败: %v", err))
		slog.Warn("令牌刷新失败", "integration", b.integration.ID, "error", err)
		return true
	}

	b.mu.Lock()
	b.integration.Credentials = refreshed
	b.mu.Unlock()
	return false
}

// fetchOrFallback 带超时fetch，任何失败转降级数据
// context超时传入fetch调用本身，落败调用被真正中止而不是后台遗留
func (b *BaseConnector) fetchOrFallback(ctx context.Context, unauthenticated bool, syncErrors *[]string) (*models.RawActivity, bool) {
	if unauthenticated {
		*syncErrors = append(*syncErrors, "未认证，使用降级数据")
		return b.deps.Fallback.Generate(b.Integration()), true
	}

	fetchCtx, cancel := context.WithTimeout(ctx, b.deps.FetchTimeout)
	defer cancel()

	activity, err := b.self.FetchData(fetchCtx)
	if err == nil && activity != nil {
		return activity, false
	}

	classified := Classify(err)
	message := fmt.Sprintf("上游拉取失败，使用降级数据: %v", classified)
	*syncErrors = append(*syncErrors, message)
	b.recordError(message)

	slog.Warn("上游拉取失败，进入降级模式",
		"integration", b.integration.ID,
		"service", b.integration.ServiceType,
		"error", classified)

	return b.deps.Fallback.Generate(b.Integration()), true
}

// applyTransform 执行可选的集成级转换脚本，失败时保留原始数据
func (b *BaseConnector) applyTransform(activity *models.RawActivity, syncErrors *[]string) *models.RawActivity {
	if b.deps.Script == nil {
		return activity
	}

	config := b.Config()
	script := config.CustomString("transform_script", "")
	if script == "" {
		return activity
	}

	transformed, err := b.deps.Script.Transform(script, activity)
	if err != nil {
		*syncErrors = append(*syncErrors, fmt.Sprintf("转换脚本执行失败: %v", err))
		slog.Warn("转换脚本执行失败", "integration", b.integration.ID, "error", err)
		return activity
	}
	return transformed
}

// computeHealthScore 加权健康分
// 响应分按 100 - 平均响应秒数/60 反向折算后收敛到非负
func (b *BaseConnector) computeHealthScore(m models.AnalyticsMetrics) int {
	responseScore := 100 - m.AvgResponseTime/60
	if responseScore < 0 {
		responseScore = 0
	}

	score := m.EngagementRate*100*b.weights.Engagement +
		responseScore*b.weights.ResponseTime +
		(100-m.BurnoutRisk)*b.weights.Burnout +
		m.TeamCohesion*b.weights.Cohesion

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// persistSnapshot 计算趋势并持久化分析快照，同时追加告警
// 持久化失败记为非致命错误，不影响本次同步成功
func (b *BaseConnector) persistSnapshot(metrics models.AnalyticsMetrics, insights []models.AnalyticsInsight,
	alerts []models.AnalyticsAlert, healthScore int, now time.Time, syncErrors *[]string) {

	if b.deps.AlertSink != nil && len(alerts) > 0 {
		if err := b.deps.AlertSink.AppendAlerts(alerts); err != nil {
			*syncErrors = append(*syncErrors, fmt.Sprintf("告警持久化失败: %v", err))
		}
	}

	if b.deps.Snapshots == nil {
		return
	}

	previous, err := b.deps.Snapshots.Latest(b.integration.ID)
	if err != nil {
		*syncErrors = append(*syncErrors, fmt.Sprintf("读取历史快照失败: %v", err))
	}

	snapshot := &models.AnalyticsSnapshot{
		IntegrationID: b.integration.ID,
		Metrics:       metrics,
		Insights:      insights,
		Alerts:        alerts,
		LastUpdated:   now,
		HealthScore:   healthScore,
		Trends:        buildTrends(previous, metrics),
	}

	if err := b.deps.Snapshots.Save(snapshot); err != nil {
		*syncErrors = append(*syncErrors, fmt.Sprintf("快照持久化失败: %v", err))
		slog.Error("快照持久化失败", "integration", b.integration.ID, "error", err)
	}
}

// buildTrends 对比上一快照计算头部指标趋势
func buildTrends(previous *models.AnalyticsSnapshot, current models.AnalyticsMetrics) []models.MetricTrend {
	if previous == nil {
		return nil
	}

	pairs := []struct {
		metric   string
		current  float64
		previous float64
	}{
		{"engagement_rate", current.EngagementRate, previous.Metrics.EngagementRate},
		{"burnout_risk", current.BurnoutRisk, previous.Metrics.BurnoutRisk},
		{"avg_response_time", current.AvgResponseTime, previous.Metrics.AvgResponseTime},
		{"team_cohesion", current.TeamCohesion, previous.Metrics.TeamCohesion},
		{"message_volume", float64(current.MessageVolume), float64(previous.Metrics.MessageVolume)},
	}

	trends := make([]models.MetricTrend, 0, len(pairs))
	for _, p := range pairs {
		trends = append(trends, models.MetricTrend{
			Metric:    p.metric,
			Current:   p.current,
			Previous:  p.previous,
			Direction: trendDirection(p.current, p.previous),
		})
	}
	return trends
}

// trendDirection 方向判定，微小波动视为持平
func trendDirection(current, previous float64) string {
	const epsilon = 1e-6
	switch {
	case current-previous > epsilon:
		return "up"
	case previous-current > epsilon:
		return "down"
	default:
		return "flat"
	}
}
