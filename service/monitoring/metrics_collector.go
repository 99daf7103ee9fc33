/*
 * @module service/monitoring/metrics_collector
 * @description Prometheus指标收集器，跟踪同步次数/时长/降级、健康分与告警产出
 * @architecture 分层架构 - 监控层，独立Registry随服务显式构造
 * @documentReference ai_docs/monitoring_design.md
 * @stateFlow 同步完成 -> ObserveSync打点 / 告警产出 -> AddAlerts计数 -> /metrics暴露
 * @rules 指标收集不得影响同步主流程；不使用包级默认Registry
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs service/manager, main.go
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"teampulse-service/service/models"
)

// MetricsCollector Prometheus指标收集器
type MetricsCollector struct {
	registry *prometheus.Registry

	syncTotal     *prometheus.CounterVec
	fallbackTotal *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	healthScore   *prometheus.GaugeVec
	alertsTotal   *prometheus.CounterVec
	connected     prometheus.Gauge
}

// NewMetricsCollector 创建指标收集器，指标注册在独立Registry上
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	c := &MetricsCollector{
		registry: registry,
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teampulse",
			Name:      "sync_total",
			Help:      "同步执行次数，按集成/服务类型/结果分类",
		}, []string{"integration", "service_type", "result"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teampulse",
			Name:      "sync_fallback_total",
			Help:      "降级数据路径触发次数",
		}, []string{"integration", "service_type"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teampulse",
			Name:      "sync_duration_seconds",
			Help:      "单次同步耗时分布",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"integration", "service_type"}),
		healthScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "teampulse",
			Name:      "health_score",
			Help:      "各集成当前健康分",
		}, []string{"integration", "service_type"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teampulse",
			Name:      "alerts_total",
			Help:      "告警产出次数，按级别分类",
		}, []string{"severity"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "teampulse",
			Name:      "connected_integrations",
			Help:      "当前处于connected状态的集成数",
		}),
	}

	registry.MustRegister(
		c.syncTotal,
		c.fallbackTotal,
		c.syncDuration,
		c.healthScore,
		c.alertsTotal,
		c.connected,
	)
	return c
}

// Registry 返回底层Registry，供promhttp挂载
func (c *MetricsCollector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSync 记录一次同步结果
func (c *MetricsCollector) ObserveSync(serviceType string, result *models.SyncResult) {
	if result == nil {
		return
	}

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	c.syncTotal.WithLabelValues(result.IntegrationID, serviceType, outcome).Inc()
	c.syncDuration.WithLabelValues(result.IntegrationID, serviceType).Observe(result.Duration.Seconds())

	if result.UsedFallback {
		c.fallbackTotal.WithLabelValues(result.IntegrationID, serviceType).Inc()
	}
}

// SetHealthScore 更新集成健康分
func (c *MetricsCollector) SetHealthScore(integrationID, serviceType string, score int) {
	c.healthScore.WithLabelValues(integrationID, serviceType).Set(float64(score))
}

// AddAlerts 按级别累计告警产出
func (c *MetricsCollector) AddAlerts(alerts []models.AnalyticsAlert) {
	for _, a := range alerts {
		c.alertsTotal.WithLabelValues(string(a.Severity)).Inc()
	}
}

// SetConnectedCount 更新connected集成数
func (c *MetricsCollector) SetConnectedCount(count int) {
	c.connected.Set(float64(count))
}
