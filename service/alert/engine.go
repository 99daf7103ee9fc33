/*
 * @module service/alert/engine
 * @description 告警引擎，对归一化指标应用阈值规则并产出分级告警
 * @architecture 分层架构 - 业务服务层（纯函数评估 + 阈值配置管理）
 * @documentReference ai_docs/alert_design.md
 * @stateFlow 指标输入 -> 阈值比对 -> 告警产出
 * @rules 评估过程不做I/O；阈值支持部署级默认与集成级覆盖
 * @dependencies teampulse-service/service/models
 * @refs service/connector/base.go, service/manager
 */

package alert

import (
	"fmt"
	"sync"

	"teampulse-service/service/models"
)

// Thresholds 告警阈值集合
type Thresholds struct {
	BurnoutWarning     float64 `json:"burnout_warning"`
	BurnoutCritical    float64 `json:"burnout_critical"`
	ResponseWarning    float64 `json:"response_warning"` // 秒
	ResponseError      float64 `json:"response_error"`   // 秒
	EngagementWarning  float64 `json:"engagement_warning"`
	EngagementError    float64 `json:"engagement_error"`
}

// DefaultThresholds 部署级默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		BurnoutWarning:    70,
		BurnoutCritical:   85,
		ResponseWarning:   300,
		ResponseError:     600,
		EngagementWarning: 0.3,
		EngagementError:   0.2,
	}
}

// Engine 告警引擎
type Engine struct {
	mu        sync.RWMutex
	defaults  Thresholds
	overrides map[string]Thresholds // integrationID -> 覆盖阈值
}

// NewEngine 创建告警引擎
func NewEngine(defaults Thresholds) *Engine {
	return &Engine{
		defaults:  defaults,
		overrides: make(map[string]Thresholds),
	}
}

// SetOverride 设置集成级阈值覆盖
func (e *Engine) SetOverride(integrationID string, thresholds Thresholds) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[integrationID] = thresholds
}

// RemoveOverride 移除集成级阈值覆盖
func (e *Engine) RemoveOverride(integrationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.overrides, integrationID)
}

// ThresholdsFor 返回指定集成生效的阈值
func (e *Engine) ThresholdsFor(integrationID string) Thresholds {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if t, ok := e.overrides[integrationID]; ok {
		return t
	}
	return e.defaults
}

// Evaluate 对指标评估阈值规则，产出告警列表
// 纯评估过程：相同输入必然产出相同告警集合（ID与时间戳除外）
func (e *Engine) Evaluate(integrationID string, metrics models.AnalyticsMetrics) []models.AnalyticsAlert {
	t := e.ThresholdsFor(integrationID)
	alerts := make([]models.AnalyticsAlert, 0)

	// 倦怠风险：先判临界再判警告，只产出最高级别
	if metrics.BurnoutRisk >= t.BurnoutCritical {
		alerts = append(alerts, newAlert(integrationID, models.SeverityCritical, "burnout_risk",
			metrics.BurnoutRisk, t.BurnoutCritical,
			fmt.Sprintf("团队倦怠风险达到临界水平: %.1f", metrics.BurnoutRisk)))
	} else if metrics.BurnoutRisk >= t.BurnoutWarning {
		alerts = append(alerts, newAlert(integrationID, models.SeverityWarning, "burnout_risk",
			metrics.BurnoutRisk, t.BurnoutWarning,
			fmt.Sprintf("团队倦怠风险偏高: %.1f", metrics.BurnoutRisk)))
	}

	// 平均响应时间
	if metrics.AvgResponseTime > t.ResponseError {
		alerts = append(alerts, newAlert(integrationID, models.SeverityError, "avg_response_time",
			metrics.AvgResponseTime, t.ResponseError,
			fmt.Sprintf("平均响应时间严重超标: %.0f秒", metrics.AvgResponseTime)))
	} else if metrics.AvgResponseTime > t.ResponseWarning {
		alerts = append(alerts, newAlert(integrationID, models.SeverityWarning, "avg_response_time",
			metrics.AvgResponseTime, t.ResponseWarning,
			fmt.Sprintf("平均响应时间偏高: %.0f秒", metrics.AvgResponseTime)))
	}

	// 参与度
	if metrics.EngagementRate < t.EngagementError {
		alerts = append(alerts, newAlert(integrationID, models.SeverityError, "engagement_rate",
			metrics.EngagementRate, t.EngagementError,
			fmt.Sprintf("团队参与度过低: %.2f", metrics.EngagementRate)))
	} else if metrics.EngagementRate < t.EngagementWarning {
		alerts = append(alerts, newAlert(integrationID, models.SeverityWarning, "engagement_rate",
			metrics.EngagementRate, t.EngagementWarning,
			fmt.Sprintf("团队参与度偏低: %.2f", metrics.EngagementRate)))
	}

	return alerts
}

// newAlert 构造告警实例
func newAlert(integrationID string, severity models.AlertSeverity, metric string, value, threshold float64, message string) models.AnalyticsAlert {
	return models.AnalyticsAlert{
		IntegrationID: integrationID,
		Severity:      severity,
		Message:       message,
		Metric:        metric,
		Value:         value,
		Threshold:     threshold,
	}
}
