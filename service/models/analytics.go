/*
 * @module service/models/analytics
 * @description 分析数据模型定义，包括归一化指标、洞察、告警、同步结果与分析快照
 * @architecture DDD领域驱动设计 - 值对象与实体模型
 * @documentReference ai_docs/analytics_req.md
 * @stateFlow 原始活动数据 -> 指标计算 -> 洞察生成 -> 告警评估 -> 快照持久化
 * @rules engagementRate属于[0,1]；burnoutRisk属于[0,100]；指标必须一次性整体计算
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/connector, service/alert, service/storage
 */

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RawActivity 厂商原始活动数据的统一载体
// 各连接器的FetchData把厂商专有报文归一化为该结构，降级提供器生成同形状数据
type RawActivity struct {
	Source          string    `json:"source"`       // 服务类型标识
	CollectedAt     time.Time `json:"collected_at"` // 采集时间
	MessageCount    int       `json:"message_count"`
	ActiveUsers     int       `json:"active_users"`
	TotalUsers      int       `json:"total_users"`
	ResponseTimes   []float64 `json:"response_times"` // 秒
	MeetingMinutes  float64   `json:"meeting_minutes"`
	AfterHoursRatio float64   `json:"after_hours_ratio"` // 非工作时间活动占比 [0,1]
	Reactions       int       `json:"reactions"`
	ThreadReplies   int       `json:"thread_replies"`
	Records         int       `json:"records"`  // 本次采集处理的原始记录数
	Degraded        bool      `json:"degraded"` // 是否来自降级提供器
}

// AvgResponseTime 计算平均响应时间（秒）
func (r *RawActivity) AvgResponseTime() float64 {
	if len(r.ResponseTimes) == 0 {
		return 0
	}
	var sum float64
	for _, t := range r.ResponseTimes {
		sum += t
	}
	return sum / float64(len(r.ResponseTimes))
}

// AnalyticsMetrics 归一化健康指标
// 每次同步由同一份活动快照一次性整体计算，禁止部分填充
type AnalyticsMetrics struct {
	MessageVolume   int     `json:"message_volume"`
	ActiveUsers     int     `json:"active_users"`
	AvgResponseTime float64 `json:"avg_response_time"` // 秒
	EngagementRate  float64 `json:"engagement_rate"`   // [0,1]
	BurnoutRisk     float64 `json:"burnout_risk"`      // [0,100]
	StressLevel     float64 `json:"stress_level"`      // [0,100]
	WorkLifeBalance float64 `json:"work_life_balance"` // [0,100]
	TeamCohesion    float64 `json:"team_cohesion"`     // [0,100]
}

// Validate 校验指标区间约束
func (m *AnalyticsMetrics) Validate() error {
	if m.EngagementRate < 0 || m.EngagementRate > 1 {
		return fmt.Errorf("参与度超出区间[0,1]: %f", m.EngagementRate)
	}
	if m.BurnoutRisk < 0 || m.BurnoutRisk > 100 {
		return fmt.Errorf("倦怠风险超出区间[0,100]: %f", m.BurnoutRisk)
	}
	return nil
}

// IsZero 判断指标是否未填充
func (m *AnalyticsMetrics) IsZero() bool {
	return m.MessageVolume == 0 && m.ActiveUsers == 0 && m.EngagementRate == 0 &&
		m.AvgResponseTime == 0 && m.TeamCohesion == 0
}

// InsightType 洞察类型
type InsightType string

const (
	InsightPositive   InsightType = "positive"
	InsightWarning    InsightType = "warning"
	InsightNegative   InsightType = "negative"
	InsightSuggestion InsightType = "suggestion"
)

// ImpactLevel 洞察影响级别
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// Rank 返回影响级别的排序权重，级别越高权重越大
func (l ImpactLevel) Rank() int {
	switch l {
	case ImpactCritical:
		return 4
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// AnalyticsInsight 分析洞察，创建后不可变，每次同步整体替换
type AnalyticsInsight struct {
	ID          string      `json:"id"`
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Impact      ImpactLevel `json:"impact"`
	Actionable  bool        `json:"actionable"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AlertSeverity 告警级别
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// Rank 返回告警级别的排序权重
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AnalyticsAlert 分析告警实体
// 告警跨同步累积，核心只追加，已读/已解决标记由外部调用方变更
type AnalyticsAlert struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IntegrationID string        `json:"integration_id" gorm:"not null;type:varchar(36);index"`
	Severity      AlertSeverity `json:"severity" gorm:"not null;size:20;index"`
	Message       string        `json:"message" gorm:"not null;type:text"`
	Metric        string        `json:"metric,omitempty" gorm:"size:50"` // 触发指标字段
	Value         float64       `json:"value,omitempty"`
	Threshold     float64       `json:"threshold,omitempty"`
	Read          bool          `json:"read" gorm:"default:false"`
	Resolved      bool          `json:"resolved" gorm:"default:false;index"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (a *AnalyticsAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// SyncResult 单次同步结果，仅返回/发布，不持久化
type SyncResult struct {
	Success          bool          `json:"success"`
	IntegrationID    string        `json:"integration_id"`
	RecordsProcessed int           `json:"records_processed"`
	Errors           []string      `json:"errors,omitempty"`
	Duration         time.Duration `json:"duration"`
	NextSync         *time.Time    `json:"next_sync,omitempty"`
	UsedFallback     bool          `json:"used_fallback"`
}

// MetricTrend 指标趋势
type MetricTrend struct {
	Metric    string  `json:"metric"`
	Current   float64 `json:"current"`
	Previous  float64 `json:"previous"`
	Direction string  `json:"direction"` // up, down, flat
}

// AnalyticsSnapshot 分析快照，同步成功后整体写入键值存储
type AnalyticsSnapshot struct {
	IntegrationID string             `json:"integration_id"`
	Metrics       AnalyticsMetrics   `json:"metrics"`
	Insights      []AnalyticsInsight `json:"insights"`
	Alerts        []AnalyticsAlert   `json:"alerts"`
	LastUpdated   time.Time          `json:"last_updated"`
	HealthScore   int                `json:"health_score"`
	Trends        []MetricTrend      `json:"trends,omitempty"`
}

// IntegrationStatusSummary 面向仪表盘的单集成状态摘要
type IntegrationStatusSummary struct {
	IntegrationID string            `json:"integration_id"`
	Name          string            `json:"name"`
	Status        IntegrationStatus `json:"status"`
	HealthScore   int               `json:"health_score"`
	LastSync      *time.Time        `json:"last_sync,omitempty"`
	ErrorCount    int               `json:"error_count"`
}

// TopMetric 仪表盘头部指标
type TopMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// DashboardData 全量仪表盘聚合数据
type DashboardData struct {
	OverallHealthScore    int                        `json:"overall_health_score"`
	TotalIntegrations     int                        `json:"total_integrations"`
	ConnectedIntegrations int                        `json:"connected_integrations"`
	CriticalAlerts        int                        `json:"critical_alerts"`
	RecentInsights        []AnalyticsInsight         `json:"recent_insights"` // 按影响排序，至多5条
	TopMetrics            []TopMetric                `json:"top_metrics"`
	IntegrationStatus     []IntegrationStatusSummary `json:"integration_status"`
	GeneratedAt           time.Time                  `json:"generated_at"`
}
