/*
 * @module service/manager/dashboard
 * @description 仪表盘聚合，把各集成的最新快照汇总为舰队级视图
 * @architecture 编排器模式 - 读侧聚合，不做任何写入
 * @documentReference ai_docs/manager_design.md 仪表盘一节
 * @stateFlow 遍历注册表 -> 读取最新快照 -> 汇总健康分/洞察/头部指标 -> 输出聚合数据
 * @rules 聚合过程缺失的快照按空处理，仪表盘必须始终可渲染
 * @dependencies service/connector, service/models
 * @refs api/controllers/dashboard_controller.go
 */

package manager

import (
	"math"
	"sort"
	"time"

	"teampulse-service/service/models"
)

// 仪表盘展示的洞察上限
const recentInsightLimit = 5

// GetDashboardData 产出舰队级仪表盘聚合数据
func (m *Manager) GetDashboardData() (*models.DashboardData, error) {
	all := m.registry.GetAll()

	data := &models.DashboardData{
		TotalIntegrations: len(all),
		IntegrationStatus: make([]models.IntegrationStatusSummary, 0, len(all)),
		RecentInsights:    make([]models.AnalyticsInsight, 0, recentInsightLimit),
		TopMetrics:        make([]models.TopMetric, 0, 4),
		GeneratedAt:       time.Now(),
	}

	var (
		scoreSum, scoreCount float64
		engagementSum        float64
		burnoutSum           float64
		snapshotCount        float64
		totalMessages        int
		allInsights          []models.AnalyticsInsight
	)

	for _, conn := range all {
		integration := conn.Integration()
		data.IntegrationStatus = append(data.IntegrationStatus, models.IntegrationStatusSummary{
			IntegrationID: integration.ID,
			Name:          integration.Name,
			Status:        conn.Status(),
			HealthScore:   conn.HealthScore(),
			LastSync:      integration.LastSync,
			ErrorCount:    integration.ErrorCount,
		})

		if conn.Status() != models.StatusConnected {
			continue
		}
		data.ConnectedIntegrations++

		if score := conn.HealthScore(); score > 0 {
			scoreSum += float64(score)
			scoreCount++
		}

		if m.snapshots == nil {
			continue
		}
		snapshot, err := m.snapshots.Latest(conn.ID())
		if err != nil || snapshot == nil {
			continue
		}

		engagementSum += snapshot.Metrics.EngagementRate
		burnoutSum += snapshot.Metrics.BurnoutRisk
		totalMessages += snapshot.Metrics.MessageVolume
		snapshotCount++
		allInsights = append(allInsights, snapshot.Insights...)
	}

	if scoreCount > 0 {
		data.OverallHealthScore = int(math.Round(scoreSum / scoreCount))
	}

	if m.store != nil {
		if critical, err := m.store.CountCriticalAlerts(); err == nil {
			data.CriticalAlerts = int(critical)
		}
	}

	sort.Slice(allInsights, func(i, j int) bool {
		if allInsights[i].Impact.Rank() != allInsights[j].Impact.Rank() {
			return allInsights[i].Impact.Rank() > allInsights[j].Impact.Rank()
		}
		return allInsights[i].CreatedAt.After(allInsights[j].CreatedAt)
	})
	if len(allInsights) > recentInsightLimit {
		allInsights = allInsights[:recentInsightLimit]
	}
	data.RecentInsights = append(data.RecentInsights, allInsights...)

	if snapshotCount > 0 {
		data.TopMetrics = append(data.TopMetrics,
			models.TopMetric{Name: "avg_engagement_rate", Value: round2(engagementSum / snapshotCount)},
			models.TopMetric{Name: "avg_burnout_risk", Value: round2(burnoutSum / snapshotCount)},
			models.TopMetric{Name: "total_message_volume", Value: float64(totalMessages), Unit: "messages"},
			models.TopMetric{Name: "overall_health_score", Value: float64(data.OverallHealthScore)},
		)
	}

	return data, nil
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
