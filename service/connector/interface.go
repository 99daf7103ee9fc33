/*
 * @module service/connector/interface
 * @description 连接器契约定义，所有厂商实现必须满足的能力集，编排器只依赖该接口
 * @architecture 插件化架构 - 接口与实现分离，厂商集合编译期封闭
 * @documentReference ai_docs/connector_design.md
 * @stateFlow connect -> sync循环(fetch->指标->洞察->告警->健康分) -> disconnect
 * @rules
 *   - FetchData是唯一允许显式失败的方法
 *   - CalculateMetrics与GenerateInsights必须是无I/O纯函数
 *   - Sync模板方法由BaseConnector统一提供，厂商不覆盖
 * @dependencies context, service/models
 * @refs service/connector/base.go, service/manager
 */

package connector

import (
	"context"

	"teampulse-service/service/models"
)

// Connector 连接器契约
// 编排器只持有该接口，从不持有具体厂商类型
type Connector interface {
	// ID 集成唯一标识
	ID() string

	// Name 集成显示名
	Name() string

	// ServiceType 服务类型标识（slack/zoom/workspace）
	ServiceType() string

	// Integration 当前集成实体的独立副本，读侧在锁外安全使用
	Integration() *models.Integration

	// UpdateConfig 串行化写入集成配置
	UpdateConfig(config models.IntegrationConfig)

	// Status 当前集成状态
	Status() models.IntegrationStatus

	// HealthScore 当前健康分
	HealthScore() int

	// LastError 最近一次错误描述
	LastError() string

	// Connect 校验并保存凭证，成功迁移到connected，失败回到disconnected
	// 失败通过返回false表达，不抛错
	Connect(ctx context.Context, credentials *models.Credentials) bool

	// Disconnect 清除凭证与缓存数据，迁移到disconnected
	Disconnect(ctx context.Context) bool

	// ValidateCredentials 对上游做纯校验，不改变连接器状态
	ValidateCredentials(ctx context.Context, credentials *models.Credentials) bool

	// FetchData 拉取厂商原始活动数据并归一化
	// 唯一允许失败的方法，失败按errors.go分类
	FetchData(ctx context.Context) (*models.RawActivity, error)

	// CalculateMetrics 由活动快照一次性整体计算指标，纯函数
	CalculateMetrics(activity *models.RawActivity) models.AnalyticsMetrics

	// GenerateInsights 基于指标阈值产出洞察列表，纯函数
	GenerateInsights(metrics models.AnalyticsMetrics) []models.AnalyticsInsight

	// Sync 模板方法，完整执行一次同步管道
	Sync(ctx context.Context) *models.SyncResult
}

// TokenRefresher 令牌刷新契约
// 支持OAuth刷新流的厂商连接器实现该接口；每次sync在凭证过期时至多刷新一次，
// 刷新失败按未认证处理而非硬错误
type TokenRefresher interface {
	RefreshToken(ctx context.Context, credentials *models.Credentials) (*models.Credentials, error)
}

// AlertSink 告警落地接口，同步产出的告警经该接口追加持久化
type AlertSink interface {
	AppendAlerts(alerts []models.AnalyticsAlert) error
}

// SnapshotSink 快照落地接口
type SnapshotSink interface {
	Save(snapshot *models.AnalyticsSnapshot) error
	Latest(integrationID string) (*models.AnalyticsSnapshot, error)
}
