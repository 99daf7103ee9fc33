/*
 * @module service/connector/workspace_connector
 * @description 协同办公套件连接器，经MQTT订阅接收各终端的活动上报，fetch时聚合缓冲区数据
 * @architecture 适配器模式 - 封装MQTT客户端接入连接器契约，推模式数据在fetch时做拉模式聚合
 * @documentReference ai_docs/connector_design.md workspace一节
 * @stateFlow connect建立MQTT订阅 -> 活动上报进缓冲区 -> fetch聚合并清空缓冲区 -> disconnect取消订阅
 * @rules 上报载荷必须先做UTF-8归一化再解析；缓冲区为空视为上游不可达，走降级路径
 * @dependencies github.com/eclipse/paho.mqtt.golang, service/utils
 * @refs service/connector/base.go, service/utils/data_converter.go
 */

package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"teampulse-service/service/models"
	"teampulse-service/service/utils"
)

const (
	workspaceDefaultBroker = "tcp://localhost:1883"
	workspaceConnectWait   = 5 * time.Second
)

// 协同办公类权重：文档协作场景响应时间权重下调
func workspaceHealthWeights() HealthWeights {
	return HealthWeights{
		Engagement:   0.35,
		ResponseTime: 0.15,
		Burnout:      0.25,
		Cohesion:     0.25,
	}
}

// workspaceReport 终端活动上报
type workspaceReport struct {
	User            string
	Messages        int
	ResponseSeconds float64
	AfterHours      bool
	ReceivedAt      time.Time
}

// WorkspaceConnector 协同办公套件连接器
type WorkspaceConnector struct {
	*BaseConnector
	converter *utils.DataConverter

	clientMu sync.Mutex
	client   mqtt.Client

	bufferMu sync.Mutex
	buffer   []workspaceReport
}

// NewWorkspaceConnector 创建协同办公套件连接器
func NewWorkspaceConnector(integration *models.Integration, deps Deps) *WorkspaceConnector {
	c := &WorkspaceConnector{
		BaseConnector: NewBaseConnector(integration, deps, workspaceHealthWeights()),
		converter:     utils.NewDataConverter(),
	}
	c.bind(c)
	return c
}

// broker MQTT接入点，集成自定义设置可覆盖
func (c *WorkspaceConnector) broker() string {
	config := c.Config()
	return config.CustomString("mqtt_broker", workspaceDefaultBroker)
}

// topic 活动上报主题
func (c *WorkspaceConnector) topic() string {
	return fmt.Sprintf("workspace/activity/%s", c.integration.ID)
}

// newClientOptions 构造MQTT客户端选项，API密钥作为接入凭证
func (c *WorkspaceConnector) newClientOptions(credentials *models.Credentials, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.broker())
	opts.SetClientID(clientID)
	opts.SetUsername(c.integration.ID)
	opts.SetPassword(credentials.APIKey)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetAutoReconnect(true)
	return opts
}

// ValidateCredentials 以探测连接校验API密钥，校验完立即断开，不改变连接器状态
func (c *WorkspaceConnector) ValidateCredentials(ctx context.Context, credentials *models.Credentials) bool {
	if credentials == nil || credentials.APIKey == "" {
		return false
	}

	probe := mqtt.NewClient(c.newClientOptions(credentials, "teampulse-probe-"+c.integration.ID))
	token := probe.Connect()
	if !token.WaitTimeout(workspaceConnectWait) || token.Error() != nil {
		return false
	}
	probe.Disconnect(250)
	return true
}

// Connect 建立连接并启动活动上报订阅
func (c *WorkspaceConnector) Connect(ctx context.Context, credentials *models.Credentials) bool {
	if !c.BaseConnector.Connect(ctx, credentials) {
		return false
	}

	if err := c.startSubscription(credentials); err != nil {
		c.mu.Lock()
		c.integration.Credentials = nil
		c.integration.Status = models.StatusDisconnected
		c.integration.LastError = fmt.Sprintf("建立活动上报订阅失败: %v", err)
		c.integration.ErrorCount++
		c.mu.Unlock()
		return false
	}
	return true
}

// Disconnect 取消订阅并断开MQTT连接
func (c *WorkspaceConnector) Disconnect(ctx context.Context) bool {
	c.clientMu.Lock()
	if c.client != nil && c.client.IsConnected() {
		c.client.Unsubscribe(c.topic())
		c.client.Disconnect(250)
	}
	c.client = nil
	c.clientMu.Unlock()

	c.bufferMu.Lock()
	c.buffer = nil
	c.bufferMu.Unlock()

	return c.BaseConnector.Disconnect(ctx)
}

// startSubscription 建立MQTT连接并订阅活动上报主题
func (c *WorkspaceConnector) startSubscription(credentials *models.Credentials) error {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()

	client := mqtt.NewClient(c.newClientOptions(credentials, "teampulse-"+c.integration.ID))
	if token := client.Connect(); !token.WaitTimeout(workspaceConnectWait) || token.Error() != nil {
		return fmt.Errorf("MQTT连接失败: %v", token.Error())
	}

	if token := client.Subscribe(c.topic(), 1, c.onReport); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return fmt.Errorf("订阅主题失败 topic=%s: %v", c.topic(), token.Error())
	}

	c.client = client
	return nil
}

// onReport 活动上报消息处理器
// 载荷先做UTF-8归一化（部分终端仍以GB18030导出），再做宽松解析
func (c *WorkspaceConnector) onReport(_ mqtt.Client, msg mqtt.Message) {
	text, err := c.converter.EnsureUTF8(msg.Payload())
	if err != nil {
		return
	}

	fields, err := cast.ToStringMapE(parseJSON(text))
	if err != nil {
		return
	}

	report := workspaceReport{
		User:            cast.ToString(fields["user"]),
		Messages:        c.converter.ToInt(fields["messages"], 0),
		ResponseSeconds: c.converter.ToFloat(fields["response_seconds"], 0),
		AfterHours:      cast.ToBool(fields["after_hours"]),
		ReceivedAt:      time.Now(),
	}
	if report.User == "" {
		return
	}

	c.bufferMu.Lock()
	c.buffer = append(c.buffer, report)
	c.bufferMu.Unlock()
}

// FetchData 聚合缓冲区内的活动上报，缓冲区为空按上游不可达处理
func (c *WorkspaceConnector) FetchData(ctx context.Context) (*models.RawActivity, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.bufferMu.Lock()
	reports := c.buffer
	c.buffer = nil
	c.bufferMu.Unlock()

	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: 轮询窗口内无活动上报", ErrNetwork)
	}

	users := make(map[string]struct{})
	var messageCount, afterHours int
	var responseTimes []float64

	for _, r := range reports {
		users[r.User] = struct{}{}
		messageCount += r.Messages
		if r.ResponseSeconds > 0 {
			responseTimes = append(responseTimes, r.ResponseSeconds)
		}
		if r.AfterHours {
			afterHours++
		}
	}

	config := c.Config()
	teamSize := config.CustomInt("team_size", len(users))
	if teamSize < len(users) {
		teamSize = len(users)
	}

	return &models.RawActivity{
		Source:          models.ServiceTypeWorkspace,
		CollectedAt:     time.Now(),
		MessageCount:    messageCount,
		ActiveUsers:     len(users),
		TotalUsers:      teamSize,
		ResponseTimes:   responseTimes,
		AfterHoursRatio: clamp(ratio(float64(afterHours), float64(len(reports))), 0, 1),
		Records:         len(reports),
	}, nil
}

// CalculateMetrics 协同办公类指标口径：参与度看上报终端占比
func (c *WorkspaceConnector) CalculateMetrics(activity *models.RawActivity) models.AnalyticsMetrics {
	engagement := clamp(ratio(float64(activity.ActiveUsers), float64(activity.TotalUsers)), 0, 1)
	avgResponse := activity.AvgResponseTime()

	burnout := clamp(activity.AfterHoursRatio*80+avgResponse/20, 0, 100)
	stress := clamp(activity.AfterHoursRatio*60+avgResponse/12, 0, 100)
	workLife := clamp(100-activity.AfterHoursRatio*110, 0, 100)

	// 文档协作以人均产出均衡度近似凝聚力
	perUser := ratio(float64(activity.MessageCount), float64(activity.ActiveUsers))
	cohesion := clamp(engagement*70+clamp(perUser, 0, 30), 0, 100)

	return models.AnalyticsMetrics{
		MessageVolume:   activity.MessageCount,
		ActiveUsers:     activity.ActiveUsers,
		AvgResponseTime: avgResponse,
		EngagementRate:  engagement,
		BurnoutRisk:     burnout,
		StressLevel:     stress,
		WorkLifeBalance: workLife,
		TeamCohesion:    cohesion,
	}
}

// GenerateInsights 协同办公场景的阈值洞察
func (c *WorkspaceConnector) GenerateInsights(metrics models.AnalyticsMetrics) []models.AnalyticsInsight {
	now := time.Now()
	insights := make([]models.AnalyticsInsight, 0, 3)

	if metrics.EngagementRate >= 0.6 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightPositive,
			Title:       "协同办公使用活跃",
			Description: fmt.Sprintf("%.0f%%的团队成员在套件内协作", metrics.EngagementRate*100),
			Impact:      models.ImpactLow,
			CreatedAt:   now,
		})
	}

	if metrics.WorkLifeBalance < 40 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightWarning,
			Title:       "非工作时间协作占比过高",
			Description: fmt.Sprintf("工作生活平衡指数%.0f，建议关注加班文档编辑情况", metrics.WorkLifeBalance),
			Impact:      models.ImpactHigh,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	if metrics.EngagementRate < 0.3 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightSuggestion,
			Title:       "套件采用率偏低",
			Description: "大部分成员未接入协同套件，可组织一次使用培训",
			Impact:      models.ImpactMedium,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	return insights
}
