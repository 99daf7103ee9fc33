/*
 * @module service/connector/workspace_connector_test
 * @description 协同办公套件连接器的单元测试
 * @architecture 测试驱动开发 - 伪造MQTT消息验证上报解析与缓冲区聚合
 * @documentReference ai_docs/connector_design.md workspace一节
 * @stateFlow 伪造上报入缓冲区 -> fetch聚合 -> 指标口径断言
 * @rules 上报载荷先做UTF-8归一化；缓冲区为空按上游不可达处理
 * @dependencies testing, testify, paho.mqtt.golang
 * @refs workspace_connector.go
 */

package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse-service/service/models"
)

// fakeReportMessage 伪造的MQTT活动上报消息
type fakeReportMessage struct {
	payload []byte
}

func (m fakeReportMessage) Duplicate() bool   { return false }
func (m fakeReportMessage) Qos() byte         { return 1 }
func (m fakeReportMessage) Retained() bool    { return false }
func (m fakeReportMessage) Topic() string     { return "workspace/activity/int-ws" }
func (m fakeReportMessage) MessageID() uint16 { return 0 }
func (m fakeReportMessage) Payload() []byte   { return m.payload }
func (m fakeReportMessage) Ack()              {}

// workspaceIntegration 构造协同办公套件集成
func workspaceIntegration(teamSize int) *models.Integration {
	config := models.IntegrationConfig{
		DataRetentionDays:   30,
		SyncIntervalMinutes: 15,
	}
	if teamSize > 0 {
		config.CustomSettings = models.JSONB{"team_size": teamSize}
	}
	return &models.Integration{
		ID:          "int-ws",
		Name:        "测试协同套件集成",
		ServiceType: models.ServiceTypeWorkspace,
		Status:      models.StatusConnected,
		Credentials: &models.Credentials{APIKey: "ws-key"},
		Config:      config,
	}
}

// report 投递一条活动上报
func report(c *WorkspaceConnector, payload string) {
	c.onReport(nil, fakeReportMessage{payload: []byte(payload)})
}

// TestWorkspaceReportAggregation 测试缓冲区聚合
func TestWorkspaceReportAggregation(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(10), Deps{})

	report(conn, `{"user":"alice","messages":10,"response_seconds":30,"after_hours":false}`)
	report(conn, `{"user":"bob","messages":20,"response_seconds":60,"after_hours":true}`)
	report(conn, `{"user":"alice","messages":5}`)
	// 非法载荷被丢弃
	report(conn, `{"messages":99}`)
	report(conn, `not-json`)

	activity, err := conn.FetchData(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.ServiceTypeWorkspace, activity.Source)
	assert.Equal(t, 35, activity.MessageCount)
	assert.Equal(t, 2, activity.ActiveUsers)
	assert.Equal(t, 10, activity.TotalUsers)
	assert.Equal(t, 3, activity.Records)
	// response_seconds为0的上报不进响应时间样本
	assert.Len(t, activity.ResponseTimes, 2)
	assert.InDelta(t, 1.0/3, activity.AfterHoursRatio, 1e-9)

	// 缓冲区随fetch清空，再次fetch走降级路径
	_, err = conn.FetchData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

// TestWorkspaceGB18030Payload 测试GB18030载荷的字符集归一化
func TestWorkspaceGB18030Payload(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(5), Deps{})

	// "张三" 的GB18030编码
	payload := append([]byte(`{"user":"`), 0xD5, 0xC5, 0xC8, 0xFD)
	payload = append(payload, []byte(`","messages":3}`)...)
	conn.onReport(nil, fakeReportMessage{payload: payload})

	activity, err := conn.FetchData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, activity.ActiveUsers)
	assert.Equal(t, 3, activity.MessageCount)
}

// TestWorkspaceTeamSizeFloor 测试团队规模不低于实际上报人数
func TestWorkspaceTeamSizeFloor(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(1), Deps{})

	report(conn, `{"user":"alice","messages":1}`)
	report(conn, `{"user":"bob","messages":1}`)

	activity, err := conn.FetchData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, activity.TotalUsers)
}

// TestWorkspaceFetchEmptyBuffer 测试空缓冲区按上游不可达处理
func TestWorkspaceFetchEmptyBuffer(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(10), Deps{})

	_, err := conn.FetchData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

// TestWorkspaceValidateCredentialsMissingKey 测试缺少API密钥直接拒绝
func TestWorkspaceValidateCredentialsMissingKey(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(10), Deps{})

	assert.False(t, conn.ValidateCredentials(context.Background(), nil))
	assert.False(t, conn.ValidateCredentials(context.Background(), &models.Credentials{AccessToken: "t"}))
}

// TestWorkspaceCalculateMetrics 测试协同办公类指标口径
func TestWorkspaceCalculateMetrics(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(10), Deps{})

	metrics := conn.CalculateMetrics(&models.RawActivity{
		MessageCount:    120,
		ActiveUsers:     6,
		TotalUsers:      10,
		ResponseTimes:   []float64{60},
		AfterHoursRatio: 0.2,
	})

	assert.InDelta(t, 0.6, metrics.EngagementRate, 1e-9)
	assert.InDelta(t, 60, metrics.AvgResponseTime, 1e-9)
	assert.InDelta(t, 19, metrics.BurnoutRisk, 1e-9)
	assert.InDelta(t, 17, metrics.StressLevel, 1e-9)
	assert.InDelta(t, 78, metrics.WorkLifeBalance, 1e-9)
	// 人均20条，凝聚力 0.6*70+20
	assert.InDelta(t, 62, metrics.TeamCohesion, 1e-9)
	assert.NoError(t, metrics.Validate())
}

// TestWorkspaceGenerateInsights 测试协同场景洞察
func TestWorkspaceGenerateInsights(t *testing.T) {
	conn := NewWorkspaceConnector(workspaceIntegration(10), Deps{})

	healthy := conn.GenerateInsights(models.AnalyticsMetrics{
		EngagementRate:  0.6,
		WorkLifeBalance: 78,
	})
	require.Len(t, healthy, 1)
	assert.Equal(t, models.InsightPositive, healthy[0].Type)

	strained := conn.GenerateInsights(models.AnalyticsMetrics{
		EngagementRate:  0.2,
		WorkLifeBalance: 30,
	})
	require.Len(t, strained, 2)
	assert.Equal(t, models.InsightWarning, strained[0].Type)
	assert.Equal(t, models.InsightSuggestion, strained[1].Type)
}
