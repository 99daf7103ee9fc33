/*
 * @module service/connector/slack_connector_test
 * @description Slack连接器的单元测试
 * @architecture 测试驱动开发 - httptest模拟上游，验证归一化、缓存与指标口径
 * @documentReference ai_docs/connector_design.md slack一节
 * @stateFlow 模拟上游 -> fetch归一化 -> 缓存命中 -> 指标断言
 * @rules 轮询窗口内重复fetch必须命中缓存，不得重复上游调用
 * @dependencies testing, testify, net/http/httptest
 * @refs slack_connector.go, http_client.go
 */

package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse-service/service/cache"
	"teampulse-service/service/models"
)

// slackIntegration 指向模拟上游的Slack集成
func slackIntegration(baseURL string) *models.Integration {
	expiresAt := time.Now().Add(time.Hour)
	return &models.Integration{
		ID:          "slack-1",
		Name:        "研发部Slack",
		ServiceType: models.ServiceTypeSlack,
		Status:      models.StatusConnected,
		Config: models.IntegrationConfig{
			DataRetentionDays:   30,
			SyncIntervalMinutes: 15,
			CustomSettings:      models.JSONB{"api_base_url": baseURL},
		},
		Credentials: &models.Credentials{
			AccessToken:  "xoxb-test",
			RefreshToken: "xoxr-test",
			ExpiresAt:    &expiresAt,
		},
	}
}

// newSlackUpstream 模拟Slack上游
func newSlackUpstream(t *testing.T, activityHits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth.test":
			if r.Header.Get("Authorization") != "Bearer xoxb-test" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})

		case "/team.activity":
			if activityHits != nil {
				activityHits.Add(1)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":                     true,
				"messages":               320,
				"active_members":         18,
				"total_members":          20,
				"response_times_seconds": []float64{30, 60, 90},
				"reactions":              96,
				"thread_replies":         48,
				"after_hours_ratio":      0.1,
			})

		case "/oauth.v2.refresh":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":            true,
				"access_token":  "xoxb-renewed",
				"refresh_token": "xoxr-renewed",
				"expires_in":    3600,
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestSlackFetchDataNormalizes 测试活动数据归一化
func TestSlackFetchDataNormalizes(t *testing.T) {
	server := newSlackUpstream(t, nil)
	defer server.Close()

	c := NewSlackConnector(slackIntegration(server.URL), Deps{})

	activity, err := c.FetchData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, activity)

	assert.Equal(t, models.ServiceTypeSlack, activity.Source)
	assert.Equal(t, 320, activity.MessageCount)
	assert.Equal(t, 18, activity.ActiveUsers)
	assert.Equal(t, 20, activity.TotalUsers)
	assert.Equal(t, []float64{30, 60, 90}, activity.ResponseTimes)
	assert.Equal(t, 320, activity.Records)
	assert.False(t, activity.Degraded)
}

// TestSlackFetchDataUsesCache 测试轮询窗口内命中缓存
func TestSlackFetchDataUsesCache(t *testing.T) {
	var hits atomic.Int32
	server := newSlackUpstream(t, &hits)
	defer server.Close()

	c := NewSlackConnector(slackIntegration(server.URL), Deps{Cache: cache.NewMemoryCache()})
	ctx := context.Background()

	_, err := c.FetchData(ctx)
	require.NoError(t, err)
	_, err = c.FetchData(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
}

// TestSlackFetchDataRequiresToken 测试缺少令牌归为认证错误
func TestSlackFetchDataRequiresToken(t *testing.T) {
	server := newSlackUpstream(t, nil)
	defer server.Close()

	integration := slackIntegration(server.URL)
	integration.Credentials = nil
	c := NewSlackConnector(integration, Deps{})

	_, err := c.FetchData(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

// TestSlackValidateCredentials 测试凭证校验
func TestSlackValidateCredentials(t *testing.T) {
	server := newSlackUpstream(t, nil)
	defer server.Close()

	c := NewSlackConnector(slackIntegration(server.URL), Deps{})
	ctx := context.Background()

	assert.True(t, c.ValidateCredentials(ctx, &models.Credentials{AccessToken: "xoxb-test"}))
	assert.False(t, c.ValidateCredentials(ctx, &models.Credentials{AccessToken: "wrong"}))
	assert.False(t, c.ValidateCredentials(ctx, &models.Credentials{}))
}

// TestSlackRefreshToken 测试令牌刷新
func TestSlackRefreshToken(t *testing.T) {
	server := newSlackUpstream(t, nil)
	defer server.Close()

	c := NewSlackConnector(slackIntegration(server.URL), Deps{})

	renewed, err := c.RefreshToken(context.Background(), &models.Credentials{RefreshToken: "xoxr-test"})
	require.NoError(t, err)
	require.NotNil(t, renewed)
	assert.Equal(t, "xoxb-renewed", renewed.AccessToken)
	assert.Equal(t, "xoxr-renewed", renewed.RefreshToken)
	require.NotNil(t, renewed.ExpiresAt)
	assert.True(t, renewed.ExpiresAt.After(time.Now()))

	_, err = c.RefreshToken(context.Background(), &models.Credentials{})
	assert.ErrorIs(t, err, ErrAuth)
}

// TestSlackCalculateMetrics 测试聊天类指标口径
func TestSlackCalculateMetrics(t *testing.T) {
	c := NewSlackConnector(slackIntegration("http://unused"), Deps{})

	activity := &models.RawActivity{
		MessageCount:    320,
		ActiveUsers:     18,
		TotalUsers:      20,
		ResponseTimes:   []float64{60},
		AfterHoursRatio: 0.1,
		Reactions:       96,
		ThreadReplies:   48,
	}

	m := c.CalculateMetrics(activity)

	assert.InDelta(t, 0.9, m.EngagementRate, 1e-9)
	assert.InDelta(t, 60, m.AvgResponseTime, 1e-9)
	// 0.1*60 + 60/15 = 10
	assert.InDelta(t, 10, m.BurnoutRisk, 1e-9)
	// (96+48)/320*150 = 67.5
	assert.InDelta(t, 67.5, m.TeamCohesion, 1e-9)
	assert.InDelta(t, 90, m.WorkLifeBalance, 1e-9)
	assert.Equal(t, 320, m.MessageVolume)
	assert.NoError(t, m.Validate())
}

// TestSlackMetricsClamped 测试极端输入指标收敛
func TestSlackMetricsClamped(t *testing.T) {
	c := NewSlackConnector(slackIntegration("http://unused"), Deps{})

	activity := &models.RawActivity{
		MessageCount:    10,
		ActiveUsers:     50,
		TotalUsers:      20, // 活跃数大于总数
		ResponseTimes:   []float64{10000},
		AfterHoursRatio: 1,
		Reactions:       1000,
		ThreadReplies:   1000,
	}

	m := c.CalculateMetrics(activity)

	assert.LessOrEqual(t, m.EngagementRate, 1.0)
	assert.LessOrEqual(t, m.BurnoutRisk, 100.0)
	assert.LessOrEqual(t, m.TeamCohesion, 100.0)
	assert.NoError(t, m.Validate())
}

// TestSlackGenerateInsights 测试洞察阈值规则
func TestSlackGenerateInsights(t *testing.T) {
	c := NewSlackConnector(slackIntegration("http://unused"), Deps{})

	// 高参与 + 高凝聚 -> 两条positive
	healthy := models.AnalyticsMetrics{EngagementRate: 0.9, TeamCohesion: 80, BurnoutRisk: 10, AvgResponseTime: 60}
	insights := c.GenerateInsights(healthy)
	require.Len(t, insights, 2)
	for _, insight := range insights {
		assert.Equal(t, models.InsightPositive, insight.Type)
	}

	// 低参与 + 高倦怠 + 慢响应 -> 三条可行动洞察
	strained := models.AnalyticsMetrics{EngagementRate: 0.2, TeamCohesion: 30, BurnoutRisk: 80, AvgResponseTime: 400}
	insights = c.GenerateInsights(strained)
	require.Len(t, insights, 3)
	for _, insight := range insights {
		assert.True(t, insight.Actionable)
	}
}

// TestSlackEndToEndSync 测试经模板方法的完整同步
func TestSlackEndToEndSync(t *testing.T) {
	server := newSlackUpstream(t, nil)
	defer server.Close()

	sink := newMemorySnapshotSink()
	c := NewSlackConnector(slackIntegration(server.URL), Deps{Snapshots: sink})

	result := c.Sync(context.Background())

	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, 320, result.RecordsProcessed)
	assert.Greater(t, c.HealthScore(), 0)

	snapshot, err := sink.Latest("slack-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, c.HealthScore(), snapshot.HealthScore)
}

// TestSlackSyncFallsBackOnOutage 测试上游故障时永远可用
func TestSlackSyncFallsBackOnOutage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewSlackConnector(slackIntegration(server.URL), Deps{})

	result := c.Sync(context.Background())

	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.True(t, result.UsedFallback)
	assert.NotEmpty(t, result.Errors)
	assert.Equal(t, models.StatusConnected, c.Status())
}
