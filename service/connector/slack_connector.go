/*
 * @module service/connector/slack_connector
 * @description Slack连接器，拉取聊天工作区活动数据并归一化为健康指标
 * @architecture 插件化架构 - 连接器契约的聊天类实现
 * @documentReference ai_docs/connector_design.md slack一节
 * @stateFlow 缓存命中直接返回 -> 限流申请 -> HTTP拉取 -> 归一化 -> 写缓存
 * @rules 轮询窗口内的重复fetch必须命中缓存，不得重复上游调用
 * @dependencies service/connector基类, net/url
 * @refs service/connector/base.go, service/connector/http_client.go
 */

package connector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"teampulse-service/service/models"
)

const slackDefaultBaseURL = "https://slack.com/api"

// slackActivityPayload 工作区活动接口响应
type slackActivityPayload struct {
	OK                   bool      `json:"ok"`
	Messages             int       `json:"messages"`
	ActiveMembers        int       `json:"active_members"`
	TotalMembers         int       `json:"total_members"`
	ResponseTimesSeconds []float64 `json:"response_times_seconds"`
	Reactions            int       `json:"reactions"`
	ThreadReplies        int       `json:"thread_replies"`
	AfterHoursRatio      float64   `json:"after_hours_ratio"`
}

// slackTokenPayload 令牌刷新接口响应
type slackTokenPayload struct {
	OK           bool   `json:"ok"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// SlackConnector Slack连接器
type SlackConnector struct {
	*BaseConnector
	client *vendorClient
}

// NewSlackConnector 创建Slack连接器
func NewSlackConnector(integration *models.Integration, deps Deps) *SlackConnector {
	baseURL := integration.Config.CustomString("api_base_url", slackDefaultBaseURL)

	c := &SlackConnector{
		BaseConnector: NewBaseConnector(integration, deps, DefaultHealthWeights()),
		client:        newVendorClient(baseURL, "slack:"+integration.ID, deps.Limiter),
	}
	c.bind(c)
	return c
}

// ValidateCredentials 调用auth.test做纯校验，不改变连接器状态
func (c *SlackConnector) ValidateCredentials(ctx context.Context, credentials *models.Credentials) bool {
	if credentials.IsEmpty() {
		return false
	}

	var payload struct {
		OK bool `json:"ok"`
	}
	if err := c.client.getJSON(ctx, "/auth.test", credentials.AccessToken, &payload); err != nil {
		return false
	}
	return payload.OK
}

// FetchData 拉取工作区活动数据
func (c *SlackConnector) FetchData(ctx context.Context) (*models.RawActivity, error) {
	cacheKey := c.activityCacheKey()
	if c.deps.Cache != nil {
		if cached, hit := c.deps.Cache.Get(ctx, cacheKey); hit {
			if activity, ok := cached.(*models.RawActivity); ok {
				return activity, nil
			}
		}
	}

	credentials := c.Integration().Credentials
	if credentials.IsEmpty() {
		return nil, fmt.Errorf("%w: 缺少访问令牌", ErrAuth)
	}

	var payload slackActivityPayload
	if err := c.client.getJSON(ctx, "/team.activity", credentials.AccessToken, &payload); err != nil {
		return nil, err
	}
	if !payload.OK || payload.TotalMembers <= 0 {
		return nil, fmt.Errorf("%w: 工作区活动响应形状异常", ErrValidation)
	}

	activity := &models.RawActivity{
		Source:          models.ServiceTypeSlack,
		CollectedAt:     time.Now(),
		MessageCount:    payload.Messages,
		ActiveUsers:     payload.ActiveMembers,
		TotalUsers:      payload.TotalMembers,
		ResponseTimes:   payload.ResponseTimesSeconds,
		AfterHoursRatio: clamp(payload.AfterHoursRatio, 0, 1),
		Reactions:       payload.Reactions,
		ThreadReplies:   payload.ThreadReplies,
		Records:         payload.Messages,
	}

	if c.deps.Cache != nil {
		config := c.Config()
		ttl := config.CustomDuration("cache_ttl_seconds", 5*time.Minute)
		if err := c.deps.Cache.Set(ctx, cacheKey, activity, ttl); err != nil {
			return activity, nil // 缓存失败不影响本次结果
		}
	}
	return activity, nil
}

// CalculateMetrics 聊天类指标口径：参与度看活跃成员占比，凝聚力看互动密度
func (c *SlackConnector) CalculateMetrics(activity *models.RawActivity) models.AnalyticsMetrics {
	engagement := clamp(ratio(float64(activity.ActiveUsers), float64(activity.TotalUsers)), 0, 1)
	avgResponse := activity.AvgResponseTime()

	// 非工作时间活动与响应压力共同推高倦怠
	burnout := clamp(activity.AfterHoursRatio*60+avgResponse/15, 0, 100)
	stress := clamp(activity.AfterHoursRatio*40+avgResponse/10, 0, 100)
	workLife := clamp(100-activity.AfterHoursRatio*100, 0, 100)

	// 互动密度：每条消息的回应与话题回复
	interaction := ratio(float64(activity.Reactions+activity.ThreadReplies), float64(activity.MessageCount))
	cohesion := clamp(interaction*150, 0, 100)

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

// GenerateInsights 阈值规则映射到固定洞察模板
func (c *SlackConnector) GenerateInsights(metrics models.AnalyticsMetrics) []models.AnalyticsInsight {
	now := time.Now()
	insights := make([]models.AnalyticsInsight, 0, 4)

	if metrics.EngagementRate >= 0.7 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightPositive,
			Title:       "团队参与度健康",
			Description: fmt.Sprintf("%.0f%%的成员在工作区保持活跃，沟通氛围良好", metrics.EngagementRate*100),
			Impact:      models.ImpactLow,
			CreatedAt:   now,
		})
	} else if metrics.EngagementRate < 0.3 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightNegative,
			Title:       "团队参与度持续走低",
			Description: fmt.Sprintf("仅%.0f%%的成员保持活跃，建议排查沟通渠道是否分散", metrics.EngagementRate*100),
			Impact:      models.ImpactHigh,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	if metrics.BurnoutRisk >= 70 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightWarning,
			Title:       "倦怠风险偏高",
			Description: fmt.Sprintf("倦怠风险指数%.0f，非工作时间消息占比偏高", metrics.BurnoutRisk),
			Impact:      models.ImpactCritical,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	if metrics.AvgResponseTime > 300 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightSuggestion,
			Title:       "响应时间可以优化",
			Description: fmt.Sprintf("平均响应%.0f秒，可考虑设定频道值班轮换", metrics.AvgResponseTime),
			Impact:      models.ImpactMedium,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	if metrics.TeamCohesion >= 75 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightPositive,
			Title:       "团队互动密度高",
			Description: "消息获得充分的回应与话题讨论，协作黏性好",
			Impact:      models.ImpactLow,
			CreatedAt:   now,
		})
	}

	return insights
}

// RefreshToken OAuth令牌刷新，每次sync至多调用一次
func (c *SlackConnector) RefreshToken(ctx context.Context, credentials *models.Credentials) (*models.Credentials, error) {
	if credentials == nil || credentials.RefreshToken == "" {
		return nil, fmt.Errorf("%w: 缺少refresh_token", ErrAuth)
	}

	var payload slackTokenPayload
	path := "/oauth.v2.refresh?refresh_token=" + url.QueryEscape(credentials.RefreshToken)
	if err := c.client.getJSON(ctx, path, "", &payload); err != nil {
		return nil, err
	}
	if !payload.OK || payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: 刷新响应无效", ErrAuth)
	}

	expiresAt := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return &models.Credentials{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    &expiresAt,
		APIKey:       credentials.APIKey,
	}, nil
}
