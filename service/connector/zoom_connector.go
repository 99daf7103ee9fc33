/*
 * @module service/connector/zoom_connector
 * @description Zoom连接器，拉取会议活动数据并归一化为健康指标，会议时长是倦怠口径的主要输入
 * @architecture 插件化架构 - 连接器契约的视频会议类实现
 * @documentReference ai_docs/connector_design.md zoom一节
 * @stateFlow 缓存命中直接返回 -> 限流申请 -> HTTP拉取 -> 归一化 -> 写缓存
 * @rules 会议类连接器使用自定义健康分权重（倦怠与凝聚力权重上调），权重随实现声明
 * @dependencies service/connector基类
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

const zoomDefaultBaseURL = "https://api.zoom.us/v2"

// 视频会议类权重：会议负荷直接影响倦怠，权重相应上调
func zoomHealthWeights() HealthWeights {
	return HealthWeights{
		Engagement:   0.25,
		ResponseTime: 0.20,
		Burnout:      0.30,
		Cohesion:     0.25,
	}
}

// zoomActivityPayload 会议活动接口响应
type zoomActivityPayload struct {
	TotalMeetings        int       `json:"total_meetings"`
	TotalMinutes         float64   `json:"total_minutes"`
	Participants         int       `json:"participants"`
	LicensedUsers        int       `json:"licensed_users"`
	ChatMessages         int       `json:"chat_messages"`
	JoinDelaysSeconds    []float64 `json:"join_delays_seconds"`
	AfterHoursMinutes    float64   `json:"after_hours_minutes"`
	RecurringMeetingRate float64   `json:"recurring_meeting_rate"`
}

// ZoomConnector Zoom连接器
type ZoomConnector struct {
	*BaseConnector
	client *vendorClient
}

// NewZoomConnector 创建Zoom连接器
func NewZoomConnector(integration *models.Integration, deps Deps) *ZoomConnector {
	baseURL := integration.Config.CustomString("api_base_url", zoomDefaultBaseURL)

	c := &ZoomConnector{
		BaseConnector: NewBaseConnector(integration, deps, zoomHealthWeights()),
		client:        newVendorClient(baseURL, "zoom:"+integration.ID, deps.Limiter),
	}
	c.bind(c)
	return c
}

// ValidateCredentials 调用用户自查接口做纯校验
func (c *ZoomConnector) ValidateCredentials(ctx context.Context, credentials *models.Credentials) bool {
	if credentials.IsEmpty() {
		return false
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := c.client.getJSON(ctx, "/users/me", credentials.AccessToken, &payload); err != nil {
		return false
	}
	return payload.ID != ""
}

// FetchData 拉取会议活动报表
func (c *ZoomConnector) FetchData(ctx context.Context) (*models.RawActivity, error) {
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

	var payload zoomActivityPayload
	if err := c.client.getJSON(ctx, "/report/daily", credentials.AccessToken, &payload); err != nil {
		return nil, err
	}
	if payload.LicensedUsers <= 0 {
		return nil, fmt.Errorf("%w: 会议报表响应形状异常", ErrValidation)
	}

	afterHoursRatio := clamp(ratio(payload.AfterHoursMinutes, payload.TotalMinutes), 0, 1)

	activity := &models.RawActivity{
		Source:          models.ServiceTypeZoom,
		CollectedAt:     time.Now(),
		MessageCount:    payload.ChatMessages,
		ActiveUsers:     payload.Participants,
		TotalUsers:      payload.LicensedUsers,
		ResponseTimes:   payload.JoinDelaysSeconds,
		MeetingMinutes:  payload.TotalMinutes,
		AfterHoursRatio: afterHoursRatio,
		Records:         payload.TotalMeetings,
	}

	if c.deps.Cache != nil {
		// 会议报表按天汇总，比消息流缓存更久
		config := c.Config()
		ttl := config.CustomDuration("cache_ttl_seconds", 15*time.Minute)
		if err := c.deps.Cache.Set(ctx, cacheKey, activity, ttl); err != nil {
			return activity, nil
		}
	}
	return activity, nil
}

// CalculateMetrics 会议类指标口径：参与度看与会占比，倦怠看人均会议负荷
func (c *ZoomConnector) CalculateMetrics(activity *models.RawActivity) models.AnalyticsMetrics {
	engagement := clamp(ratio(float64(activity.ActiveUsers), float64(activity.TotalUsers)), 0, 1)
	avgResponse := activity.AvgResponseTime()

	// 人均每日会议分钟数超过240按满负荷计
	minutesPerUser := ratio(activity.MeetingMinutes, float64(activity.TotalUsers))
	meetingLoad := clamp(minutesPerUser/240*100, 0, 100)

	burnout := clamp(meetingLoad*0.6+activity.AfterHoursRatio*40, 0, 100)
	stress := clamp(meetingLoad*0.5+activity.AfterHoursRatio*50, 0, 100)
	workLife := clamp(100-activity.AfterHoursRatio*100-meetingLoad*0.2, 0, 100)

	// 会议出席本身体现协作意愿
	cohesion := clamp(engagement*80+20-meetingLoad*0.1, 0, 100)

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

// GenerateInsights 会议负荷相关的阈值洞察
func (c *ZoomConnector) GenerateInsights(metrics models.AnalyticsMetrics) []models.AnalyticsInsight {
	now := time.Now()
	insights := make([]models.AnalyticsInsight, 0, 3)

	if metrics.BurnoutRisk >= 70 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightWarning,
			Title:       "会议负荷过重",
			Description: fmt.Sprintf("倦怠风险指数%.0f，建议推行无会议时段", metrics.BurnoutRisk),
			Impact:      models.ImpactCritical,
			Actionable:  true,
			CreatedAt:   now,
		})
	} else if metrics.BurnoutRisk <= 30 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightPositive,
			Title:       "会议负荷健康",
			Description: "人均会议时长处于可持续区间",
			Impact:      models.ImpactLow,
			CreatedAt:   now,
		})
	}

	if metrics.WorkLifeBalance < 50 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightNegative,
			Title:       "工作生活平衡恶化",
			Description: fmt.Sprintf("平衡指数%.0f，非工作时间会议占比偏高", metrics.WorkLifeBalance),
			Impact:      models.ImpactHigh,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	if metrics.EngagementRate < 0.3 {
		insights = append(insights, models.AnalyticsInsight{
			ID:          uuid.New().String(),
			Type:        models.InsightSuggestion,
			Title:       "与会率偏低",
			Description: "可考虑精简常设会议，提高必要会议的出席质量",
			Impact:      models.ImpactMedium,
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	return insights
}

// RefreshToken OAuth令牌刷新
func (c *ZoomConnector) RefreshToken(ctx context.Context, credentials *models.Credentials) (*models.Credentials, error) {
	if credentials == nil || credentials.RefreshToken == "" {
		return nil, fmt.Errorf("%w: 缺少refresh_token", ErrAuth)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	path := "/oauth/token?grant_type=refresh_token&refresh_token=" + url.QueryEscape(credentials.RefreshToken)
	if err := c.client.getJSON(ctx, path, "", &payload); err != nil {
		return nil, err
	}
	if payload.AccessToken == "" {
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
