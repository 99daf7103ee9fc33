/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models, service/storage
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"teampulse-service/service/models"
	"teampulse-service/service/storage"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	if err := storage.AutoMigrate(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"integrations",
		"analytics_alerts",
		"analytics_records",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// IntegrationOption 集成选项函数类型
type IntegrationOption func(*models.Integration)

// NewIntegration 创建测试集成
func NewIntegration(serviceType string, opts ...IntegrationOption) *models.Integration {
	now := time.Now()
	integration := &models.Integration{
		ID:          generateID("int"),
		Name:        "测试集成_" + generateSuffix(),
		ServiceType: serviceType,
		Status:      models.StatusDisconnected,
		Config: models.IntegrationConfig{
			DataRetentionDays:   30,
			SyncIntervalMinutes: 15,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, opt := range opts {
		opt(integration)
	}
	return integration
}

// WithStatus 设置集成状态
func WithStatus(status models.IntegrationStatus) IntegrationOption {
	return func(i *models.Integration) { i.Status = status }
}

// WithCredentials 设置集成凭证
func WithCredentials(creds *models.Credentials) IntegrationOption {
	return func(i *models.Integration) { i.Credentials = creds }
}

// WithCustomSetting 设置厂商自定义扩展项
func WithCustomSetting(key string, value interface{}) IntegrationOption {
	return func(i *models.Integration) {
		if i.Config.CustomSettings == nil {
			i.Config.CustomSettings = models.JSONB{}
		}
		i.Config.CustomSettings[key] = value
	}
}

// FreshCredentials 创建未过期的测试凭证
func FreshCredentials() *models.Credentials {
	expiresAt := time.Now().Add(time.Hour)
	return &models.Credentials{
		AccessToken:  "test-access-token-" + generateSuffix(),
		RefreshToken: "test-refresh-token",
		ExpiresAt:    &expiresAt,
	}
}

// ExpiredCredentials 创建已过期的测试凭证
func ExpiredCredentials() *models.Credentials {
	expiresAt := time.Now().Add(-time.Hour)
	return &models.Credentials{
		AccessToken:  "stale-access-token",
		RefreshToken: "test-refresh-token",
		ExpiresAt:    &expiresAt,
	}
}

// ActivityOption 活动数据选项函数类型
type ActivityOption func(*models.RawActivity)

// NewRawActivity 创建测试活动数据
func NewRawActivity(opts ...ActivityOption) *models.RawActivity {
	activity := &models.RawActivity{
		Source:          models.ServiceTypeSlack,
		CollectedAt:     time.Now(),
		MessageCount:    320,
		ActiveUsers:     18,
		TotalUsers:      20,
		ResponseTimes:   []float64{30, 60, 90, 120},
		AfterHoursRatio: 0.1,
		Reactions:       96,
		ThreadReplies:   48,
		Records:         320,
	}

	for _, opt := range opts {
		opt(activity)
	}
	return activity
}

// NewMetrics 创建测试指标
// 默认值对应健康分92的基准场景
func NewMetrics(opts ...func(*models.AnalyticsMetrics)) models.AnalyticsMetrics {
	metrics := models.AnalyticsMetrics{
		MessageVolume:   320,
		ActiveUsers:     18,
		AvgResponseTime: 60,
		EngagementRate:  0.9,
		BurnoutRisk:     10,
		StressLevel:     15,
		WorkLifeBalance: 85,
		TeamCohesion:    90,
	}

	for _, opt := range opts {
		opt(&metrics)
	}
	return metrics
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
