/*
 * @module service/storage/integration_store
 * @description 集成与告警持久化，凭证落库前经AES加密，告警只追加并由外部调用方解决
 * @architecture 分层架构 - 存储层
 * @documentReference ai_docs/storage_design.md
 * @stateFlow 集成保存(凭证加密) -> 加载(凭证解密) / 告警追加 -> 已读/解决标记
 * @rules 凭证明文不落库；告警解决与已读只能由外部调用方触发
 * @dependencies gorm.io/gorm, service/utils
 * @refs service/models/integration.go, service/models/analytics.go
 */

package storage

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"teampulse-service/service/models"
	"teampulse-service/service/utils"
)

// IntegrationStore 集成与告警存储
type IntegrationStore struct {
	db     *gorm.DB
	crypto *utils.CryptoUtils
}

// NewIntegrationStore 创建集成存储
func NewIntegrationStore(db *gorm.DB, crypto *utils.CryptoUtils) *IntegrationStore {
	return &IntegrationStore{db: db, crypto: crypto}
}

// AutoMigrate 迁移存储层相关表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Integration{},
		&models.AnalyticsAlert{},
		&AnalyticsRecord{},
	)
}

// SaveIntegration 保存集成，运行时凭证加密为密文列
func (s *IntegrationStore) SaveIntegration(integration *models.Integration) error {
	if integration.Credentials != nil && !integration.Credentials.IsEmpty() {
		plain, err := json.Marshal(integration.Credentials)
		if err != nil {
			return fmt.Errorf("序列化凭证失败: %w", err)
		}
		enc, err := s.crypto.AESEncrypt(string(plain))
		if err != nil {
			return fmt.Errorf("加密凭证失败: %w", err)
		}
		integration.CredentialsEnc = enc
	} else {
		integration.CredentialsEnc = ""
	}

	return s.db.Save(integration).Error
}

// LoadIntegrations 加载全部集成并解密凭证
func (s *IntegrationStore) LoadIntegrations() ([]*models.Integration, error) {
	var integrations []*models.Integration
	if err := s.db.Order("created_at").Find(&integrations).Error; err != nil {
		return nil, fmt.Errorf("加载集成失败: %w", err)
	}

	for _, integration := range integrations {
		if integration.CredentialsEnc == "" {
			continue
		}
		plain, err := s.crypto.AESDecrypt(integration.CredentialsEnc)
		if err != nil {
			return nil, fmt.Errorf("解密凭证失败 integration=%s: %w", integration.ID, err)
		}
		var creds models.Credentials
		if err := json.Unmarshal([]byte(plain), &creds); err != nil {
			return nil, fmt.Errorf("反序列化凭证失败 integration=%s: %w", integration.ID, err)
		}
		integration.Credentials = &creds
	}
	return integrations, nil
}

// DeleteIntegration 删除集成
func (s *IntegrationStore) DeleteIntegration(integrationID string) error {
	return s.db.Delete(&models.Integration{}, "id = ?", integrationID).Error
}

// AppendAlerts 追加告警，核心只追加不修改
func (s *IntegrationStore) AppendAlerts(alerts []models.AnalyticsAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	return s.db.Create(&alerts).Error
}

// ListAlerts 按条件查询告警，按级别与时间排序
func (s *IntegrationStore) ListAlerts(integrationID string, includeResolved bool, limit int) ([]models.AnalyticsAlert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.db.Model(&models.AnalyticsAlert{})
	if integrationID != "" {
		query = query.Where("integration_id = ?", integrationID)
	}
	if !includeResolved {
		query = query.Where("resolved = ?", false)
	}

	var alerts []models.AnalyticsAlert
	err := query.Order("created_at DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("查询告警失败: %w", err)
	}
	return alerts, nil
}

// CountCriticalAlerts 统计未解决的critical告警数
func (s *IntegrationStore) CountCriticalAlerts() (int64, error) {
	var count int64
	err := s.db.Model(&models.AnalyticsAlert{}).
		Where("severity = ? AND resolved = ?", models.SeverityCritical, false).
		Count(&count).Error
	return count, err
}

// MarkAlertRead 标记告警已读
func (s *IntegrationStore) MarkAlertRead(alertID string) error {
	result := s.db.Model(&models.AnalyticsAlert{}).
		Where("id = ?", alertID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("告警不存在: %s", alertID)
	}
	return nil
}

// ResolveAlert 解决告警，由外部调用方显式触发
func (s *IntegrationStore) ResolveAlert(alertID string) error {
	result := s.db.Model(&models.AnalyticsAlert{}).
		Where("id = ?", alertID).
		Updates(map[string]interface{}{"resolved": true, "read": true})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("告警不存在: %s", alertID)
	}
	return nil
}
