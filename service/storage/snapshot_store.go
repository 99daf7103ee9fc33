/*
 * @module service/storage/snapshot_store
 * @description 分析快照键值存储，按 analytics:<integrationId>:<时间戳> 组键持久化快照
 * @architecture 分层架构 - 存储层
 * @documentReference ai_docs/storage_design.md
 * @stateFlow 同步完成 -> 快照序列化 -> 键值写入 -> 读取端以每集成最新键为准
 * @rules 键内时间戳单调递增；读取端必须从序列化形态还原日期字段
 * @dependencies gorm.io/gorm, encoding/json
 * @refs service/models/analytics.go, service/connector/base.go
 */

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"teampulse-service/service/models"
)

// AnalyticsRecord 快照键值记录
type AnalyticsRecord struct {
	Key           string    `json:"key" gorm:"primaryKey;type:varchar(100)"`
	IntegrationID string    `json:"integration_id" gorm:"not null;type:varchar(36);index"`
	Payload       string    `json:"payload" gorm:"not null;type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// SnapshotStore 分析快照存储
type SnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// buildKey 由集成ID与时间戳派生存储键
func buildKey(integrationID string, ts time.Time) string {
	return fmt.Sprintf("analytics:%s:%d", integrationID, ts.UnixNano())
}

// Save 持久化分析快照
func (s *SnapshotStore) Save(snapshot *models.AnalyticsSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化分析快照失败: %w", err)
	}

	record := &AnalyticsRecord{
		Key:           buildKey(snapshot.IntegrationID, snapshot.LastUpdated),
		IntegrationID: snapshot.IntegrationID,
		Payload:       string(payload),
		CreatedAt:     snapshot.LastUpdated,
	}

	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("写入分析快照失败: %w", err)
	}
	return nil
}

// Latest 读取指定集成的最新快照，不存在时返回nil
// 键内时间戳等宽递增，每集成最新键即权威数据
func (s *SnapshotStore) Latest(integrationID string) (*models.AnalyticsSnapshot, error) {
	var record AnalyticsRecord
	err := s.db.Where("integration_id = ?", integrationID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("读取最新快照失败: %w", err)
	}

	return decodeSnapshot(&record)
}

// List 按时间倒序读取指定集成的历史快照
func (s *SnapshotStore) List(integrationID string, limit int) ([]*models.AnalyticsSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []AnalyticsRecord
	err := s.db.Where("integration_id = ?", integrationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("读取历史快照失败: %w", err)
	}

	snapshots := make([]*models.AnalyticsSnapshot, 0, len(records))
	for i := range records {
		snapshot, err := decodeSnapshot(&records[i])
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// Prune 按保留天数清理指定集成的历史快照
func (s *SnapshotStore) Prune(integrationID string, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.Where("integration_id = ? AND created_at < ?", integrationID, cutoff).
		Delete(&AnalyticsRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理历史快照失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// decodeSnapshot 从序列化形态还原快照，日期字段随JSON反序列化还原
func decodeSnapshot(record *AnalyticsRecord) (*models.AnalyticsSnapshot, error) {
	var snapshot models.AnalyticsSnapshot
	if err := json.Unmarshal([]byte(record.Payload), &snapshot); err != nil {
		return nil, fmt.Errorf("反序列化分析快照失败 key=%s: %w", record.Key, err)
	}
	return &snapshot, nil
}
