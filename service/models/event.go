/*
 * @module service/models/event
 * @description 生命周期事件模型定义，编排器通过事件总线向外部协作方（UI）通知状态迁移
 * @architecture 事件驱动架构 - 数据模型层
 * @documentReference ai_docs/event_req.md
 * @stateFlow 事件生产 -> 总线分发 -> SSE推送 / Kafka镜像
 * @rules 事件载荷必须携带integrationId；事件一经发布不可变更
 * @dependencies github.com/google/uuid
 * @refs service/event, service/manager
 */

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType 生命周期事件类型
type EventType string

const (
	EventConnecting       EventType = "connecting"
	EventConnected        EventType = "connected"
	EventConnectionFailed EventType = "connection_failed"
	EventDisconnecting    EventType = "disconnecting"
	EventDisconnected     EventType = "disconnected"
	EventSyncStarted      EventType = "sync_started"
	EventSyncCompleted    EventType = "sync_completed"
	EventSyncFailed       EventType = "sync_failed"
	EventSyncError        EventType = "sync_error"
	EventSyncAllStarted   EventType = "sync_all_started"
	EventSyncAllCompleted EventType = "sync_all_completed"
	EventSettingsUpdated  EventType = "settings_updated"
)

// LifecycleEvent 生命周期事件
type LifecycleEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	IntegrationID string    `json:"integration_id"` // sync_all_*事件为空
	Payload       JSONB     `json:"payload,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLifecycleEvent 创建生命周期事件
func NewLifecycleEvent(eventType EventType, integrationID string, payload JSONB) *LifecycleEvent {
	return &LifecycleEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		IntegrationID: integrationID,
		Payload:       payload,
		Timestamp:     time.Now(),
	}
}
