/*
 * @module service/models/integration
 * @description 集成模型定义，描述一个协作服务接入（聊天/视频/协同办公）的身份、配置、凭证与状态
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/integration_req.md
 * @stateFlow 集成状态机：disconnected -> connecting -> connected / error
 * @rules healthScore必须在[0,100]区间；disconnected之外的状态必须持有凭证
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/spf13/cast
 * @refs service/connector, service/manager
 */

package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// IntegrationStatus 集成状态
type IntegrationStatus string

const (
	StatusDisconnected IntegrationStatus = "disconnected"
	StatusConnecting   IntegrationStatus = "connecting"
	StatusConnected    IntegrationStatus = "connected"
	StatusError        IntegrationStatus = "error"
)

// 支持的服务类型，工厂在启动时注册，集合编译期封闭
const (
	ServiceTypeSlack     = "slack"
	ServiceTypeZoom      = "zoom"
	ServiceTypeWorkspace = "workspace"
)

// IntegrationConfig 集成配置
// CustomSettings 是显式分离的厂商自定义扩展区，已识别的选项一律使用类型化字段
type IntegrationConfig struct {
	Scopes              JSONBStringArray `json:"scopes" gorm:"type:jsonb"`
	Permissions         JSONBStringArray `json:"permissions" gorm:"type:jsonb"`
	DataRetentionDays   int              `json:"data_retention_days" gorm:"default:30" example:"30"`
	SyncIntervalMinutes int              `json:"sync_interval_minutes" gorm:"default:15" example:"15"`
	EnabledFeatures     JSONBStringArray `json:"enabled_features" gorm:"type:jsonb"`
	CustomSettings      JSONB            `json:"custom_settings,omitempty" gorm:"type:jsonb"`
}

// Validate 校验集成配置
func (c *IntegrationConfig) Validate() error {
	if c.DataRetentionDays < 1 {
		return errors.New("数据保留天数必须大于等于1")
	}
	if c.SyncIntervalMinutes < 1 {
		return errors.New("同步间隔分钟数必须大于等于1")
	}
	return nil
}

// Clone 深拷贝集成配置
func (c IntegrationConfig) Clone() IntegrationConfig {
	out := c
	out.Scopes = append(JSONBStringArray(nil), c.Scopes...)
	out.Permissions = append(JSONBStringArray(nil), c.Permissions...)
	out.EnabledFeatures = append(JSONBStringArray(nil), c.EnabledFeatures...)
	if c.CustomSettings != nil {
		out.CustomSettings = make(JSONB, len(c.CustomSettings))
		for k, v := range c.CustomSettings {
			out.CustomSettings[k] = v
		}
	}
	return out
}

// CustomString 读取厂商自定义设置中的字符串值
func (c *IntegrationConfig) CustomString(key, defaultValue string) string {
	if c.CustomSettings == nil {
		return defaultValue
	}
	if v, ok := c.CustomSettings[key]; ok {
		if s, err := cast.ToStringE(v); err == nil && s != "" {
			return s
		}
	}
	return defaultValue
}

// CustomInt 读取厂商自定义设置中的整数值
func (c *IntegrationConfig) CustomInt(key string, defaultValue int) int {
	if c.CustomSettings == nil {
		return defaultValue
	}
	if v, ok := c.CustomSettings[key]; ok {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// CustomDuration 读取厂商自定义设置中的时长值（秒）
func (c *IntegrationConfig) CustomDuration(key string, defaultValue time.Duration) time.Duration {
	if c.CustomSettings == nil {
		return defaultValue
	}
	if v, ok := c.CustomSettings[key]; ok {
		if n, err := cast.ToIntE(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

// Credentials 访问凭证
// 凭证仅在内存中以明文存在，落库前由crypto工具加密为密文列
type Credentials struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	APIKey       string     `json:"api_key,omitempty"`
}

// IsExpired 判断访问令牌是否已过期
func (c *Credentials) IsExpired() bool {
	if c == nil {
		return true
	}
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.ExpiresAt)
}

// IsEmpty 判断凭证是否为空
func (c *Credentials) IsEmpty() bool {
	return c == nil || (c.AccessToken == "" && c.APIKey == "")
}

// Clone 深拷贝凭证
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	out := *c
	if c.ExpiresAt != nil {
		expiresAt := *c.ExpiresAt
		out.ExpiresAt = &expiresAt
	}
	return &out
}

// Integration 集成实体模型
type Integration struct {
	ID          string            `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string            `json:"name" gorm:"not null;size:100" example:"研发部Slack工作区"`
	ServiceType string            `json:"service_type" gorm:"not null;size:20;index" example:"slack"` // slack, zoom, workspace
	Config      IntegrationConfig `json:"config" gorm:"embedded;embeddedPrefix:config_"`
	Status      IntegrationStatus `json:"status" gorm:"not null;size:20;default:'disconnected'" example:"disconnected"`
	HealthScore int               `json:"health_score" gorm:"default:0" example:"85"` // 0-100
	LastSync    *time.Time        `json:"last_sync,omitempty"`
	LastError   string            `json:"last_error,omitempty" gorm:"type:text"`
	ErrorCount  int               `json:"error_count" gorm:"default:0" example:"0"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	// 运行时凭证，不落库，持久化走加密列
	Credentials *Credentials `json:"-" gorm:"-"`
	// 加密后的凭证密文
	CredentialsEnc string `json:"-" gorm:"type:text;column:credentials_enc"`
}

// BeforeCreate GORM钩子，创建前生成UUID并校验
func (i *Integration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = StatusDisconnected
	}
	return i.Config.Validate()
}

// Clone 深拷贝集成实体，读侧持有独立副本，不与连接器内部状态共享
func (i *Integration) Clone() *Integration {
	if i == nil {
		return nil
	}
	out := *i
	out.Config = i.Config.Clone()
	out.Credentials = i.Credentials.Clone()
	if i.LastSync != nil {
		lastSync := *i.LastSync
		out.LastSync = &lastSync
	}
	return &out
}

// CanSync 判断当前状态是否允许发起同步
func (i *Integration) CanSync() bool {
	return i.Status == StatusConnected || i.Status == StatusError
}

// SetHealthScore 写入健康分并收敛到[0,100]
func (i *Integration) SetHealthScore(score int) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	i.HealthScore = score
}

// SyncInterval 获取同步间隔
// 自定义设置 sync_interval_seconds 允许覆盖为秒级间隔，供短周期部署使用
func (i *Integration) SyncInterval() time.Duration {
	base := time.Duration(i.Config.SyncIntervalMinutes) * time.Minute
	return i.Config.CustomDuration("sync_interval_seconds", base)
}
