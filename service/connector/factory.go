/*
 * @module service/connector/factory
 * @description 连接器工厂，服务类型到构造函数的编译期封闭映射
 * @architecture 工厂模式 - 静态注册，不做动态插件加载
 * @documentReference ai_docs/connector_design.md 工厂与注册表一节
 * @stateFlow 启动时注册全部构造函数 -> 按集成配置实例化连接器
 * @rules 厂商集合编译期确定；未知服务类型直接报错，不做兜底构造
 * @dependencies service/models
 * @refs service/connector/registry.go, service/manager
 */

package connector

import (
	"fmt"
	"sort"

	"teampulse-service/service/models"
)

// Constructor 连接器构造函数
type Constructor func(integration *models.Integration, deps Deps) Connector

// Factory 连接器工厂
type Factory struct {
	deps         Deps
	constructors map[string]Constructor
}

// NewFactory 创建连接器工厂，厂商集合在此一次性注册
func NewFactory(deps Deps) *Factory {
	return &Factory{
		deps: deps,
		constructors: map[string]Constructor{
			models.ServiceTypeSlack: func(i *models.Integration, d Deps) Connector {
				return NewSlackConnector(i, d)
			},
			models.ServiceTypeZoom: func(i *models.Integration, d Deps) Connector {
				return NewZoomConnector(i, d)
			},
			models.ServiceTypeWorkspace: func(i *models.Integration, d Deps) Connector {
				return NewWorkspaceConnector(i, d)
			},
		},
	}
}

// Create 按集成的服务类型实例化连接器
func (f *Factory) Create(integration *models.Integration) (Connector, error) {
	if integration == nil {
		return nil, fmt.Errorf("集成不能为空")
	}
	if err := integration.Config.Validate(); err != nil {
		return nil, fmt.Errorf("集成配置无效: %w", err)
	}

	construct, ok := f.constructors[integration.ServiceType]
	if !ok {
		return nil, fmt.Errorf("不支持的服务类型: %s", integration.ServiceType)
	}
	return construct(integration, f.deps), nil
}

// Supported 返回支持的服务类型列表
func (f *Factory) Supported() []string {
	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
