/*
 * @module service/connector/registry
 * @description 连接器注册表，按集成ID维护存活连接器实例并回答成员/状态查询
 * @architecture 注册表模式 - 并发安全的实例集合
 * @documentReference ai_docs/connector_design.md 工厂与注册表一节
 * @stateFlow 编排器初始化时Add -> 运行期Get/GetAll/GetConnected -> 移除集成时Remove
 * @rules 注册表只存契约接口，不感知具体厂商类型
 * @dependencies sync
 * @refs service/manager
 */

package connector

import (
	"sort"
	"sync"

	"teampulse-service/service/models"
)

// Registry 连接器注册表
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]Connector),
	}
}

// Add 注册连接器，同ID重复注册直接覆盖
func (r *Registry) Add(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.ID()] = c
}

// Remove 移除连接器，返回是否存在
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.connectors[id]
	delete(r.connectors, id)
	return exists
}

// Get 按ID查找连接器
func (r *Registry) Get(id string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.connectors[id]
	return c, exists
}

// GetAll 返回全部连接器，按ID排序保证遍历稳定
func (r *Registry) GetAll() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	return all
}

// GetConnected 返回处于connected状态的连接器
func (r *Registry) GetConnected() []Connector {
	connected := make([]Connector, 0)
	for _, c := range r.GetAll() {
		if c.Status() == models.StatusConnected {
			connected = append(connected, c)
		}
	}
	return connected
}

// Len 当前注册的连接器数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connectors)
}
