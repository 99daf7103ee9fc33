/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态检查
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/manager_design.md
 * @stateFlow HTTP请求处理流程
 * @rules 提供简单的健康检查接口，用于容器健康检查和负载均衡
 * @dependencies net/http
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"teampulse-service/service/connector"
)

// HealthController 健康检查控制器
type HealthController struct {
	registry *connector.Registry
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(registry *connector.Registry) *HealthController {
	return &HealthController{registry: registry}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status       string    `json:"status" example:"ok"`
	Timestamp    time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version      string    `json:"version" example:"1.0.0"`
	Service      string    `json:"service" example:"teampulse-service"`
	Integrations int       `json:"integrations" example:"3"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:       "ok",
		Timestamp:    time.Now(),
		Version:      "1.0.0",
		Service:      "teampulse-service",
		Integrations: c.registry.Len(),
	})
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查服务是否就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:       "ready",
		Timestamp:    time.Now(),
		Version:      "1.0.0",
		Service:      "teampulse-service",
		Integrations: c.registry.Len(),
	})
}
