/*
 * @module api/controllers/integration_controller
 * @description 集成管理控制器，提供集成的增删查、连接/断开/同步与配置更新API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/manager_design.md
 * @stateFlow HTTP请求 -> 编排器委派 -> 响应返回
 * @rules 控制器只做参数解析与响应封装，业务逻辑全部走编排器
 * @dependencies service/manager, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"teampulse-service/service/manager"
	"teampulse-service/service/models"
)

// IntegrationController 集成管理控制器
type IntegrationController struct {
	manager *manager.Manager
}

// NewIntegrationController 创建集成控制器实例
func NewIntegrationController(m *manager.Manager) *IntegrationController {
	return &IntegrationController{manager: m}
}

// CreateIntegrationRequest 创建集成请求
type CreateIntegrationRequest struct {
	Name        string                   `json:"name"`
	ServiceType string                   `json:"service_type"`
	Config      models.IntegrationConfig `json:"config"`
}

// ConnectRequest 连接请求
type ConnectRequest struct {
	Credentials models.Credentials `json:"credentials"`
}

// List 查询全部集成
// @Summary 集成列表
// @Description 返回全部已注册集成的状态摘要
// @Tags 集成管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /integrations [get]
func (c *IntegrationController) List(w http.ResponseWriter, r *http.Request) {
	summaries := make([]models.IntegrationStatusSummary, 0)
	for _, conn := range c.manager.Registry().GetAll() {
		integration := conn.Integration()
		summaries = append(summaries, models.IntegrationStatusSummary{
			IntegrationID: integration.ID,
			Name:          integration.Name,
			Status:        conn.Status(),
			HealthScore:   conn.HealthScore(),
			LastSync:      integration.LastSync,
			ErrorCount:    integration.ErrorCount,
		})
	}
	writeOK(w, r, summaries)
}

// Get 查询单个集成
// @Summary 集成详情
// @Tags 集成管理
// @Produce json
// @Param id path string true "集成ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /integrations/{id} [get]
func (c *IntegrationController) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, exists := c.manager.Registry().Get(id)
	if !exists {
		writeError(w, r, http.StatusNotFound, "集成不存在")
		return
	}
	writeOK(w, r, conn.Integration())
}

// Create 创建集成
// @Summary 创建集成
// @Tags 集成管理
// @Accept json
// @Produce json
// @Param request body CreateIntegrationRequest true "创建集成请求"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /integrations [post]
func (c *IntegrationController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIntegrationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "请求参数解析失败")
		return
	}
	if req.Name == "" || req.ServiceType == "" {
		writeError(w, r, http.StatusBadRequest, "name与service_type不能为空")
		return
	}

	integration := &models.Integration{
		Name:        req.Name,
		ServiceType: req.ServiceType,
		Config:      req.Config,
		Status:      models.StatusDisconnected,
	}
	if integration.Config.DataRetentionDays == 0 {
		integration.Config.DataRetentionDays = 30
	}
	if integration.Config.SyncIntervalMinutes == 0 {
		integration.Config.SyncIntervalMinutes = 15
	}

	conn, err := c.manager.AddIntegration(r.Context(), integration)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, r, conn.Integration())
}

// Delete 删除集成
// @Summary 删除集成
// @Tags 集成管理
// @Produce json
// @Param id path string true "集成ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /integrations/{id} [delete]
func (c *IntegrationController) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.manager.RemoveIntegration(r.Context(), id); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeOK(w, r, nil)
}

// Connect 连接集成
// @Summary 连接集成
// @Tags 集成管理
// @Accept json
// @Produce json
// @Param id path string true "集成ID"
// @Param request body ConnectRequest true "连接请求"
// @Success 200 {object} APIResponse
// @Failure 401 {object} APIResponse
// @Router /integrations/{id}/connect [post]
func (c *IntegrationController) Connect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConnectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "请求参数解析失败")
		return
	}

	ok, err := c.manager.Connect(r.Context(), id, &req.Credentials)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "凭证校验失败")
		return
	}
	writeOK(w, r, map[string]interface{}{"connected": true})
}

// Disconnect 断开集成
// @Summary 断开集成
// @Tags 集成管理
// @Produce json
// @Param id path string true "集成ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /integrations/{id}/disconnect [post]
func (c *IntegrationController) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := c.manager.Disconnect(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeOK(w, r, map[string]interface{}{"disconnected": ok})
}

// Sync 触发一次同步
// @Summary 触发同步
// @Tags 集成管理
// @Produce json
// @Param id path string true "集成ID"
// @Success 200 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /integrations/{id}/sync [post]
func (c *IntegrationController) Sync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := c.manager.Sync(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	writeOK(w, r, result)
}

// SyncAll 同步全部connected集成
// @Summary 全量同步
// @Tags 集成管理
// @Produce json
// @Success 200 {object} APIResponse
// @Router /integrations/sync-all [post]
func (c *IntegrationController) SyncAll(w http.ResponseWriter, r *http.Request) {
	results := c.manager.SyncAll(r.Context())
	writeOK(w, r, results)
}

// UpdateSettings 更新集成配置
// @Summary 更新集成配置
// @Tags 集成管理
// @Accept json
// @Produce json
// @Param id path string true "集成ID"
// @Param request body models.IntegrationConfig true "集成配置"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /integrations/{id}/settings [put]
func (c *IntegrationController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var config models.IntegrationConfig
	if err := render.DecodeJSON(r.Body, &config); err != nil {
		writeError(w, r, http.StatusBadRequest, "请求参数解析失败")
		return
	}

	if err := c.manager.UpdateSettings(r.Context(), id, config); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, r, nil)
}

// HealthScore 查询健康分
// @Summary 健康分
// @Description id为空时返回全体connected集成的平均健康分
// @Tags 集成管理
// @Produce json
// @Param id query string false "集成ID"
// @Success 200 {object} APIResponse
// @Router /integrations/health-score [get]
func (c *IntegrationController) HealthScore(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	score, err := c.manager.GetHealthScore(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeOK(w, r, map[string]interface{}{"health_score": score})
}

// Insights 查询洞察
// @Summary 洞察列表
// @Description 按影响级别排序，id为空时聚合全部connected集成
// @Tags 集成管理
// @Produce json
// @Param id query string false "集成ID"
// @Success 200 {object} APIResponse
// @Router /integrations/insights [get]
func (c *IntegrationController) Insights(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	insights, err := c.manager.GetInsights(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeOK(w, r, insights)
}

// SyncHistory 查询同步历史
// @Summary 同步历史
// @Tags 集成管理
// @Produce json
// @Param id path string true "集成ID"
// @Param limit query int false "条数限制"
// @Success 200 {object} APIResponse
// @Router /integrations/{id}/sync-history [get]
func (c *IntegrationController) SyncHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history := c.manager.SyncHistory(id)

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < len(history) {
			history = history[len(history)-limit:]
		}
	}
	writeOK(w, r, history)
}
