/*
 * @module api/controllers/alert_controller
 * @description 告警管理控制器，提供告警查询、已读与解决标记API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/alert_design.md
 * @stateFlow HTTP请求 -> 编排器/存储委派 -> 响应返回
 * @rules 核心只追加告警，已读与解决标记只能经由本控制器由外部调用方触发
 * @dependencies service/manager, service/storage
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"teampulse-service/service/manager"
	"teampulse-service/service/storage"
)

// AlertController 告警管理控制器
type AlertController struct {
	manager *manager.Manager
	store   *storage.IntegrationStore
}

// NewAlertController 创建告警控制器实例
func NewAlertController(m *manager.Manager, store *storage.IntegrationStore) *AlertController {
	return &AlertController{manager: m, store: store}
}

// List 查询告警
// @Summary 告警列表
// @Description 按级别与时间排序；integration_id为空时返回全部集成的告警
// @Tags 告警管理
// @Produce json
// @Param integration_id query string false "集成ID"
// @Param include_resolved query bool false "包含已解决告警"
// @Param limit query int false "条数限制"
// @Success 200 {object} APIResponse
// @Router /alerts [get]
func (c *AlertController) List(w http.ResponseWriter, r *http.Request) {
	integrationID := r.URL.Query().Get("integration_id")
	includeResolved, _ := strconv.ParseBool(r.URL.Query().Get("include_resolved"))

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}

	alerts, err := c.manager.GetAlerts(integrationID, includeResolved, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, r, alerts)
}

// MarkRead 标记告警已读
// @Summary 标记已读
// @Tags 告警管理
// @Produce json
// @Param id path string true "告警ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /alerts/{id}/read [post]
func (c *AlertController) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.store.MarkAlertRead(id); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeOK(w, r, nil)
}

// Resolve 解决告警
// @Summary 解决告警
// @Tags 告警管理
// @Produce json
// @Param id path string true "告警ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /alerts/{id}/resolve [post]
func (c *AlertController) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.store.ResolveAlert(id); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeOK(w, r, nil)
}
