/*
 * @module api/controllers/dashboard_controller
 * @description 仪表盘控制器，提供舰队级聚合数据与历史快照查询API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/manager_design.md 仪表盘一节
 * @stateFlow HTTP请求 -> 编排器聚合/快照存储查询 -> 响应返回
 * @rules 仪表盘必须始终可渲染，聚合失败返回空壳数据而非错误页
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

// DashboardController 仪表盘控制器
type DashboardController struct {
	manager   *manager.Manager
	snapshots *storage.SnapshotStore
}

// NewDashboardController 创建仪表盘控制器实例
func NewDashboardController(m *manager.Manager, snapshots *storage.SnapshotStore) *DashboardController {
	return &DashboardController{manager: m, snapshots: snapshots}
}

// GetDashboard 查询舰队级仪表盘数据
// @Summary 仪表盘数据
// @Description 返回整体健康分、集成状态、近期洞察与头部指标
// @Tags 仪表盘
// @Produce json
// @Success 200 {object} APIResponse
// @Router /dashboard [get]
func (c *DashboardController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := c.manager.GetDashboardData()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, r, data)
}

// GetSnapshots 查询集成的历史分析快照
// @Summary 历史快照
// @Tags 仪表盘
// @Produce json
// @Param id path string true "集成ID"
// @Param limit query int false "条数限制"
// @Success 200 {object} APIResponse
// @Router /dashboard/snapshots/{id} [get]
func (c *DashboardController) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}

	snapshots, err := c.snapshots.List(id, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, r, snapshots)
}

// GetLatestSnapshot 查询集成的最新分析快照
// @Summary 最新快照
// @Tags 仪表盘
// @Produce json
// @Param id path string true "集成ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /dashboard/snapshots/{id}/latest [get]
func (c *DashboardController) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshot, err := c.snapshots.Latest(id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if snapshot == nil {
		writeError(w, r, http.StatusNotFound, "该集成尚无分析快照")
		return
	}
	writeOK(w, r, snapshot)
}
