/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/manager_design.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"teampulse-service/api/controllers"
	apimiddleware "teampulse-service/api/middleware"
	"teampulse-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, app *service.App) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", apimiddleware.APIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API密钥鉴权（未配置散列时自动关闭）
	r.Use(apimiddleware.NewAPIKeyAuth().Middleware)

	// 健康检查
	healthController := controllers.NewHealthController(app.Registry)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController(app.SSE)
	r.Get("/sse", eventController.HandleSSE)

	// 集成管理
	r.Route("/integrations", func(r chi.Router) {
		integrationController := controllers.NewIntegrationController(app.Manager)

		r.Get("/", integrationController.List)
		r.Post("/", integrationController.Create)

		// 舰队级操作放在参数路由之前，避免被{id}吞掉
		r.Post("/sync-all", integrationController.SyncAll)
		r.Get("/health-score", integrationController.HealthScore)
		r.Get("/insights", integrationController.Insights)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", integrationController.Get)
			r.Delete("/", integrationController.Delete)
			r.Post("/connect", integrationController.Connect)
			r.Post("/disconnect", integrationController.Disconnect)
			r.Post("/sync", integrationController.Sync)
			r.Put("/settings", integrationController.UpdateSettings)
			r.Get("/sync-history", integrationController.SyncHistory)
		})
	})

	// 仪表盘
	r.Route("/dashboard", func(r chi.Router) {
		dashboardController := controllers.NewDashboardController(app.Manager, app.SnapshotStore)

		r.Get("/", dashboardController.GetDashboard)
		r.Get("/snapshots/{id}", dashboardController.GetSnapshots)
		r.Get("/snapshots/{id}/latest", dashboardController.GetLatestSnapshot)
	})

	// 告警管理
	r.Route("/alerts", func(r chi.Router) {
		alertController := controllers.NewAlertController(app.Manager, app.IntegrationStore)

		r.Get("/", alertController.List)
		r.Post("/{id}/read", alertController.MarkRead)
		r.Post("/{id}/resolve", alertController.Resolve)
	})
}
