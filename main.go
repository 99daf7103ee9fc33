package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"teampulse-service/api"
	_ "teampulse-service/docs"
	"teampulse-service/logger"
	"teampulse-service/service"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	PORT         = 80
	BASE_CONTEXT = ""
)

func init() {
	if val := os.Getenv("LISTEN_PORT"); val != "" {
		PORT, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("BASE_CONTEXT"); val != "" {
		BASE_CONTEXT = val
	}
}

// @title TeamPulse 集成编排服务 API
// @version 1.0
// @description 团队协作健康分析后台服务，编排Slack/Zoom/Workspace连接器的生命周期与数据同步
// @BasePath /
func main() {
	logger.InitLogger()

	app, err := service.NewApp()
	if err != nil {
		log.Fatalf("服务初始化失败: %v", err)
	}

	metricsHandler := promhttp.HandlerFor(app.Metrics.Registry(), promhttp.HandlerOpts{})

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if BASE_CONTEXT != "" {
		mux.Route(BASE_CONTEXT, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux, app)
			r.Handle("/metrics", metricsHandler)
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, app)
		mux.Handle("/metrics", metricsHandler)
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(PORT), mux)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("收到退出信号，开始优雅关闭")
		app.Close()
		if err := s.GracefulStop(); err != nil {
			slog.Error("服务关闭失败", "error", err)
		}
	}()

	slog.Info("服务启动", "port", PORT, "base_context", BASE_CONTEXT)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}
