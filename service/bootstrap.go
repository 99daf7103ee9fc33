/*
 * @module service/bootstrap
 * @description 服务引导模块，按依赖顺序显式构造整个服务图并装配到App上
 * @architecture 分层架构 - 组合根，不使用包级全局与init副作用
 * @documentReference ai_docs/manager_design.md 引导一节
 * @stateFlow 数据库连接 -> 迁移 -> 缓存/限流后端选择 -> 连接器工厂 -> 编排器
 *            -> 事件总线/SSE/Kafka镜像 -> 加载持久化集成
 * @rules 所有依赖经构造函数注入；编排器实例按引用传递给API层，测试可独立构造多个App
 * @dependencies gorm.io/driver/postgres, gorm.io/driver/sqlite, service各子包
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"teampulse-service/service/alert"
	"teampulse-service/service/cache"
	"teampulse-service/service/cleanup"
	"teampulse-service/service/connector"
	"teampulse-service/service/distributed_lock"
	"teampulse-service/service/event"
	"teampulse-service/service/manager"
	"teampulse-service/service/models"
	"teampulse-service/service/monitoring"
	"teampulse-service/service/rate_limiter"
	"teampulse-service/service/storage"
	"teampulse-service/service/utils"
)

// App 进程级服务图
type App struct {
	DB               *gorm.DB
	Cache            cache.Cache
	Limiter          rate_limiter.Limiter
	AlertEngine      *alert.Engine
	IntegrationStore *storage.IntegrationStore
	SnapshotStore    *storage.SnapshotStore
	Bus              *event.Bus
	SSE              *event.SSEService
	KafkaSink        *event.KafkaSink
	MQTTSink         *event.MQTTSink
	Metrics          *monitoring.MetricsCollector
	Registry         *connector.Registry
	Manager          *manager.Manager
	Retention        *cleanup.RetentionService

	lock *distributed_lock.RedisLock
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewApp 按依赖顺序构造服务图
func NewApp() (*App, error) {
	db, err := openDatabase()
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	slog.Info("数据库连接成功")

	if err := storage.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	slog.Info("数据库表结构迁移完成")

	crypto := utils.NewCryptoUtils(os.Getenv("CREDENTIAL_KEY"))
	integrationStore := storage.NewIntegrationStore(db, crypto)
	snapshotStore := storage.NewSnapshotStore(db)

	metrics := monitoring.NewMetricsCollector()
	alertEngine := alert.NewEngine(alert.DefaultThresholds())
	bus := event.NewBus()
	sse := event.NewSSEService(bus)

	app := &App{
		DB:               db,
		Cache:            buildCache(),
		Limiter:          buildLimiter(),
		AlertEngine:      alertEngine,
		IntegrationStore: integrationStore,
		SnapshotStore:    snapshotStore,
		Bus:              bus,
		SSE:              sse,
		Metrics:          metrics,
		Registry:         connector.NewRegistry(),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := getEnvWithDefault("KAFKA_EVENT_TOPIC", "teampulse-lifecycle-events")
		app.KafkaSink = event.NewKafkaSink(bus, strings.Split(brokers, ","), topic)
	}

	if brokerURL := os.Getenv("MQTT_BROKER_URL"); brokerURL != "" {
		prefix := getEnvWithDefault("MQTT_EVENT_TOPIC_PREFIX", "teampulse/events")
		mqttSink, err := event.NewMQTTSink(bus, brokerURL, prefix)
		if err != nil {
			slog.Warn("MQTT事件镜像初始化失败，已跳过", "error", err)
		} else {
			app.MQTTSink = mqttSink
		}
	}

	deps := connector.Deps{
		Cache:     app.Cache,
		Limiter:   app.Limiter,
		Fallback:  connector.NewDegradedModeProvider(),
		Alerts:    alertEngine,
		Snapshots: snapshotStore,
		AlertSink: &meteredAlertSink{
			store:   integrationStore,
			metrics: metrics,
		},
		Script: connector.NewScriptExecutor(),
	}

	app.Manager = manager.NewManager(manager.Options{
		Factory:   connector.NewFactory(deps),
		Registry:  app.Registry,
		Bus:       bus,
		Store:     integrationStore,
		Snapshots: snapshotStore,
		Metrics:   metrics,
	})

	if err := app.loadPersistedIntegrations(); err != nil {
		return nil, err
	}

	// 多副本部署时保留期清理经分布式锁防重
	var lock distributed_lock.DistributedLock
	if getEnvWithDefault("REDIS_ENABLED", "false") == "true" {
		redisLock, err := distributed_lock.NewRedisLock()
		if err != nil {
			slog.Warn("分布式锁初始化失败，清理任务不做副本防重", "error", err)
		} else {
			app.lock = redisLock
			lock = redisLock
		}
	}

	app.Retention = cleanup.NewRetentionService(app.Registry, snapshotStore, lock)
	if err := app.Retention.Start(); err != nil {
		return nil, fmt.Errorf("启动保留期清理失败: %w", err)
	}

	slog.Info("服务初始化完成")
	return app, nil
}

// openDatabase 打开数据库连接
// 缺省使用PostgreSQL；DB_TYPE=sqlite用于本地调试
func openDatabase() (*gorm.DB, error) {
	if getEnvWithDefault("DB_TYPE", "postgres") == "sqlite" {
		path := getEnvWithDefault("SQLITE_PATH", "teampulse.db")
		return gorm.Open(sqlite.Open(path), &gorm.Config{})
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "teampulse2024")
		dbname := getEnvWithDefault("DB_NAME", "teampulse")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// buildCache 选择缓存后端，REDIS_ENABLED=true时使用Redis
func buildCache() cache.Cache {
	if getEnvWithDefault("REDIS_ENABLED", "false") == "true" {
		redisCache, err := cache.NewRedisCache("teampulse")
		if err == nil {
			slog.Info("缓存后端使用Redis")
			return redisCache
		}
		slog.Warn("Redis缓存初始化失败，回退内存缓存", "error", err)
	}
	return cache.NewMemoryCache()
}

// buildLimiter 选择限流后端
func buildLimiter() rate_limiter.Limiter {
	if getEnvWithDefault("REDIS_ENABLED", "false") == "true" {
		limiter, err := rate_limiter.NewRedisLimiter(60, 0)
		if err == nil {
			slog.Info("限流后端使用Redis")
			return limiter
		}
		slog.Warn("Redis限流器初始化失败，回退窗口限流器", "error", err)
	}
	return rate_limiter.NewWindowLimiter(60, 0)
}

// loadPersistedIntegrations 加载落库的集成并重建连接器
// 凭证已解密，但不自动重连：重启后由调用方显式connect
func (a *App) loadPersistedIntegrations() error {
	integrations, err := a.IntegrationStore.LoadIntegrations()
	if err != nil {
		return fmt.Errorf("加载持久化集成失败: %w", err)
	}

	for _, integration := range integrations {
		// 重启后状态收敛：非disconnected一律回到disconnected等待重连
		if integration.Status != models.StatusDisconnected {
			integration.Status = models.StatusDisconnected
		}
	}

	if err := a.Manager.Initialize(context.Background(), integrations); err != nil {
		return err
	}

	slog.Info("持久化集成已加载", "count", len(integrations))
	return nil
}

// Close 释放服务图持有的资源
func (a *App) Close() {
	a.Manager.Stop()
	a.SSE.Stop()
	if a.Retention != nil {
		a.Retention.Stop()
	}
	if a.KafkaSink != nil {
		if err := a.KafkaSink.Close(); err != nil {
			slog.Warn("关闭Kafka镜像失败", "error", err)
		}
	}
	if a.MQTTSink != nil {
		if err := a.MQTTSink.Close(); err != nil {
			slog.Warn("关闭MQTT镜像失败", "error", err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Close(); err != nil {
			slog.Warn("关闭分布式锁失败", "error", err)
		}
	}
}

// meteredAlertSink 告警落地适配器，持久化前先做监控打点
type meteredAlertSink struct {
	store   *storage.IntegrationStore
	metrics *monitoring.MetricsCollector
}

func (s *meteredAlertSink) AppendAlerts(alerts []models.AnalyticsAlert) error {
	if s.metrics != nil {
		s.metrics.AddAlerts(alerts)
	}
	return s.store.AppendAlerts(alerts)
}
