/*
 * @module service/event/sse
 * @description SSE推送服务，管理UI客户端连接并把总线上的生命周期事件实时推送给订阅端
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/event_req.md
 * @stateFlow 客户端接入 -> 订阅总线 -> 事件入客户端队列 -> 控制器写出 -> 断开清理
 * @rules 客户端队列满时丢弃该客户端的当次事件，不阻塞总线分发
 * @dependencies service/event/bus.go, github.com/google/uuid
 * @refs api/controllers/event_controller.go
 */

package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"teampulse-service/service/models"
)

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	ClientIP string
	Channel  chan *models.LifecycleEvent
	Done     chan struct{}
}

// SSEService SSE推送服务
type SSEService struct {
	bus         *Bus
	mu          sync.RWMutex
	clients     map[string]*SSEClient
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewSSEService 创建SSE推送服务并订阅事件总线
func NewSSEService(bus *Bus) *SSEService {
	ctx, cancel := context.WithCancel(context.Background())

	s := &SSEService{
		bus:     bus,
		clients: make(map[string]*SSEClient),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.unsubscribe = bus.Subscribe(s.broadcast)
	go s.startCleanupLoop()

	return s
}

// AddClient 接入SSE客户端
func (s *SSEService) AddClient(clientIP string) *SSEClient {
	client := &SSEClient{
		ID:       uuid.New().String(),
		ClientIP: clientIP,
		Channel:  make(chan *models.LifecycleEvent, 100), // 缓冲100个事件
		Done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[client.ID] = client
	s.mu.Unlock()

	slog.Info("SSE连接已建立", "connection_id", client.ID, "client_ip", clientIP)
	return client
}

// RemoveClient 移除SSE客户端
func (s *SSEService) RemoveClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, exists := s.clients[clientID]; exists {
		close(client.Done)
		delete(s.clients, clientID)
		slog.Info("SSE连接已断开", "connection_id", clientID)
	}
}

// ClientCount 当前在线客户端数
func (s *SSEService) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// broadcast 把总线事件分发到全部客户端队列
func (s *SSEService) broadcast(event *models.LifecycleEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.Channel <- event:
		default:
			// 队列满，丢弃该客户端的当次事件
			slog.Warn("SSE客户端队列已满，跳过发送", "connection_id", client.ID, "event_type", event.Type)
		}
	}
}

// startCleanupLoop 定期清理已结束的客户端
func (s *SSEService) startCleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupClosedClients()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupClosedClients 清理Done已关闭的客户端
func (s *SSEService) cleanupClosedClients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, client := range s.clients {
		select {
		case <-client.Done:
			delete(s.clients, id)
		default:
		}
	}
}

// Stop 停止SSE服务并断开全部客户端
func (s *SSEService) Stop() {
	s.cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.mu.Lock()
	for _, client := range s.clients {
		close(client.Done)
	}
	s.clients = make(map[string]*SSEClient)
	s.mu.Unlock()

	slog.Info("SSE推送服务已停止")
}
