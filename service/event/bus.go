/*
 * @module service/event/bus
 * @description 进程内事件总线，编排器经总线向外部协作方广播生命周期事件
 * @architecture 事件驱动架构 - 进程内发布/订阅
 * @documentReference ai_docs/event_req.md
 * @stateFlow 编排器Publish -> 总线异步分发 -> SSE推送 / Kafka镜像
 * @rules 单个订阅者的panic不得影响其他订阅者与发布方；事件发布后不可变更
 * @dependencies sync, log/slog
 * @refs service/manager, service/event/sse.go, service/event/kafka_sink.go
 */

package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"teampulse-service/service/models"
)

// Handler 事件处理函数
type Handler func(event *models.LifecycleEvent)

// Bus 进程内事件总线
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]Handler
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]Handler),
	}
}

// Subscribe 订阅全部事件，返回取消订阅函数
func (b *Bus) Subscribe(handler Handler) func() {
	id := uuid.New().String()

	b.mu.Lock()
	b.subscribers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Publish 发布事件，异步分发到全部订阅者
func (b *Bus) Publish(event *models.LifecycleEvent) {
	if event == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			// 订阅者异常只记录，不影响发布方
			defer func() {
				if r := recover(); r != nil {
					slog.Error("事件订阅者panic", "event_type", event.Type, "panic", r)
				}
			}()
			h(event)
		}(handler)
	}
}

// SubscriberCount 当前订阅者数
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
