/*
 * @module api/controllers/event_controller
 * @description 事件控制器，提供SSE连接供UI实时接收生命周期事件
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/event_req.md
 * @stateFlow SSE接入 -> 事件队列消费 -> flush写出 -> 连接断开清理
 * @rules SSE连接断开时必须释放客户端资源
 * @dependencies service/event, encoding/json
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"teampulse-service/service/event"
)

// EventController 事件控制器
type EventController struct {
	sse *event.SSEService
}

// NewEventController 创建事件控制器实例
func NewEventController(sse *event.SSEService) *EventController {
	return &EventController{sse: sse}
}

// HandleSSE 建立SSE连接
// @Summary 建立SSE连接
// @Description UI通过此接口建立SSE连接，实时接收连接器生命周期事件
// @Tags 事件管理
// @Success 200 {string} string "SSE事件流"
// @Router /sse [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "当前连接不支持SSE", http.StatusInternalServerError)
		return
	}

	// 设置SSE响应头
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	client := c.sse.AddClient(clientIP)
	defer c.sse.RemoveClient(client.ID)

	// 发送连接成功事件
	fmt.Fprintf(w, "data: {\"type\":\"stream_connected\",\"connection_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		client.ID, time.Now().Format(time.RFC3339))
	flusher.Flush()

	for {
		select {
		case evt := <-client.Channel:
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}
