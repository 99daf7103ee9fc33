/*
 * @module service/event/kafka_sink
 * @description Kafka事件镜像，把总线上的生命周期事件写入Kafka主题供外部消费方订阅
 * @architecture 适配器模式 - 封装kafka-go写入端，可选启用
 * @documentReference ai_docs/event_req.md kafka镜像一节
 * @stateFlow 总线事件 -> JSON序列化 -> 按集成ID分区写入Kafka
 * @rules 镜像写入失败只记录日志，不影响进程内分发；缺省关闭，由环境变量启用
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/event/bus.go, service/bootstrap.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"teampulse-service/service/models"
)

const kafkaWriteTimeout = 5 * time.Second

// KafkaSink Kafka事件镜像
type KafkaSink struct {
	writer      *kafka.Writer
	unsubscribe func()
}

// NewKafkaSink 创建Kafka事件镜像并订阅总线
func NewKafkaSink(bus *Bus, brokers []string, topic string) *KafkaSink {
	sink := &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // 同一集成的事件落同一分区，保序
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 100 * time.Millisecond,
		},
	}

	sink.unsubscribe = bus.Subscribe(sink.mirror)
	slog.Info("Kafka事件镜像已启用", "brokers", brokers, "topic", topic)
	return sink
}

// mirror 把单个事件写入Kafka
func (s *KafkaSink) mirror(event *models.LifecycleEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("序列化事件失败", "event_type", event.Type, "error", err)
		return
	}

	key := event.IntegrationID
	if key == "" {
		// sync_all_*等全局事件按事件类型分区
		key = string(event.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.Timestamp,
	})
	if err != nil {
		// 镜像失败不影响进程内分发
		slog.Warn("Kafka事件镜像写入失败", "event_type", event.Type, "error", err)
	}
}

// Close 停止镜像并关闭写入端
func (s *KafkaSink) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return s.writer.Close()
}
