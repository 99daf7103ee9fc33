/*
 * @module service/event/mqtt_sink
 * @description MQTT事件镜像，把总线上的生命周期事件发布到MQTT主题供边缘看板订阅
 * @architecture 适配器模式 - 封装paho客户端，可选启用
 * @documentReference ai_docs/event_req.md mqtt镜像一节
 * @stateFlow 总线事件 -> JSON序列化 -> 按事件类型发布到子主题
 * @rules 镜像发布失败只记录日志，不影响进程内分发；缺省关闭，由环境变量启用
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/event/bus.go, service/bootstrap.go
 */

package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"teampulse-service/service/models"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 3 * time.Second
	mqttQoS            = 1
)

// MQTTSink MQTT事件镜像
type MQTTSink struct {
	client      mqtt.Client
	topicPrefix string
	unsubscribe func()
}

// NewMQTTSink 创建MQTT事件镜像并订阅总线
// 事件发布到 <topicPrefix>/<事件类型> 子主题，QoS 1
func NewMQTTSink(bus *Bus, brokerURL, topicPrefix string) (*MQTTSink, error) {
	hostname, _ := os.Hostname()
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(fmt.Sprintf("teampulse-%s-%d", hostname, os.Getpid())).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)

	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT事件镜像连接丢失，等待自动重连", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(mqttConnectTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	sink := &MQTTSink{
		client:      client,
		topicPrefix: topicPrefix,
	}
	sink.unsubscribe = bus.Subscribe(sink.mirror)

	slog.Info("MQTT事件镜像已启用", "broker", brokerURL, "topic_prefix", topicPrefix)
	return sink, nil
}

// mirror 把单个事件发布到MQTT
func (s *MQTTSink) mirror(event *models.LifecycleEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("序列化事件失败", "event_type", event.Type, "error", err)
		return
	}

	topic := fmt.Sprintf("%s/%s", s.topicPrefix, event.Type)
	token := s.client.Publish(topic, mqttQoS, false, payload)
	if token.WaitTimeout(mqttPublishTimeout) && token.Error() != nil {
		// 镜像失败不影响进程内分发
		slog.Warn("MQTT事件镜像发布失败", "topic", topic, "error", token.Error())
	}
}

// Close 停止镜像并断开客户端
func (s *MQTTSink) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.client.Disconnect(250)
	return nil
}
