package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kozaktomas/gatewatch/internal/config"
)

const publishTimeout = 2 * time.Second

// Publisher is the subset of mqtt.Client used by MQTTSink
type Publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes events as JSON to <topic>/<event type>.
// Status events are skipped; they fire every cycle.
type MQTTSink struct {
	client Publisher
	topic  string
	logger *slog.Logger
}

// NewMQTTSink creates a sink on top of an already connected publisher
func NewMQTTSink(client Publisher, topic string, logger *slog.Logger) *MQTTSink {
	return &MQTTSink{
		client: client,
		topic:  strings.TrimSuffix(topic, "/"),
		logger: logger,
	}
}

// ConnectMQTT connects to the configured broker
func ConnectMQTT(cfg config.MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to MQTT broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection to MQTT broker lost", "broker", cfg.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection error: %w", err)
	}
	return client, nil
}

// Topic returns the topic an event type is published to
func (s *MQTTSink) Topic(t Type) string {
	return s.topic + "/" + string(t)
}

func (s *MQTTSink) Emit(e Event) {
	if e.Type == Status {
		return
	}
	if !s.client.IsConnected() {
		s.logger.Debug("mqtt not connected, dropping event", "event", string(e.Type))
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("failed to marshal event", "event", string(e.Type), "error", err)
		return
	}

	token := s.client.Publish(s.Topic(e.Type), 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		s.logger.Warn("mqtt publish timeout", "topic", s.Topic(e.Type))
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Warn("mqtt publish failed", "topic", s.Topic(e.Type), "error", err)
	}
}
