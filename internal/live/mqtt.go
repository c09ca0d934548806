// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
}

// Connect opens an auto-reconnecting paho client.
func Connect(log *zap.Logger, cfg ClientConfig) (mqtt.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("MQTT connection established", zap.String("broker", cfg.Broker))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// Publisher is the slice of mqtt.Client the live sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher mirrors session events to a broker topic.
type MQTTPublisher struct {
	log    *zap.Logger
	pub    Publisher
	src    EventSource
	topic  string
	buffer int

	published atomic.Uint64
}

func NewMQTTPublisher(log *zap.Logger, pub Publisher, src EventSource, topic string, buffer int) *MQTTPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTPublisher{log: log, pub: pub, src: src, topic: topic, buffer: buffer}
}

// Run publishes every event as JSON at QoS 0 without waiting for the
// broker. It returns when ctx is done or the subscription is closed.
func (p *MQTTPublisher) Run(ctx context.Context) error {
	id, events := p.src.Subscribe(p.buffer)
	defer p.src.Unsubscribe(id)
	p.log.Info("MQTT publisher started", zap.String("topic", p.topic))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("failed to marshal live event", zap.Error(err))
				continue
			}
			p.pub.Publish(p.topic, 0, false, payload)
			p.published.Add(1)
		}
	}
}

// Published counts events handed to the client.
func (p *MQTTPublisher) Published() uint64 { return p.published.Load() }
