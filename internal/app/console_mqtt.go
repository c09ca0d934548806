// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/config"
	"github.com/relabs-tech/rehab_computer/internal/live"
	"github.com/relabs-tech/rehab_computer/internal/logging"
	"github.com/relabs-tech/rehab_computer/internal/session"
)

// RunConsoleMQTT prints the live events another process publishes to the
// broker.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	if cfg.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is not set")
	}
	log, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "rehab-console-mqtt")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	client, err := live.Connect(log, live.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientIDConsole,
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicLive, 0, liveHandler(log, os.Stdout))
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.TopicLive, token.Error())
	}
	log.Info("console: subscribed", zap.String("topic", cfg.TopicLive))

	// Wait for Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("console: shutting down")
	return nil
}

func liveHandler(log *zap.Logger, out io.Writer) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var ev session.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Warn("console: event unmarshal error", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		fmt.Fprintln(out, formatEvent(ev))
	}
}
