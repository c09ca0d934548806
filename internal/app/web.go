// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/config"
	"github.com/relabs-tech/rehab_computer/internal/live"
	"github.com/relabs-tech/rehab_computer/internal/logging"
)

// RunWeb serves the session control surface and the live websocket stream,
// and mirrors live events to MQTT when a broker is configured.
func RunWeb() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	log, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "rehab-web")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := NewRuntime(cfg, log)
	hub := live.NewHub(log.Named("ws"), rt.Buffer(), cfg.BroadcastBuffer)

	rt.Start(ctx)
	defer rt.Wait()

	var wg sync.WaitGroup

	if cfg.MQTTBroker != "" {
		client, err := live.Connect(log.Named("mqtt"), live.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientIDWeb,
		})
		if err != nil {
			// the web surface is still useful without the broker
			log.Error("MQTT sink disabled", zap.Error(err))
		} else {
			defer client.Disconnect(250)
			pub := live.NewMQTTPublisher(log.Named("mqtt"), client, rt.Buffer(), cfg.TopicLive, cfg.BroadcastBuffer)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("MQTT publisher stopped", zap.Error(err))
				}
			}()
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newMux(rt, hub, log.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("web server listening",
			zap.String("addr", server.Addr),
			zap.String("mode", rt.Mode()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("web server: %w", err)
	}

	log.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("web server shutdown error", zap.Error(err))
		server.Close()
	}
	wg.Wait()
	return nil
}
