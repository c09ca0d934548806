// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package live fans session events out to browsers over websocket and to an
// MQTT broker.
package live

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/session"
)

// EventSource is the subscription side of the session buffer.
type EventSource interface {
	Subscribe(buffer int) (int, <-chan session.Event)
	Unsubscribe(id int)
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Hub serves the live event stream over websocket, one subscription per
// connection.
type Hub struct {
	log      *zap.Logger
	src      EventSource
	buffer   int
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

func NewHub(log *zap.Logger, src EventSource, buffer int) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:    log,
		src:    src,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			// the clinic UI is served from the same box but may be opened by IP
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Clients is the number of open websocket connections.
func (h *Hub) Clients() int { return int(h.clients.Load()) }

// ServeWS upgrades the request and streams events as JSON text frames until
// the client goes away or the buffer closes the subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id, events := h.src.Subscribe(h.buffer)
	defer h.src.Unsubscribe(id)

	h.clients.Add(1)
	defer h.clients.Add(-1)
	log := h.log.With(zap.Int("subscriber", id), zap.String("remote", r.RemoteAddr))
	log.Info("websocket client connected")

	// drain client frames so pongs and close messages are processed
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			log.Info("websocket client disconnected")
			return

		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}
