// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package broadcast pushes accepted fixes to live subscribers: browser
// viewers over WebSocket and, optionally, MQTT and AMQP bridges.
package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/metrics"
)

// EventNewFix is the message type viewers receive for each accepted fix.
const EventNewFix = "new_gps_data"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers are served from any origin
	},
}

// Message is the envelope written to viewers.
type Message struct {
	Type      string  `json:"type"`
	Payload   gps.Fix `json:"payload"`
	Timestamp string  `json:"timestamp"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans fixes out to WebSocket viewers. Its client map is owned by Run.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	clients := make(map[string]*client)

	drop := func(c *client) {
		if _, ok := clients[c.id]; !ok {
			return
		}
		delete(clients, c.id)
		close(c.send)
		h.count.Store(int64(len(clients)))
		metrics.ViewersConnected.Set(float64(len(clients)))
	}

	for {
		select {
		case <-ctx.Done():
			for _, c := range clients {
				drop(c)
			}
			return

		case c := <-h.register:
			clients[c.id] = c
			h.count.Store(int64(len(clients)))
			metrics.ViewersConnected.Set(float64(len(clients)))
			h.logger.Printf("hub: viewer %s connected (%d total)", c.id, len(clients))

		case c := <-h.unregister:
			if _, ok := clients[c.id]; ok {
				drop(c)
				h.logger.Printf("hub: viewer %s disconnected", c.id)
			}

		case msg := <-h.broadcast:
			for _, c := range clients {
				select {
				case c.send <- msg:
				default:
					drop(c)
					h.logger.Printf("hub: viewer %s too slow, dropped", c.id)
				}
			}
		}
	}
}

// Broadcast queues f for every viewer without blocking.
func (h *Hub) Broadcast(f gps.Fix) {
	data, err := json.Marshal(Message{Type: EventNewFix, Payload: f, Timestamp: gps.FormatTime(time.Now())})
	if err != nil {
		h.logger.Printf("hub: marshal error: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Printf("hub: broadcast queue full, fix from %s not delivered", f.DeviceID)
	}
}

// Viewers reports the number of connected viewers.
func (h *Hub) Viewers() int {
	return int(h.count.Load())
}

// ServeHTTP upgrades the request and attaches a viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("hub: websocket upgrade error: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump only watches for the viewer going away and answers pongs.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
