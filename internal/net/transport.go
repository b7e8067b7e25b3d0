// Package net carries the live-host plumbing: the websocket client hub
// and LAN discovery for the headless session host.
package net

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the websocket clients connected to the host and fans
// accepted actions out to them. Writes are serialized by the hub lock.
type Hub struct {
	conns map[*websocket.Conn]bool
	mu    sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// Add registers a newly upgraded client connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	log.Printf("[HUB] Client connected from %s", conn.RemoteAddr())
}

// Remove drops a client and closes its connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		delete(h.conns, conn)
		conn.Close()
		log.Printf("[HUB] Client disconnected from %s", conn.RemoteAddr())
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send writes one text message to a single client. It takes the hub
// lock so a direct send (the connect-time snapshot) can never write
// the same connection concurrently with a Broadcast; gorilla/websocket
// forbids concurrent writers.
func (h *Hub) Send(conn *websocket.Conn, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcast sends one text message to every client except the excluded
// one (usually the sender). Failed writes only log; the read loop owns
// disconnect handling.
func (h *Hub) Broadcast(data []byte, exclude *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if conn == exclude {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[HUB] Error sending to %s: %v", conn.RemoteAddr(), err)
		}
	}
}
