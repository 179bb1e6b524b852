// Package realtime fans change notifications out to connected browsers.
// Each signed-in client holds one websocket; the hub groups sockets by
// owner id so a patrol.changed event only wakes that patrol's owner.
// Clients respond by re-fetching, the messages carry no row data.
package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Hub tracks websocket subscribers per owner.
type Hub struct {
	mu    sync.Mutex
	conns map[uint64]map[*websocket.Conn]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint64]map[*websocket.Conn]struct{})}
}

// Subscribe registers a connection for the given owner.
func (h *Hub) Subscribe(ownerID uint64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[ownerID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[ownerID] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes a connection. The caller closes the socket.
func (h *Hub) Unsubscribe(ownerID uint64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[ownerID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, ownerID)
		}
	}
}

// Notify sends payload as JSON to every socket registered for ownerID.
// Sockets that fail to write are dropped; the client reconnects.
func (h *Hub) Notify(ownerID uint64, payload any) {
	h.mu.Lock()
	set := h.conns[ownerID]
	conns := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(payload); err != nil {
			log.Printf("realtime: write failed, dropping subscriber: %v", err)
			h.Unsubscribe(ownerID, c)
			_ = c.Close()
		}
	}
}
