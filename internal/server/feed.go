package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Update is one live measurement pushed to feed subscribers. The frame loop
// publishes one per iteration; the feed never pulls from the camera itself,
// the loop is the only owner of the capture source.
type Update struct {
	Frame      int64   `json:"frame"`
	MarkerID   int     `json:"marker_id"`
	Markers    int     `json:"markers"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// Feed broadcasts live distance readings to WebSocket subscribers.
type Feed struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.clients[conn] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, conn)
		f.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends an update to all connected clients. Safe to call with no
// subscribers; the loop does not care whether anyone is listening.
func (f *Feed) Publish(u Update) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.clients) == 0 {
		return
	}

	u.Timestamp = time.Now().UnixMilli()
	msg, err := json.Marshal(u)
	if err != nil {
		return
	}

	for conn := range f.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}

// Subscribers returns the number of connected clients.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}
