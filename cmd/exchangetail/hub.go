package main

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the union of exchange and failure events as seen on Kafka.
type Event struct {
	EventType     string  `json:"eventType"`
	Identity      string  `json:"identity"`
	Index         string  `json:"index"`
	CycleID       string  `json:"cycleId"`
	Timestamp     int64   `json:"timestamp"`
	Transcription string  `json:"transcription,omitempty"`
	Answer        string  `json:"answer,omitempty"`
	AnswerSeconds float64 `json:"answerSeconds,omitempty"`
	Step          string  `json:"step,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Hub fans events out to connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	log.Printf("Client connected. Total: %d", len(h.clients))
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		log.Printf("Client disconnected. Total: %d", len(h.clients))
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast writes ev to every client, dropping clients that fail.
func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("Write error: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.add(conn)

		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
