package service

import (
	"encoding/json"
	"sync"

	"pokeguide-backend/internal/metrics"
	"pokeguide-backend/internal/model"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WSClient struct {
	Conn   *websocket.Conn
	UserID string
	Role   model.Role
	Send   chan []byte
}

type WSHub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan []byte
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
	log        *zap.Logger
}

func NewWSHub(log *zap.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Inc()
			h.log.Debug("ws connected", zap.String("user_id", client.UserID), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws disconnected", zap.String("user_id", client.UserID), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.drop(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop must be called with mu held.
func (h *WSHub) drop(client *WSClient) {
	delete(h.clients, client)
	close(client.Send)
	metrics.WSConnections.Dec()
}

// Shutdown stops Run and closes the send channel of every connected client.
func (h *WSHub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register reports false when the hub has shut down; the caller should close
// the connection.
func (h *WSHub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *WSHub) Broadcast(event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// SendToUser delivers event to every socket of userID. Slow sockets miss it.
func (h *WSHub) SendToUser(userID string, event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *WSHub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
