package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rawblock/splitscore/internal/logging"
	"github.com/rawblock/splitscore/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// RunEvent is pushed to stream subscribers after every recorded run.
type RunEvent struct {
	Type string           `json:"type"`
	Run  models.RunRecord `json:"run"`
}

// Hub maintains the set of active websocket clients and broadcasts messages.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run fans messages out to clients until ctx is done, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	log := logging.Get()
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				// Set write deadline to prevent blocked clients from hanging the hub
				_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Warnf("[Stream] write error: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Subscribe handles incoming websocket connections
func (h *Hub) Subscribe(c *gin.Context) {
	log := logging.Get()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("[Stream] failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mutex.Unlock()
	log.Infof("[Stream] client connected, total clients: %d", n)

	// Read loop only exists to notice disconnects.
	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			n := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			log.Infof("[Stream] client disconnected, total clients: %d", n)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warnf("[Stream] websocket error: %v", err)
				}
				return
			}
		}
	}()
}

// Broadcast queues data for every client. When the queue is full the
// message is dropped rather than stalling the caller.
func (h *Hub) Broadcast(data []byte) bool {
	select {
	case h.broadcast <- data:
		return true
	default:
		logging.Get().Warn("[Stream] broadcast queue full, dropping message")
		return false
	}
}

// BroadcastRun announces a recorded run.
func (h *Hub) BroadcastRun(run models.RunRecord) {
	data, err := json.Marshal(RunEvent{Type: "run", Run: run})
	if err != nil {
		logging.Get().Errorf("[Stream] encoding run event: %v", err)
		return
	}
	h.Broadcast(data)
}

// NumClients reports the connected client count.
func (h *Hub) NumClients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}
