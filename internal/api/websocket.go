package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rawblock/algostream/internal/subscriber"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for local dashboard
	},
}

// Hub maintains the set of active websocket clients and broadcasts messages.
type Hub struct {
	clients   map[*websocket.Conn]uuid.UUID
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]uuid.UUID),
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client, id := range h.clients {
			// Set write deadline to prevent blocked clients from hanging the hub
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := client.WriteMessage(websocket.TextMessage, message)
			if err != nil {
				log.Printf("[Hub] Websocket write error for client %s: %v", id, err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe handles incoming websocket connections
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Hub] Failed to upgrade websocket: %v", err)
		return
	}

	id := uuid.New()
	h.mutex.Lock()
	h.clients[conn] = id
	total := len(h.clients)
	h.mutex.Unlock()

	log.Printf("[Hub] Client %s connected. Total clients: %d", id, total)

	// Keep alive loop (we only care about pushing down, but we must read to handle disconnects)
	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			total := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("[Hub] Client %s disconnected. Total clients: %d", id, total)
		}()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[Hub] Websocket error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast sends JSON data to all connected clients
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

// BroadcastTransactions returns a dispatcher handler that forwards each
// matched transaction to the dashboard stream, tagged with its filter name.
func BroadcastTransactions(hub *Hub, filterName string) subscriber.Handler {
	return func(payload any) {
		if hub == nil {
			return
		}
		msg, err := json.Marshal(map[string]any{
			"type":        "transaction",
			"filter":      filterName,
			"transaction": payload,
		})
		if err != nil {
			log.Printf("[Hub] Failed to marshal transaction payload: %v", err)
			return
		}
		hub.Broadcast(msg)
	}
}

// BroadcastPollSummaries returns a dispatcher handler that pushes a compact
// per-poll summary to the dashboard stream.
func BroadcastPollSummaries(hub *Hub) subscriber.Handler {
	return func(payload any) {
		result, ok := payload.(*subscriber.PollResult)
		if hub == nil || !ok {
			return
		}
		matched := 0
		for _, fr := range result.Matches {
			matched += len(fr.Transactions)
		}
		msg, err := json.Marshal(map[string]any{
			"type":         "poll",
			"newWatermark": result.NewWatermark,
			"currentRound": result.CurrentRound,
			"matched":      matched,
		})
		if err != nil {
			log.Printf("[Hub] Failed to marshal poll summary: %v", err)
			return
		}
		hub.Broadcast(msg)
	}
}
