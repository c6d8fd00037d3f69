package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"snapfix-server/services"
	"snapfix-server/types"
)

// Client represents a connected WebSocket client
type Client struct {
	Hub       *Hub
	Principal types.Principal
	Conn      *websocket.Conn
	Send      chan []byte
}

// Message is the envelope exchanged with clients.
type Message struct {
	Type      string      `json:"type"`
	BookingID uint        `json:"bookingId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessageHandler handles an inbound client message.
type MessageHandler func(*Client, *Message) error

// delivery targets either every connection of a principal or one client.
type delivery struct {
	to     types.Principal
	client *Client
	data   []byte
}

type countRequest struct {
	who   types.Principal
	reply chan int
}

// Hub fans booking notifications out to connected customers and workers. The
// registry is owned by the Run goroutine; everything else talks to it over
// channels.
type Hub struct {
	clients map[types.Principal]map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	deliver chan delivery
	counts  chan countRequest
	done    chan struct{}

	// Message handlers
	MessageHandlers map[string]MessageHandler

	log *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	hub := &Hub{
		clients:         make(map[types.Principal]map[*Client]bool),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		deliver:         make(chan delivery, 256),
		counts:          make(chan countRequest),
		done:            make(chan struct{}),
		MessageHandlers: make(map[string]MessageHandler),
		log:             log.Named("ws"),
	}
	hub.MessageHandlers["ping"] = hub.handlePing
	return hub
}

// Run starts the hub's main loop and returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			set := h.clients[client.Principal]
			if set == nil {
				set = make(map[*Client]bool)
				h.clients[client.Principal] = set
			}
			set[client] = true
			h.log.Info("🔌 client registered",
				zap.Uint("id", client.Principal.ID),
				zap.String("role", client.Principal.Role))

		case client := <-h.Unregister:
			h.remove(client)

		case d := <-h.deliver:
			if d.client != nil {
				if h.clients[d.client.Principal][d.client] {
					h.push(d.client, d.data)
				}
				continue
			}
			for client := range h.clients[d.to] {
				h.push(client, d.data)
			}

		case req := <-h.counts:
			req.reply <- len(h.clients[req.who])

		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
			}
			h.clients = make(map[types.Principal]map[*Client]bool)
			return
		}
	}
}

// push hands data to a client, dropping clients that cannot keep up.
func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.log.Warn("⚠️ send buffer full, dropping client", zap.Uint("id", client.Principal.ID))
		h.remove(client)
	}
}

func (h *Hub) enqueue(d delivery) bool {
	select {
	case h.deliver <- d:
		return true
	default:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.Principal]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.Principal)
	}
	close(client.Send)
	h.log.Info("🔌 client unregistered",
		zap.Uint("id", client.Principal.ID),
		zap.String("role", client.Principal.Role))
}

// Notify implements services.Notifier. It never blocks; when the hub is
// saturated the event is dropped.
func (h *Hub) Notify(to types.Principal, event services.Event) {
	data, err := json.Marshal(Message{
		Type:      event.Type,
		BookingID: event.BookingID,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		h.log.Error("❌ error marshaling notification", zap.Error(err))
		return
	}
	if !h.enqueue(delivery{to: to, data: data}) {
		h.log.Warn("⚠️ notification dropped", zap.String("type", event.Type), zap.Uint("to", to.ID))
	}
}

// Connected returns how many live connections p has.
func (h *Hub) Connected(ctx context.Context, p types.Principal) int {
	req := countRequest{who: p, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-ctx.Done():
		return 0
	case <-h.done:
		return 0
	}
}

// handlePing handles ping messages for connection health
func (h *Hub) handlePing(client *Client, _ *Message) error {
	return client.SendMessage(&Message{Type: "pong", Timestamp: time.Now()})
}
