package hub

import (
	"encoding/json"
	"log/slog"

	"github.com/chattwins/chattwins/internal/metrics"
)

// Hub fans row-change events out to websocket clients. A client only
// receives events for the (table, event type) pairs it subscribed to.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	// userID -> set of client connections (handles multi-tab / multi device)
	clients map[string]map[*Client]bool
}

func New() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
		clients:    make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			metrics.RealtimeConnections.Inc()

		case client := <-h.unregister:
			if set, ok := h.clients[client.UserID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.Send)
					metrics.RealtimeConnections.Dec()
					if len(set) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}

		case ev := <-h.broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("hub: marshal event", "table", ev.Table, "err", err)
				continue
			}
			for uid, set := range h.clients {
				for client := range set {
					if !client.wants(ev.Table, ev.Type) {
						continue
					}
					select {
					case client.Send <- payload:
					default:
						// slow/broken client, drop it
						close(client.Send)
						delete(set, client)
						metrics.RealtimeConnections.Dec()
						metrics.RealtimeDropped.Inc()
						slog.Warn("hub: dropped slow client", "user", uid)
					}
				}
				if len(set) == 0 {
					delete(h.clients, uid)
				}
			}
		}
	}
}

// Broadcast queues a row change for fanout. newRow and oldRow may each be
// nil; both are marshalled once here, not per recipient.
func (h *Hub) Broadcast(table, typ string, newRow, oldRow any) {
	ev := Event{Table: table, Type: typ}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			slog.Error("hub: marshal new row", "table", table, "err", err)
			return
		}
		ev.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			slog.Error("hub: marshal old row", "table", table, "err", err)
			return
		}
		ev.Old = b
	}
	h.broadcast <- ev
}
