package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Realtime is a websocket subscription client. Handlers run on the read
// goroutine, so they must not block.
type Realtime struct {
	conn *websocket.Conn

	mu     sync.Mutex
	nextID int
	subs   map[int]subscription

	done chan struct{}
}

type subscription struct {
	table string
	event string
	fn    func(Event)
}

type wireFrame struct {
	Action string `json:"action"`
	Table  string `json:"table"`
	Event  string `json:"event"`
}

// Dial connects to the server's /api/ws endpoint and starts the read loop.
func (c *Client) Dial(ctx context.Context) (*Realtime, error) {
	u, err := url.Parse(c.base + "/api/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	rt := &Realtime{
		conn: conn,
		subs: make(map[int]subscription),
		done: make(chan struct{}),
	}
	go rt.readLoop()
	return rt, nil
}

func (rt *Realtime) readLoop() {
	defer close(rt.done)
	for {
		_, data, err := rt.conn.ReadMessage()
		if err != nil {
			if !strings.Contains(err.Error(), "use of closed") {
				slog.Debug("realtime read ended", "err", err)
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		rt.dispatch(ev)
	}
}

func (rt *Realtime) dispatch(ev Event) {
	rt.mu.Lock()
	fns := make([]func(Event), 0, len(rt.subs))
	for _, s := range rt.subs {
		if s.table != ev.Table {
			continue
		}
		if s.event != EventAny && s.event != ev.Type {
			continue
		}
		fns = append(fns, s.fn)
	}
	rt.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribe registers fn for changes on table matching event (or EventAny).
// The returned function cancels just this subscription.
func (rt *Realtime) Subscribe(table, event string, fn func(Event)) (func(), error) {
	rt.mu.Lock()
	id := rt.nextID
	rt.nextID++
	rt.subs[id] = subscription{table: table, event: event, fn: fn}
	err := rt.conn.WriteJSON(wireFrame{Action: "subscribe", Table: table, Event: event})
	rt.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return func() {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		delete(rt.subs, id)
		for _, s := range rt.subs {
			if s.table == table && s.event == event {
				return // another handler still wants this stream
			}
		}
		_ = rt.conn.WriteJSON(wireFrame{Action: "unsubscribe", Table: table, Event: event})
	}, nil
}

func (rt *Realtime) Close() error {
	err := rt.conn.Close()
	<-rt.done
	return err
}
