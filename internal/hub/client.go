package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 5120
)

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string

	mu   sync.RWMutex
	subs map[string]map[string]bool // table -> event types
}

func (c *Client) wants(table, typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	events, ok := c.subs[table]
	if !ok {
		return false
	}
	return events[typ] || events[EventAny]
}

func (c *Client) subscribe(table, event string) {
	if table == "" {
		return
	}
	if event == "" {
		event = EventAny
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[string]map[string]bool)
	}
	if c.subs[table] == nil {
		c.subs[table] = make(map[string]bool)
	}
	c.subs[table][event] = true
}

func (c *Client) unsubscribe(table, event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	events, ok := c.subs[table]
	if !ok {
		return
	}
	if event == "" {
		delete(c.subs, table)
		return
	}
	delete(events, event)
	if len(events) == 0 {
		delete(c.subs, table)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		var frame subscribeFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		switch frame.Action {
		case "subscribe":
			c.subscribe(frame.Table, frame.Event)
		case "unsubscribe":
			c.unsubscribe(frame.Table, frame.Event)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
