package hub

import "encoding/json"

// Event type filters understood by subscriptions. EventAny matches all three.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
	EventAny    = "*"
)

// Event is one row change on a named table, pushed to every subscribed
// connection. New carries the row after the change, Old the row before it;
// inserts have no Old and deletes no New.
type Event struct {
	Table string          `json:"table"`
	Type  string          `json:"type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// subscribeFrame is what clients send over the socket.
type subscribeFrame struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Table  string `json:"table"`
	Event  string `json:"event"` // insert/update/delete/*
}
