// Package convo holds the client-side state of one open conversation: the
// ordered message list, dedupe against the live feed, and the optimistic
// send pipeline.
package convo

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/utils"
)

// Delivery states of an entry in the view. Loaded history and live-feed rows
// are always confirmed; pending and failed only ever describe local sends.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

type Entry struct {
	platform.Message
	Status string
}

// Loader is the slice of the platform API the view needs.
type Loader interface {
	Conversation(ctx context.Context, partnerID string) ([]platform.Message, error)
}

// View is the reconciled message list for one self/partner pair. All methods
// are safe for concurrent use; realtime callbacks and UI reads may race.
type View struct {
	api       Loader
	selfID    string
	partnerID string

	mu      sync.Mutex
	entries []Entry
	known   map[string]bool
	closed  bool
}

func NewView(api Loader, selfID, partnerID string) *View {
	return &View{
		api:       api,
		selfID:    selfID,
		partnerID: partnerID,
		known:     make(map[string]bool),
	}
}

// Load replaces the view with the server's history for this pair. Any
// pending entries are discarded; callers reload only on open or reconnect,
// when in-flight sends from the previous session are gone anyway.
func (v *View) Load(ctx context.Context) error {
	msgs, err := v.api.Conversation(ctx, v.partnerID)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.entries = make([]Entry, 0, len(msgs))
	v.known = make(map[string]bool, len(msgs))
	for _, m := range msgs {
		v.entries = append(v.entries, Entry{Message: m, Status: StatusConfirmed})
		v.known[m.ID] = true
	}
	return nil
}

// ApplyEvent feeds one realtime event into the view. Events for other pairs,
// non-inserts, and rows already present are ignored.
func (v *View) ApplyEvent(ev platform.Event) {
	if ev.Table != "messages" || ev.Type != platform.EventInsert {
		return
	}
	var m platform.Message
	if err := json.Unmarshal(ev.New, &m); err != nil {
		return
	}
	v.Apply(m)
}

// Apply merges one confirmed message into the view, keeping timestamp order
// even when the feed delivers out of order.
func (v *View) Apply(m platform.Message) {
	if !v.belongs(m) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.known[m.ID] {
		return
	}
	v.known[m.ID] = true
	v.insertSorted(Entry{Message: m, Status: StatusConfirmed})
}

func (v *View) belongs(m platform.Message) bool {
	return (m.SenderID == v.selfID && m.ReceiverID == v.partnerID) ||
		(m.SenderID == v.partnerID && m.ReceiverID == v.selfID)
}

// insertSorted places e after every entry with an earlier-or-equal timestamp,
// so same-instant messages keep arrival order. Caller holds v.mu.
func (v *View) insertSorted(e Entry) {
	ts, err := utils.ParseTime(e.CreatedAt)
	if err != nil {
		v.entries = append(v.entries, e)
		return
	}
	i := len(v.entries)
	for i > 0 {
		prev, err := utils.ParseTime(v.entries[i-1].CreatedAt)
		if err != nil || !prev.After(ts) {
			break
		}
		i--
	}
	v.entries = append(v.entries, Entry{})
	copy(v.entries[i+1:], v.entries[i:])
	v.entries[i] = e
}

// Messages returns a snapshot of the current list, oldest first.
func (v *View) Messages() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Close stops the view from accepting further changes. Late realtime
// callbacks after the conversation screen is gone become no-ops.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// appendPending adds an optimistic entry at the tail.
func (v *View) appendPending(e Entry) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	v.entries = append(v.entries, e)
	return true
}

// resolveTemp swaps the optimistic entry for the server's row, in place so
// the message does not jump on screen. If the live feed already delivered
// the confirmed row, the temp entry is simply dropped.
func (v *View) resolveTemp(tempID string, m platform.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if v.known[m.ID] {
		v.removeLocked(tempID)
		return
	}
	v.known[m.ID] = true
	for i := range v.entries {
		if v.entries[i].ID == tempID {
			v.entries[i] = Entry{Message: m, Status: StatusConfirmed}
			return
		}
	}
	// Temp entry vanished (view reloaded mid-send); fall back to a merge.
	v.insertSorted(Entry{Message: m, Status: StatusConfirmed})
}

// removeTemp drops a failed optimistic entry.
func (v *View) removeTemp(tempID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removeLocked(tempID)
}

func (v *View) removeLocked(id string) {
	for i := range v.entries {
		if v.entries[i].ID == id {
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			return
		}
	}
}
