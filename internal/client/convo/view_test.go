package convo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/utils"
)

const (
	self    = "user-a"
	partner = "user-b"
	other   = "user-c"
)

type fakeLoader struct {
	history []platform.Message
	err     error
}

func (f *fakeLoader) Conversation(ctx context.Context, partnerID string) ([]platform.Message, error) {
	return f.history, f.err
}

func at(sec int64) string {
	return utils.FormatTime(time.Unix(sec, 0))
}

func msg(id, from, to string, sec int64) platform.Message {
	return platform.Message{ID: id, SenderID: from, ReceiverID: to, Content: "m-" + id, CreatedAt: at(sec)}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func wantIDs(t *testing.T, v *View, want ...string) {
	t.Helper()
	got := ids(v.Messages())
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestViewLoadReplacesAndDedupes(t *testing.T) {
	api := &fakeLoader{history: []platform.Message{
		msg("m1", partner, self, 10),
		msg("m2", self, partner, 20),
	}}
	v := NewView(api, self, partner)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	wantIDs(t, v, "m1", "m2")

	// A live insert of an already-loaded row is a no-op.
	v.Apply(msg("m2", self, partner, 20))
	wantIDs(t, v, "m1", "m2")

	// Reload replaces everything, including anything applied in between.
	v.Apply(msg("m3", partner, self, 30))
	api.history = []platform.Message{msg("m9", partner, self, 90)}
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	wantIDs(t, v, "m9")
}

func TestViewApplyFiltersOtherPairs(t *testing.T) {
	v := NewView(&fakeLoader{}, self, partner)
	v.Apply(msg("x1", other, self, 10))
	v.Apply(msg("x2", self, other, 11))
	v.Apply(msg("x3", other, partner, 12))
	if got := v.Messages(); len(got) != 0 {
		t.Fatalf("foreign messages leaked in: %v", ids(got))
	}
	v.Apply(msg("ok", partner, self, 13))
	wantIDs(t, v, "ok")
}

func TestViewApplyOutOfOrderInsertsSorted(t *testing.T) {
	v := NewView(&fakeLoader{}, self, partner)
	v.Apply(msg("m1", partner, self, 10))
	v.Apply(msg("m3", partner, self, 30))
	v.Apply(msg("m2", self, partner, 20)) // late delivery
	wantIDs(t, v, "m1", "m2", "m3")
}

func TestViewApplyEqualTimestampsKeepArrivalOrder(t *testing.T) {
	v := NewView(&fakeLoader{}, self, partner)
	v.Apply(msg("m1", partner, self, 10))
	v.Apply(msg("m2", self, partner, 10))
	wantIDs(t, v, "m1", "m2")
}

func TestViewApplyEventDecodesInsert(t *testing.T) {
	v := NewView(&fakeLoader{}, self, partner)
	raw, _ := json.Marshal(msg("m1", partner, self, 10))

	v.ApplyEvent(platform.Event{Table: "friendships", Type: platform.EventInsert, New: raw})
	v.ApplyEvent(platform.Event{Table: "messages", Type: platform.EventDelete, New: raw})
	if got := v.Messages(); len(got) != 0 {
		t.Fatalf("non-message-insert events applied: %v", ids(got))
	}

	v.ApplyEvent(platform.Event{Table: "messages", Type: platform.EventInsert, New: raw})
	wantIDs(t, v, "m1")
	if v.Messages()[0].Status != StatusConfirmed {
		t.Fatalf("live row should be confirmed, got %q", v.Messages()[0].Status)
	}
}

func TestViewClosedIgnoresChanges(t *testing.T) {
	v := NewView(&fakeLoader{}, self, partner)
	v.Apply(msg("m1", partner, self, 10))
	v.Close()
	v.Apply(msg("m2", partner, self, 20))
	wantIDs(t, v, "m1")
}
