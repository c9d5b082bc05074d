package unread

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chattwins/chattwins/internal/client/bus"
	"github.com/chattwins/chattwins/internal/client/markers"
	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/utils"
)

const (
	self    = "user-a"
	partner = "user-b"
	other   = "user-c"
)

type fakeAPI struct {
	recent  []platform.Message
	pending []platform.Friendship
}

func (f *fakeAPI) RecentMessages(ctx context.Context, limit int) ([]platform.Message, error) {
	if limit != recentWindow {
		panic("tracker must request the full recent window")
	}
	return f.recent, nil
}

func (f *fakeAPI) PendingFriendships(ctx context.Context) ([]platform.Friendship, error) {
	return f.pending, nil
}

func at(sec int64) string {
	return utils.FormatTime(time.Unix(sec, 0))
}

func msg(id, from, to string, sec int64) platform.Message {
	return platform.Message{ID: id, SenderID: from, ReceiverID: to, CreatedAt: at(sec)}
}

func newTracker(t *testing.T, api API) (*Tracker, *markers.Store, *bus.Bus) {
	t.Helper()
	st, err := markers.Open(filepath.Join(t.TempDir(), "markers.db"))
	if err != nil {
		t.Fatalf("open markers: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	b := bus.New()
	return New(api, st, b, self), st, b
}

func TestUnreadPartners(t *testing.T) {
	// Newest first, as the server returns them. Partner b's latest (t=120)
	// is theirs; partner c's latest (t=115) is ours.
	api := &fakeAPI{recent: []platform.Message{
		msg("m4", partner, self, 120),
		msg("m3", self, other, 115),
		msg("m2", self, partner, 110),
		msg("m1", other, self, 100),
	}}
	tr, st, _ := newTracker(t, api)

	got, err := tr.UnreadPartners(context.Background())
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unread partners = %v", got)
	}
	if got[partner].ID != "m4" {
		t.Fatalf("latest unread for %s = %+v", partner, got[partner])
	}

	// Opening the chat at t=110 leaves m4 (t=120) unread; opening at t=120
	// clears it.
	if err := st.SetChatOpened(partner, time.Unix(110, 0)); err != nil {
		t.Fatal(err)
	}
	got, _ = tr.UnreadPartners(context.Background())
	if _, ok := got[partner]; !ok {
		t.Fatal("marker before latest message should keep the chat unread")
	}
	if err := st.SetChatOpened(partner, time.Unix(120, 0)); err != nil {
		t.Fatal(err)
	}
	got, _ = tr.UnreadPartners(context.Background())
	if len(got) != 0 {
		t.Fatalf("chat still unread after marker advanced: %v", got)
	}
}

func TestUnreadIgnoresConversationsWhereWeSpokeLast(t *testing.T) {
	api := &fakeAPI{recent: []platform.Message{
		msg("m2", self, partner, 110),
		msg("m1", partner, self, 100),
	}}
	tr, _, _ := newTracker(t, api)
	got, err := tr.UnreadPartners(context.Background())
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("own reply should read as caught up: %v", got)
	}
}

func TestPendingRequestCount(t *testing.T) {
	api := &fakeAPI{pending: []platform.Friendship{
		{ID: "f1", RequesterID: partner, FriendID: self, Status: "pending", CreatedAt: at(100)},
		{ID: "f2", RequesterID: other, FriendID: self, Status: "pending", CreatedAt: at(200)},
		{ID: "f3", RequesterID: self, FriendID: other, Status: "pending", CreatedAt: at(300)},
	}}
	tr, st, _ := newTracker(t, api)

	n, err := tr.PendingRequestCount(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2 (outgoing requests excluded)", n)
	}

	if err := st.SetNotificationsOpened(time.Unix(150, 0)); err != nil {
		t.Fatal(err)
	}
	n, _ = tr.PendingRequestCount(context.Background())
	if n != 1 {
		t.Fatalf("count after opening = %d, want 1", n)
	}
}

func TestMarkChatOpenedPublishes(t *testing.T) {
	tr, st, b := newTracker(t, &fakeAPI{})
	tr.now = func() time.Time { return time.Unix(500, 0) }

	fired := 0
	unsub := b.Subscribe(bus.TopicChatsLastOpened, func() { fired++ })
	defer unsub()

	if err := tr.MarkChatOpened(partner); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if fired != 1 {
		t.Fatalf("bus fired %d times", fired)
	}
	opened, ok, err := st.ChatOpened(partner)
	if err != nil || !ok {
		t.Fatalf("marker missing: ok=%v err=%v", ok, err)
	}
	if !opened.Equal(time.Unix(500, 0)) {
		t.Fatalf("marker = %v", opened)
	}
}

func TestMarkNotificationsOpenedPublishes(t *testing.T) {
	tr, st, b := newTracker(t, &fakeAPI{})
	fired := 0
	b.Subscribe(bus.TopicNotificationsLastOpened, func() { fired++ })

	if err := tr.MarkNotificationsOpened(); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if fired != 1 {
		t.Fatalf("bus fired %d times", fired)
	}
	if _, ok, _ := st.NotificationsOpened(); !ok {
		t.Fatal("marker not persisted")
	}
}
