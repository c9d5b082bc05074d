package platform

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chattwins/chattwins/internal/auth"
	"github.com/chattwins/chattwins/internal/hub"
	"github.com/gin-gonic/gin"
)

// Spins up a real gin server with the websocket hub and drives it through
// the SDK, so the subscribe protocol is tested end to end.
func newRealtimeServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.New()
	go h.Run()

	r := gin.New()
	hub.RegisterWS(r.Group("/api"), h, "test-secret")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *Realtime {
	t.Helper()
	c := New(srv.URL)
	tok, err := auth.NewToken("test-secret", "alice", "alice@example.com", 60)
	if err != nil {
		t.Fatal(err)
	}
	c.SetToken(tok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rt, err := c.Dial(ctx)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestRealtimeSubscribeReceivesBroadcast(t *testing.T) {
	srv, h := newRealtimeServer(t)
	rt := dial(t, srv)

	got := make(chan Event, 4)
	unsub, err := rt.Subscribe("messages", EventAny, func(ev Event) { got <- ev })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// The subscribe frame travels over the socket; give the server a moment
	// to apply it before broadcasting.
	deadline := time.After(3 * time.Second)
	var ev Event
	for {
		h.Broadcast("messages", hub.EventInsert, Message{ID: "m1", SenderID: "bob", ReceiverID: "alice"}, nil)
		select {
		case ev = <-got:
		case <-time.After(100 * time.Millisecond):
			select {
			case <-deadline:
				t.Fatal("no event delivered")
			default:
				continue
			}
		}
		break
	}

	if ev.Table != "messages" || ev.Type != EventInsert {
		t.Fatalf("event = %+v", ev)
	}
	var m Message
	if err := json.Unmarshal(ev.New, &m); err != nil || m.ID != "m1" {
		t.Fatalf("payload = %s err=%v", ev.New, err)
	}

	// Events for other tables never reach this handler.
	h.Broadcast("friendships", hub.EventInsert, Friendship{ID: "f1"}, nil)
	select {
	case stray := <-got:
		if stray.Table != "messages" {
			t.Fatalf("foreign event delivered: %+v", stray)
		}
	case <-time.After(200 * time.Millisecond):
	}

	unsub()
}

func TestRealtimeDialRejectsBadToken(t *testing.T) {
	srv, _ := newRealtimeServer(t)
	c := New(srv.URL)
	c.SetToken("not-a-jwt")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Dial(ctx); err == nil {
		t.Fatal("dial succeeded with a bad token")
	}
}
