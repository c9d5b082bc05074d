// Package client ties the conversation, unread, and presence machinery to a
// signed-in platform session. It is what an application embeds; the
// subpackages are usable on their own.
package client

import (
	"context"
	"fmt"

	"github.com/chattwins/chattwins/internal/client/bus"
	"github.com/chattwins/chattwins/internal/client/convo"
	"github.com/chattwins/chattwins/internal/client/markers"
	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/client/presence"
	"github.com/chattwins/chattwins/internal/client/unread"
)

// Auth lifecycle topics, published on the core's bus.
const (
	TopicSignedIn  = "auth:signedIn"
	TopicSignedOut = "auth:signedOut"
)

type Core struct {
	API     *platform.Client
	Bus     *bus.Bus
	Markers *markers.Store

	// Unread is available after SignIn.
	Unread *unread.Tracker

	selfID string
	hb     *presence.Heartbeat
	rt     *platform.Realtime
}

// New builds an unauthenticated core. markersPath is the local sqlite file
// holding last-opened markers.
func New(baseURL, markersPath string) (*Core, error) {
	st, err := markers.Open(markersPath)
	if err != nil {
		return nil, fmt.Errorf("open markers: %w", err)
	}
	return &Core{
		API:     platform.New(baseURL),
		Bus:     bus.New(),
		Markers: st,
	}, nil
}

// SignIn authenticates, connects the realtime feed, and starts the presence
// heartbeat.
func (c *Core) SignIn(ctx context.Context, email, password string) error {
	sess, err := c.API.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.startSession(ctx, sess)
}

// SignUp creates the account and starts the session in one step, as the
// signup endpoint already returns a token.
func (c *Core) SignUp(ctx context.Context, email, password string) error {
	sess, err := c.API.Signup(ctx, email, password)
	if err != nil {
		return err
	}
	return c.startSession(ctx, sess)
}

func (c *Core) startSession(ctx context.Context, sess platform.Session) error {
	rt, err := c.API.Dial(ctx)
	if err != nil {
		return fmt.Errorf("realtime: %w", err)
	}
	c.selfID = sess.UserID
	c.rt = rt
	c.Unread = unread.New(c.API, c.Markers, c.Bus, sess.UserID)
	c.hb = presence.Start(c.API)
	c.Bus.Publish(TopicSignedIn)
	return nil
}

// SignOut marks the user offline, tears the session down, and notifies
// subscribers. Safe to call without a session.
func (c *Core) SignOut(ctx context.Context) {
	if c.hb != nil {
		c.hb.Close()
		c.hb = nil
	}
	if c.selfID != "" {
		presence.SetOffline(ctx, c.API)
	}
	if c.rt != nil {
		c.rt.Close()
		c.rt = nil
	}
	_ = c.API.Logout(ctx)
	c.selfID = ""
	c.Unread = nil
	c.Bus.Publish(TopicSignedOut)
}

func (c *Core) UserID() string { return c.selfID }

// Wake forces a presence beat, for app-focus events.
func (c *Core) Wake() {
	if c.hb != nil {
		c.hb.Wake()
	}
}

func (c *Core) Close() error {
	if c.rt != nil {
		c.rt.Close()
	}
	if c.hb != nil {
		c.hb.Close()
	}
	return c.Markers.Close()
}

// Conversation is one open chat screen: the reconciled view, its sender, and
// the live-feed subscription that feeds it.
type Conversation struct {
	*convo.View
	Sender *convo.Sender

	partnerID string
	tracker   *unread.Tracker
	unsub     func()
}

// OpenConversation loads history, subscribes the view to live inserts, and
// marks the chat opened (opening the screen clears its badge).
func (c *Core) OpenConversation(ctx context.Context, partnerID string) (*Conversation, error) {
	if c.selfID == "" {
		return nil, fmt.Errorf("not signed in")
	}
	view := convo.NewView(c.API, c.selfID, partnerID)
	if err := view.Load(ctx); err != nil {
		return nil, err
	}
	unsub, err := c.rt.Subscribe("messages", platform.EventInsert, view.ApplyEvent)
	if err != nil {
		return nil, err
	}

	sender := convo.NewSender(c.API, view, c.selfID, partnerID)
	tracker := c.Unread
	sender.OnSent = func() { _ = tracker.MarkChatOpened(partnerID) }

	if err := tracker.MarkChatOpened(partnerID); err != nil {
		unsub()
		view.Close()
		return nil, err
	}
	return &Conversation{
		View:      view,
		Sender:    sender,
		partnerID: partnerID,
		tracker:   tracker,
		unsub:     unsub,
	}, nil
}

// Close unsubscribes the live feed and seals the view. The marker is bumped
// one last time so anything received while the screen was open reads as seen.
func (cv *Conversation) Close() {
	cv.unsub()
	cv.View.Close()
	_ = cv.tracker.MarkChatOpened(cv.partnerID)
}
