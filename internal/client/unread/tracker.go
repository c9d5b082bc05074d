// Package unread derives the badge state shown next to each chat and on the
// notifications bell, from recent messages plus locally persisted
// last-opened markers.
package unread

import (
	"context"
	"time"

	"github.com/chattwins/chattwins/internal/client/bus"
	"github.com/chattwins/chattwins/internal/client/markers"
	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/utils"
)

// recentWindow bounds how far back the tracker looks. A chat whose newest
// message fell out of this window shows as read, which is an accepted
// trade-off against fetching full history.
const recentWindow = 500

// API is the slice of the platform client the tracker needs.
type API interface {
	RecentMessages(ctx context.Context, limit int) ([]platform.Message, error)
	PendingFriendships(ctx context.Context) ([]platform.Friendship, error)
}

type Tracker struct {
	api     API
	markers *markers.Store
	bus     *bus.Bus
	selfID  string

	now func() time.Time
}

func New(api API, m *markers.Store, b *bus.Bus, selfID string) *Tracker {
	return &Tracker{api: api, markers: m, bus: b, selfID: selfID, now: time.Now}
}

// UnreadPartners returns, per partner with unread activity, the newest
// message of that conversation. A conversation counts as unread when its
// newest message within the window is partner-authored and newer than the
// chat's last-opened marker.
func (t *Tracker) UnreadPartners(ctx context.Context) (map[string]platform.Message, error) {
	msgs, err := t.api.RecentMessages(ctx, recentWindow)
	if err != nil {
		return nil, err
	}

	// msgs come newest first, so the first message seen per partner is the
	// latest of that conversation.
	latest := make(map[string]platform.Message)
	for _, m := range msgs {
		partner := m.SenderID
		if partner == t.selfID {
			partner = m.ReceiverID
		}
		if partner == t.selfID {
			continue
		}
		if _, seen := latest[partner]; !seen {
			latest[partner] = m
		}
	}

	out := make(map[string]platform.Message)
	for partner, m := range latest {
		if m.SenderID == t.selfID {
			continue // we spoke last, nothing unread
		}
		ts, err := utils.ParseTime(m.CreatedAt)
		if err != nil {
			continue
		}
		opened, ok, err := t.markers.ChatOpened(partner)
		if err != nil {
			return nil, err
		}
		if !ok || ts.After(opened) {
			out[partner] = m
		}
	}
	return out, nil
}

// PendingRequestCount returns how many incoming friend requests arrived
// after the notifications panel was last opened.
func (t *Tracker) PendingRequestCount(ctx context.Context) (int, error) {
	reqs, err := t.api.PendingFriendships(ctx)
	if err != nil {
		return 0, err
	}
	opened, ok, err := t.markers.NotificationsOpened()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, r := range reqs {
		if r.FriendID != t.selfID {
			continue
		}
		ts, err := utils.ParseTime(r.CreatedAt)
		if err != nil {
			continue
		}
		if !ok || ts.After(opened) {
			n++
		}
	}
	return n, nil
}

// MarkChatOpened persists the marker and tells other views to recompute.
func (t *Tracker) MarkChatOpened(partnerID string) error {
	if err := t.markers.SetChatOpened(partnerID, t.now()); err != nil {
		return err
	}
	t.bus.Publish(bus.TopicChatsLastOpened)
	return nil
}

func (t *Tracker) MarkNotificationsOpened() error {
	if err := t.markers.SetNotificationsOpened(t.now()); err != nil {
		return err
	}
	t.bus.Publish(bus.TopicNotificationsLastOpened)
	return nil
}
