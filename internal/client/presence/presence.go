// Package presence keeps the server informed that this client is alive and
// decides whether other users read as online.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chattwins/chattwins/internal/client/platform"
	"github.com/chattwins/chattwins/internal/utils"
)

const (
	// Interval between heartbeats while the client runs.
	Interval = 60 * time.Second

	// OnlineWindow is how stale a last-seen timestamp may be before the
	// user reads as offline regardless of the stored flag.
	OnlineWindow = 5 * time.Minute

	beatTimeout = 10 * time.Second
)

// API is the slice of the platform client the heartbeat needs.
type API interface {
	Heartbeat(ctx context.Context, online bool) (platform.StatusRecord, error)
}

// Heartbeat writes a presence beat immediately, then every Interval, until
// closed. Failures are tolerated: presence is advisory, so the loop logs a
// single warning and keeps trying.
type Heartbeat struct {
	api API

	warnOnce  sync.Once
	closeOnce sync.Once
	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
}

func Start(api API) *Heartbeat {
	h := &Heartbeat{
		api:     api,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Heartbeat) loop() {
	defer close(h.stopped)
	h.beat()
	t := time.NewTicker(Interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			h.beat()
		case <-h.wake:
			h.beat()
			t.Reset(Interval)
		case <-h.done:
			return
		}
	}
}

func (h *Heartbeat) beat() {
	ctx, cancel := context.WithTimeout(context.Background(), beatTimeout)
	defer cancel()
	if _, err := h.api.Heartbeat(ctx, true); err != nil {
		h.warnOnce.Do(func() {
			slog.Warn("presence heartbeat failing", "err", err)
		})
	}
}

// Wake forces an immediate beat, for app-focus style events where the user
// just became active again.
func (h *Heartbeat) Wake() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Close stops the loop after one final beat, so a clean shutdown still
// refreshes last-seen.
func (h *Heartbeat) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		<-h.stopped
		h.beat()
	})
}

// SetOffline marks the user offline explicitly, used on logout. Best effort:
// a failure here just means the user fades out via the recency window.
func SetOffline(ctx context.Context, api API) {
	if _, err := api.Heartbeat(ctx, false); err != nil {
		slog.Warn("could not mark offline", "err", err)
	}
}

// Online reports whether a status record reads as online at the given time:
// the stored flag must not be an explicit false, and the last beat must be
// recent. A record with no flag at all still counts when fresh.
func Online(rec platform.StatusRecord, now time.Time) bool {
	if rec.IsOnline != nil && !*rec.IsOnline {
		return false
	}
	seen, err := utils.ParseTime(rec.LastSeenAt)
	if err != nil {
		return false
	}
	return now.Sub(seen) <= OnlineWindow
}
