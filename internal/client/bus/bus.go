// Package bus is a tiny in-process pub/sub used to fan out marker changes
// between the conversation view, the unread tracker, and anything else that
// cares, without wiring them to each other directly.
package bus

import "sync"

// Topics published by the client core.
const (
	TopicChatsLastOpened         = "chats:lastOpened"
	TopicNotificationsLastOpened = "notifications:lastOpened"
)

type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func()
}

func New() *Bus {
	return &Bus{subs: make(map[string]map[int]func())}
}

// Subscribe registers fn for a topic and returns a function that removes the
// subscription. fn runs synchronously on the publisher's goroutine.
func (b *Bus) Subscribe(topic string, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]func())
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

func (b *Bus) Publish(topic string) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[topic]))
	for _, fn := range b.subs[topic] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
