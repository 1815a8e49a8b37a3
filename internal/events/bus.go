// Package events provides the in-process fan-out of session activity to
// external observers: a bounded multiplexed channel any number of
// subscribers can drain, and a gorilla/websocket hub that mirrors it
// read-only to remote collaborators. This is purely an ambient
// introspection surface, not part of the ACP session plane.
package events

import "sync"

// globalChanCapacity is the multiplexed channel size (§5): large enough
// to absorb a burst across every live session between subscriber ticks.
const globalChanCapacity = 100

// Activity is one observable moment in a session's life, as carried by a
// Bus. The dispatcher in internal/orchestrator/dispatch does not publish
// to a Bus; Activity values reach subscribers only through Publish calls
// made by whoever holds the Bus.
type Activity struct {
	LocalID string
	State   string
	Summary string
}

// Bus fans a stream of Activity values out to any number of subscribers.
// Publish never blocks a slow subscriber: a full subscriber channel
// drops the activity rather than backing up the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Activity]struct{}
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan Activity]struct{})}
}

// Subscribe registers a new receiver and returns it along with an
// unsubscribe function the caller must call when done.
func (b *Bus) Subscribe() (<-chan Activity, func()) {
	ch := make(chan Activity, globalChanCapacity)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish fans out a to every current subscriber.
func (b *Bus) Publish(a Activity) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- a:
		default:
		}
	}
}
