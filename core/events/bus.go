package events

import (
	"sync"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	TrackLoaded        Type = "track.loaded"
	PlaybackChanged    Type = "playback.changed"
	VolumeChanged      Type = "volume.changed"
	ModeChanged        Type = "mode.changed" // shuffle / repeat
	SequenceChanged    Type = "sequence.changed"
	StyleChanged       Type = "visualizer.style"
	CatalogLoaded      Type = "catalog.loaded"
	CatalogUnavailable Type = "catalog.unavailable"
	Diagnostic         Type = "diagnostic"
)

// Event is one notification published by the session.
type Event struct {
	Type    Type        `json:"type"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload,omitempty"`
}

// Bus fans events out to subscribers over buffered channels. Slow
// subscribers miss events rather than block the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a channel receiving every published event.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		if ch == sub {
			delete(b.subscribers, ch)
			close(ch)
			return
		}
	}
}

// Publish broadcasts an event to all subscribers.
func (b *Bus) Publish(t Type, payload interface{}) {
	if b == nil {
		return
	}
	ev := Event{Type: t, Time: time.Now(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Channel full, skip to prevent blocking
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan Event]struct{})
	b.closed = true
}
