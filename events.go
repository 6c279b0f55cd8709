// File: cuculi/config/events.go
package config

import (
	"sync"
)

// EventKind classifies change notifications.
type EventKind int

const (
	// EventChanged is sent once per leaf path whose value changed in a new snapshot
	EventChanged EventKind = iota
	// EventReloadFailed is sent when a refresh was rejected
	EventReloadFailed
	// EventSourceRemoved is sent when the base source disappears
	EventSourceRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventReloadFailed:
		return "reload_failed"
	case EventSourceRemoved:
		return "source_removed"
	default:
		return "unknown"
	}
}

// Event is a change notification delivered to subscribers.
type Event struct {
	Kind     EventKind
	Path     string // changed key path or source origin
	Revision uint64 // revision of the snapshot that produced the event
	Err      error
}

// hub fans events out to subscriber channels without ever blocking the sender.
type hub struct {
	mu     sync.RWMutex
	subs   map[int64]chan Event
	nextID int64
	max    int
	closed bool
}

func newHub(max int) *hub {
	return &hub{subs: make(map[int64]chan Event), max: max}
}

func (h *hub) subscribe() (<-chan Event, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrClosed
	}
	if len(h.subs) >= h.max {
		return nil, nil, ErrTooManySubscribers
	}

	h.nextID++
	id := h.nextID
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

// publish drops the event for subscribers whose buffer is full.
func (h *hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
