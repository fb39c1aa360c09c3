package usecase

import (
	"sync"
	"time"
)

const (
	EventSnapshot = "snapshot"
	EventReminder = "reminder"
)

// Event is pushed to every listener of a session.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

// EventHub fans events out to per-listener buffered channels. Publish never
// blocks: a listener whose buffer is full misses the event.
type EventHub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	bufSize int
	closed  bool
}

func NewEventHub(bufSize int) *EventHub {
	return &EventHub{
		subs:    make(map[uint64]chan Event),
		bufSize: bufSize,
	}
}

// Subscribe returns a channel of events and a function that detaches it. The
// channel is closed on detach or when the hub closes.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufSize)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

func (h *EventHub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close detaches every listener. Later publishes are dropped.
func (h *EventHub) Close() {
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
