// Package realmbus is a realm-local broadcast bus. Publishers and
// subscribers share no objects: every payload is JSON-serialized at publish
// time and handlers receive only the serialized copy, which is the same
// boundary discipline the page and extension realms have in a browser.
package realmbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives the serialized payload of one event.
type Handler func(data json.RawMessage)

type event struct {
	topic string
	data  json.RawMessage
	sync  chan struct{} // non-nil for Flush sentinels
}

// Bus dispatches events to subscribers in publish order on a single
// goroutine, so handlers within one realm observe the ordering guarantees of
// a single-threaded event loop.
type Bus struct {
	log *slog.Logger

	mu      sync.Mutex
	subs    map[string]map[int64]Handler
	nextSub int64
	closed  bool

	queue chan event
	done  chan struct{}
}

// New creates a Bus and starts its dispatch goroutine.
func New(log *slog.Logger) *Bus {
	b := &Bus{
		log:   log,
		subs:  make(map[string]map[int64]Handler),
		queue: make(chan event, 1024),
		done:  make(chan struct{}),
	}
	go b.dispatchLoop()
	return b
}

// Publish serializes payload and enqueues it for delivery to every
// subscriber of topic. Payloads that cannot be JSON-marshaled are rejected:
// nothing non-copyable may cross the boundary.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %q: %w", topic, err)
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("bus closed")
	}

	select {
	case b.queue <- event{topic: topic, data: data}:
		return nil
	default:
		// Mirror lossy broadcast: a realm that cannot keep up loses events
		// rather than blocking the publisher.
		b.log.Debug("dropping event, queue full", "topic", topic)
		return fmt.Errorf("event queue full, dropped %q", topic)
	}
}

// Subscribe registers fn for topic and returns a cancel function. Events
// arriving after cancel are dropped silently; a late event firing with no
// listener is not an error.
func (b *Bus) Subscribe(topic string, fn Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	id := b.nextSub
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int64]Handler)
	}
	b.subs[topic][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Flush blocks until every event published before the call has been
// delivered. Used by callers that need the "next scheduling turn" to have
// run, primarily in tests.
func (b *Bus) Flush() {
	ch := make(chan struct{})
	select {
	case b.queue <- event{sync: ch}:
	case <-b.done:
		return
	}
	select {
	case <-ch:
	case <-b.done:
	}
}

// Close stops dispatch. Pending events are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)
}

func (b *Bus) dispatchLoop() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.queue:
			if ev.sync != nil {
				close(ev.sync)
				continue
			}
			b.mu.Lock()
			handlers := make([]Handler, 0, len(b.subs[ev.topic]))
			for _, fn := range b.subs[ev.topic] {
				handlers = append(handlers, fn)
			}
			b.mu.Unlock()
			for _, fn := range handlers {
				fn(ev.data)
			}
		}
	}
}
