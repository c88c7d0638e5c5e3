// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Event is a single message delivered to every registered listener.
type Event struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Events maintains a mapping of unique ids and channels so goroutines
// can register and receive events.
type Events struct {
	mu        sync.RWMutex
	listeners map[string]chan Event
}

// New constructs an events value for registering and receiving events.
func New() *Events {
	return &Events{
		listeners: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.listeners {
		delete(evt.listeners, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.listeners[id]
	if exists {
		return ch
	}

	// An event is dropped if the receiver is not ready to take it, so
	// this buffer gives a slow websocket writer room before events
	// start being lost.
	const messageBuffer = 100

	evt.listeners[id] = make(chan Event, messageBuffer)
	return evt.listeners[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.listeners[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.listeners, id)
	close(ch)
	return nil
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	if len(evt.listeners) == 0 {
		return
	}

	ev := Event{
		At:      time.Now().UTC(),
		Message: s,
	}

	for _, ch := range evt.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}
