// Package session provides the registry of connected chat sessions: their
// display names, room membership and outbound notification queues.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cory-johannsen/chatrooms/internal/chat/notify"
)

var (
	// ErrOutboxClosed is returned by Push after Close.
	ErrOutboxClosed = errors.New("outbox closed")
	// ErrOutboxFull is returned by Push when the buffer has no free slot.
	ErrOutboxFull = errors.New("outbox full")
)

// Outbox is a bounded queue of notifications for one connection. The
// coordinator pushes; the connection's writer goroutine drains Events.
type Outbox struct {
	connID string
	events chan notify.Notification
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given connection.
//
// Precondition: connID must be non-empty.
// Postcondition: Returns an Outbox with an open events channel.
func NewOutbox(connID string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		connID: connID,
		events: make(chan notify.Notification, bufferSize),
	}
}

// ConnID returns the owning connection identifier.
func (o *Outbox) ConnID() string {
	return o.connID
}

// Push enqueues n without blocking.
//
// Postcondition: n is queued, or an error wrapping ErrOutboxClosed or ErrOutboxFull is returned.
func (o *Outbox) Push(n notify.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s: %w", o.connID, ErrOutboxClosed)
	}
	select {
	case o.events <- n:
		return nil
	default:
		return fmt.Errorf("outbox %s: %w", o.connID, ErrOutboxFull)
	}
}

// Events returns the read-only notification channel. It is closed by Close
// after every queued notification has been buffered, so a reader drains the
// backlog before observing the close.
func (o *Outbox) Events() <-chan notify.Notification {
	return o.events
}

// Close marks the outbox closed and closes the events channel. Safe to call repeatedly.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.events)
	}
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
