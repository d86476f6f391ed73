package session

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted display name, in characters.
const MaxNameLength = 20

var (
	// ErrNotFound is returned for an unknown connection ID.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyConnected is returned when a connection ID is registered twice.
	ErrAlreadyConnected = errors.New("session already connected")
	// ErrDuplicateName is returned when a live session already holds the name.
	ErrDuplicateName = errors.New("display name already in use")
	// ErrInvalidLength is returned for an empty or over-long display name.
	ErrInvalidLength = errors.New("display name length out of range")
)

// Session is a snapshot of one connected client's state.
type Session struct {
	// ConnID is the transport-supplied connection identifier.
	ConnID string
	// Name is the display name, unique among live sessions.
	Name string
	// Membership is the session's current room affiliation.
	Membership Membership
	// Outbox queues notifications addressed to this session.
	Outbox *Outbox
}

// Registry tracks all live sessions and indexes them by display name.
// All methods are safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session // connID → session
	names      map[string]string   // name → connID
	order      []string            // connIDs in connect order
	namer      *NameGenerator
	outboxSize int
}

// NewRegistry creates an empty Registry.
//
// Precondition: gen must be non-nil.
func NewRegistry(gen *NameGenerator, outboxSize int) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		names:      make(map[string]string),
		namer:      gen,
		outboxSize: outboxSize,
	}
}

// Create registers a session for connID with a generated unique name.
//
// Precondition: connID must be non-empty.
// Postcondition: Returns the created session, or an error wrapping ErrAlreadyConnected.
func (r *Registry) Create(connID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[connID]; exists {
		return Session{}, fmt.Errorf("connection %q: %w", connID, ErrAlreadyConnected)
	}

	name := r.namer.Generate(func(candidate string) bool {
		_, taken := r.names[candidate]
		return taken
	})

	sess := &Session{
		ConnID: connID,
		Name:   name,
		Outbox: NewOutbox(connID, r.outboxSize),
	}
	r.sessions[connID] = sess
	r.names[name] = connID
	r.order = append(r.order, connID)

	return *sess, nil
}

// Get returns a snapshot of the session for connID.
//
// Postcondition: Returns (session, true) if found, or (Session{}, false) otherwise.
func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// GetByName returns the session holding name.
func (r *Registry) GetByName(name string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.names[name]
	if !ok {
		return Session{}, false
	}
	return *r.sessions[connID], true
}

// SetName renames the session for connID. Names compare exactly; a session
// renaming to its own current name collides with itself.
//
// Postcondition: Returns the previous name, or an error wrapping ErrNotFound,
// ErrInvalidLength or ErrDuplicateName with no state change.
func (r *Registry) SetName(connID, name string) (string, error) {
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return "", fmt.Errorf("name of %d characters: %w", n, ErrInvalidLength)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return "", fmt.Errorf("connection %q: %w", connID, ErrNotFound)
	}
	if _, taken := r.names[name]; taken {
		return "", fmt.Errorf("name %q: %w", name, ErrDuplicateName)
	}

	old := sess.Name
	delete(r.names, old)
	sess.Name = name
	r.names[name] = connID
	return old, nil
}

// SetMembership records the room affiliation of connID.
//
// Postcondition: Returns nil, or an error wrapping ErrNotFound.
func (r *Registry) SetMembership(connID string, m Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return fmt.Errorf("connection %q: %w", connID, ErrNotFound)
	}
	sess.Membership = m
	return nil
}

// Remove deletes the session for connID and closes its outbox.
//
// Postcondition: Returns the removed session, or an error wrapping ErrNotFound.
func (r *Registry) Remove(connID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return Session{}, fmt.Errorf("connection %q: %w", connID, ErrNotFound)
	}

	sess.Outbox.Close()
	delete(r.names, sess.Name)
	delete(r.sessions, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *sess, nil
}

// All returns snapshots of every live session in connect order.
func (r *Registry) All() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.sessions[id])
	}
	return result
}

// InRoom returns snapshots of the sessions occupying roomID, in connect order.
//
// Postcondition: Returns a slice of sessions (may be empty).
func (r *Registry) InRoom(roomID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Session
	for _, id := range r.order {
		sess := r.sessions[id]
		if got, ok := sess.Membership.RoomID(); ok && got == roomID {
			result = append(result, *sess)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
