// Package room provides the directory of live chat rooms.
//
// A room exists only while it has at least one member: the registry deletes a
// room in the same step that removes its last member.
package room

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxTitleLength is the longest accepted room title, in characters.
	MaxTitleLength = 30
	// MaxPasswordLength is the longest accepted room password, in characters.
	MaxPasswordLength = 20
)

var (
	// ErrNotFound is returned for an unknown room ID.
	ErrNotFound = errors.New("room not found")
	// ErrEmptyTitle is returned by Create for an empty title.
	ErrEmptyTitle = errors.New("room title is empty")
	// ErrTitleTooLong is returned by Create for a title over MaxTitleLength.
	ErrTitleTooLong = errors.New("room title too long")
	// ErrPasswordTooLong is returned by Create for a password over MaxPasswordLength.
	ErrPasswordTooLong = errors.New("room password too long")
)

// Room is a snapshot of one live room.
type Room struct {
	ID       string
	Title    string
	Password string
	// Members holds connection IDs in join order.
	Members []string
}

// IsLocked reports whether joining requires a password.
func (r Room) IsLocked() bool {
	return r.Password != ""
}

// Summary is the public directory view of a room.
type Summary struct {
	ID          string
	Title       string
	MemberCount int
	IsLocked    bool
}

type room struct {
	id       string
	title    string
	password string
	members  []string
}

func (r *room) snapshot() Room {
	return Room{
		ID:       r.id,
		Title:    r.title,
		Password: r.password,
		Members:  slices.Clone(r.members),
	}
}

func (r *room) summary() Summary {
	return Summary{
		ID:          r.id,
		Title:       r.title,
		MemberCount: len(r.members),
		IsLocked:    r.password != "",
	}
}

// Registry holds all live rooms in creation order.
// All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	order []string
	newID func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator overrides the room ID source.
//
// Precondition: gen must return IDs never returned before.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// NewRegistry creates an empty Registry. Room IDs default to random UUIDs.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms: make(map[string]*room),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidateTitle checks title against the accepted length range.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	switch {
	case n == 0:
		return ErrEmptyTitle
	case n > MaxTitleLength:
		return fmt.Errorf("title of %d characters: %w", n, ErrTitleTooLong)
	}
	return nil
}

// ValidatePassword checks password against the accepted length range. The
// empty password is valid and marks the room unlocked.
func ValidatePassword(password string) error {
	if n := utf8.RuneCountInString(password); n > MaxPasswordLength {
		return fmt.Errorf("password of %d characters: %w", n, ErrPasswordTooLong)
	}
	return nil
}

// Create adds a room whose sole member is firstMember.
//
// Precondition: firstMember must be non-empty.
// Postcondition: Returns the new room, or an error wrapping ErrEmptyTitle,
// ErrTitleTooLong or ErrPasswordTooLong with no state change.
func (r *Registry) Create(title, password, firstMember string) (Room, error) {
	if err := ValidateTitle(title); err != nil {
		return Room{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return Room{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm := &room{
		id:       r.newID(),
		title:    title,
		password: password,
		members:  []string{firstMember},
	}
	r.rooms[rm.id] = rm
	r.order = append(r.order, rm.id)
	return rm.snapshot(), nil
}

// Exists reports whether roomID names a live room.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Get returns a snapshot of roomID.
//
// Postcondition: Returns (room, true) if found, or (Room{}, false) otherwise.
func (r *Registry) Get(roomID string) (Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return rm.snapshot(), true
}

// AddMember appends connID to the member list of roomID. Adding an existing
// member is a no-op.
//
// Postcondition: Returns the member count after the add, or an error wrapping ErrNotFound.
func (r *Registry) AddMember(roomID, connID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return 0, fmt.Errorf("room %q: %w", roomID, ErrNotFound)
	}
	if !slices.Contains(rm.members, connID) {
		rm.members = append(rm.members, connID)
	}
	return len(rm.members), nil
}

// RemoveMember removes connID from roomID. When the last member leaves the
// room is deleted from the directory.
//
// Postcondition: Returns the remaining member count and whether the room was
// deleted, or an error wrapping ErrNotFound.
func (r *Registry) RemoveMember(roomID, connID string) (remaining int, deleted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return 0, false, fmt.Errorf("room %q: %w", roomID, ErrNotFound)
	}
	if i := slices.Index(rm.members, connID); i >= 0 {
		rm.members = slices.Delete(rm.members, i, i+1)
	}
	if len(rm.members) > 0 {
		return len(rm.members), false, nil
	}

	delete(r.rooms, roomID)
	if i := slices.Index(r.order, roomID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return 0, true, nil
}

// Members returns the connection IDs in roomID in join order, or nil if the
// room does not exist.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return slices.Clone(rm.members)
}

// List returns the directory in creation order. Each iteration takes a fresh
// snapshot, so the sequence may be ranged over any number of times and the
// caller holds no lock while consuming it.
func (r *Registry) List() iter.Seq[Summary] {
	return func(yield func(Summary) bool) {
		for _, s := range r.snapshot() {
			if !yield(s) {
				return
			}
		}
	}
}

func (r *Registry) snapshot() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rooms[id].summary())
	}
	return out
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
