// Package chatserver applies inbound chat events to the session and room
// registries and addresses the resulting notifications.
package chatserver

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chatrooms/internal/chat/notify"
	"github.com/cory-johannsen/chatrooms/internal/chat/room"
	"github.com/cory-johannsen/chatrooms/internal/chat/session"
	"github.com/cory-johannsen/chatrooms/internal/observability"
)

// Stats is a point-in-time count of the directory.
type Stats struct {
	Sessions int `json:"sessions"`
	Rooms    int `json:"rooms"`
}

// Coordinator serializes every inbound event. Each handler runs its whole
// read-validate-mutate-notify sequence under one lock and enqueues all of its
// notifications before releasing it. Pushes never block.
type Coordinator struct {
	mu       sync.Mutex
	sessions *session.Registry
	rooms    *room.Registry
	catalog  *Catalog
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// New creates a Coordinator over the given registries.
//
// Precondition: all arguments must be non-nil.
// Postcondition: Returns a ready Coordinator.
func New(
	sessions *session.Registry,
	rooms *room.Registry,
	catalog *Catalog,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		sessions: sessions,
		rooms:    rooms,
		catalog:  catalog,
		metrics:  metrics,
		logger:   logger,
	}
}

// Connect registers a session for connID, tells it its default name and
// broadcasts the room list to every session.
//
// Precondition: connID must be non-empty and not yet connected.
// Postcondition: Returns the new session, whose outbox the transport drains.
func (c *Coordinator) Connect(connID string) (session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("connect", time.Now())

	sess, err := c.sessions.Create(connID)
	if err != nil {
		return session.Session{}, fmt.Errorf("connecting %s: %w", connID, err)
	}
	c.logger.Info("session connected", zap.String("conn_id", connID), zap.String("name", sess.Name))

	c.send(sess, notify.SetNickDefault(sess.Name))
	c.broadcastRoomList()
	return sess, nil
}

// Disconnect leaves the session's room, if any, then removes the session and
// closes its outbox.
//
// Postcondition: The session no longer exists, or ErrUnknownSession is returned.
func (c *Coordinator) Disconnect(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("disconnect", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("disconnect", connID)
	}
	if sess.Membership.IsInRoom() {
		c.quitLocked(sess)
	}
	if _, err := c.sessions.Remove(connID); err != nil {
		return fmt.Errorf("disconnecting %s: %w", connID, err)
	}
	c.logger.Info("session disconnected", zap.String("conn_id", connID), zap.String("name", sess.Name))
	return nil
}

// SetNickName renames the session. Failures are reported with SetNickErr.
//
// Postcondition: Returns nil on success, or ErrEmptyName, ErrNameTooLong,
// ErrDuplicateName or ErrUnknownSession.
func (c *Coordinator) SetNickName(connID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("set_nick_name", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("set_nick_name", connID)
	}

	err := validateName(name)
	var old string
	if err == nil {
		old, err = c.sessions.SetName(connID, name)
		if errors.Is(err, session.ErrDuplicateName) {
			err = ErrDuplicateName
		}
	}
	if err != nil {
		c.send(sess, notify.SetNickErr(c.catalog.Reason(err)))
		return err
	}

	sess.Name = name
	c.send(sess, notify.SetNickOK(name))
	if roomID, in := sess.Membership.RoomID(); in {
		c.groupcast(roomID, notify.RoomSysMsg(c.catalog.Renamed(old, name)))
	}
	c.logger.Debug("session renamed", zap.String("conn_id", connID), zap.String("old", old), zap.String("name", name))
	return nil
}

// RoomMsg relays text to every member of the sender's room, sender included.
// Empty text and messages from unaffiliated sessions are dropped.
func (c *Coordinator) RoomMsg(connID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("room_msg", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("room_msg", connID)
	}
	roomID, in := sess.Membership.RoomID()
	if text == "" || !in {
		return nil
	}
	c.groupcast(roomID, notify.RoomMsg(sess.Name, text))
	return nil
}

// CreateRoom creates a room with the caller as its only member.
//
// Postcondition: Returns nil on success, or ErrAlreadyInRoom, ErrEmptyTitle,
// ErrTitleTooLong, ErrPasswordTooLong or ErrUnknownSession with no state change.
func (c *Coordinator) CreateRoom(connID, title, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("create_room", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("create_room", connID)
	}
	if sess.Membership.IsInRoom() {
		c.send(sess, notify.SysMsg(c.catalog.Reason(ErrAlreadyInRoom)))
		return ErrAlreadyInRoom
	}

	rm, err := c.rooms.Create(title, password, connID)
	if err != nil {
		err = translateRoomError(err)
		c.send(sess, notify.CreateRoomErr(c.catalog.Reason(err)))
		return err
	}
	if err := c.sessions.SetMembership(connID, session.InRoom(rm.ID)); err != nil {
		return fmt.Errorf("creating room for %s: %w", connID, err)
	}
	c.logger.Info("room created",
		zap.String("conn_id", connID),
		zap.String("room_id", rm.ID),
		zap.String("title", rm.Title),
		zap.Bool("locked", rm.IsLocked()),
	)

	c.send(sess, notify.CreateRoomOK())
	c.groupcast(rm.ID, notify.RoomInfo(rm.Title, len(rm.Members)))
	c.broadcastRoomList()
	return nil
}

// JoinRoom adds the caller to roomID. A caller already in a room is refused
// with no state change.
//
// Postcondition: Returns nil on success, or ErrRoomNotFound, ErrAlreadyInRoom,
// ErrWrongPassword or ErrUnknownSession with no state change.
func (c *Coordinator) JoinRoom(connID, roomID, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("join_room", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("join_room", connID)
	}
	rm, ok := c.rooms.Get(roomID)
	if !ok {
		c.send(sess, notify.SysMsg(c.catalog.Reason(ErrRoomNotFound)))
		return ErrRoomNotFound
	}
	if sess.Membership.IsInRoom() {
		c.send(sess, notify.SysMsg(c.catalog.Reason(ErrAlreadyInRoom)))
		return ErrAlreadyInRoom
	}
	if rm.IsLocked() && rm.Password != password {
		c.send(sess, notify.SysMsg(c.catalog.Reason(ErrWrongPassword)))
		return ErrWrongPassword
	}

	count, err := c.rooms.AddMember(roomID, connID)
	if err != nil {
		return fmt.Errorf("joining %s: %w", roomID, err)
	}
	if err := c.sessions.SetMembership(connID, session.InRoom(roomID)); err != nil {
		return fmt.Errorf("joining %s: %w", roomID, err)
	}
	c.logger.Info("room joined", zap.String("conn_id", connID), zap.String("room_id", roomID), zap.Int("members", count))

	c.groupcast(roomID, notify.RoomSysMsg(c.catalog.Welcome(sess.Name)))
	c.groupcast(roomID, notify.RoomInfo(rm.Title, count))
	c.broadcastRoomList()
	return nil
}

// QuitRoom removes the caller from its room. Unaffiliated callers are ignored.
func (c *Coordinator) QuitRoom(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("quit_room", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("quit_room", connID)
	}
	if !sess.Membership.IsInRoom() {
		return nil
	}
	c.quitLocked(sess)
	return nil
}

// RequestRoomList sends the current room list to the caller only.
func (c *Coordinator) RequestRoomList(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe("room_list", time.Now())

	sess, ok := c.sessions.Get(connID)
	if !ok {
		return c.unknown("room_list", connID)
	}
	c.send(sess, notify.RoomList(c.roomEntries()))
	return nil
}

// Stats returns the current session and room counts.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Sessions: c.sessions.Count(), Rooms: c.rooms.Count()}
}

// quitLocked runs the leave transition. Caller must hold c.mu and sess must be in a room.
func (c *Coordinator) quitLocked(sess session.Session) {
	roomID, _ := sess.Membership.RoomID()
	rm, _ := c.rooms.Get(roomID)

	remaining, deleted, err := c.rooms.RemoveMember(roomID, sess.ConnID)
	if err != nil {
		c.logger.Error("leaving missing room",
			zap.String("conn_id", sess.ConnID),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}
	if err := c.sessions.SetMembership(sess.ConnID, session.Unaffiliated()); err != nil {
		c.logger.Error("clearing membership", zap.String("conn_id", sess.ConnID), zap.Error(err))
	}

	if err == nil && !deleted {
		c.groupcast(roomID, notify.RoomSysMsg(c.catalog.Left(sess.Name)))
		c.groupcast(roomID, notify.RoomInfo(rm.Title, remaining))
	}
	if deleted {
		c.logger.Info("room closed", zap.String("room_id", roomID), zap.String("title", rm.Title))
	}
	c.broadcastRoomList()
}

// send pushes n to one session. A full outbox is closed so its transport
// tears the connection down.
func (c *Coordinator) send(sess session.Session, n notify.Notification) {
	err := sess.Outbox.Push(n)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrOutboxFull):
		c.metrics.NotificationsDropped.Inc()
		c.logger.Warn("outbox full, dropping connection",
			zap.String("conn_id", sess.ConnID),
			zap.String("kind", string(n.Kind)),
		)
		sess.Outbox.Close()
	default:
		c.metrics.NotificationsDropped.Inc()
		c.logger.Debug("notification not queued", zap.String("conn_id", sess.ConnID), zap.Error(err))
	}
}

func (c *Coordinator) groupcast(roomID string, n notify.Notification) {
	members := lo.FilterMap(c.rooms.Members(roomID), func(connID string, _ int) (session.Session, bool) {
		return c.sessions.Get(connID)
	})
	for _, sess := range members {
		c.send(sess, n)
	}
}

func (c *Coordinator) broadcastRoomList() {
	n := notify.RoomList(c.roomEntries())
	for _, sess := range c.sessions.All() {
		c.send(sess, n)
	}
}

func (c *Coordinator) roomEntries() []notify.RoomEntry {
	return lo.Map(slices.Collect(c.rooms.List()), func(s room.Summary, _ int) notify.RoomEntry {
		return notify.RoomEntry{
			ID:          s.ID,
			Title:       s.Title,
			MemberCount: s.MemberCount,
			IsLocked:    s.IsLocked,
		}
	})
}

func (c *Coordinator) observe(event string, start time.Time) {
	c.metrics.ObserveEvent(event, start)
	c.metrics.SetDirectorySize(c.sessions.Count(), c.rooms.Count())
}

func (c *Coordinator) unknown(event, connID string) error {
	c.logger.Warn("event from unknown session", zap.String("event", event), zap.String("conn_id", connID))
	return fmt.Errorf("%s from %s: %w", event, connID, ErrUnknownSession)
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return ErrEmptyName
	case n > session.MaxNameLength:
		return ErrNameTooLong
	}
	return nil
}

func translateRoomError(err error) error {
	switch {
	case errors.Is(err, room.ErrEmptyTitle):
		return ErrEmptyTitle
	case errors.Is(err, room.ErrTitleTooLong):
		return ErrTitleTooLong
	case errors.Is(err, room.ErrPasswordTooLong):
		return ErrPasswordTooLong
	}
	return err
}
