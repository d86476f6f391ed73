package chatserver

import "errors"

// User-facing validation failures. Each is reported to the triggering
// connection as a unicast notification and returned by the handler.
var (
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrEmptyTitle      = errors.New("empty title")
	ErrTitleTooLong    = errors.New("title too long")
	ErrPasswordTooLong = errors.New("password too long")
	ErrAlreadyInRoom   = errors.New("already in room")
	ErrRoomNotFound    = errors.New("room not found")
	ErrWrongPassword   = errors.New("wrong password")
)

// ErrUnknownSession is returned for events from a connection with no
// session. Nothing is sent.
var ErrUnknownSession = errors.New("unknown session")
